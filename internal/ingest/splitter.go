package ingest

import "strings"

// charsPerToken approximates token length in characters. Chunk sizes are
// configured in tokens to keep them meaningful for embedding models.
const charsPerToken = 4

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter breaks document text into overlapping chunks. It prefers to split
// on paragraph boundaries, then lines, then sentences, then words, falling
// back to raw characters only when a single word exceeds the chunk size.
type Splitter struct {
	chunkChars   int
	overlapChars int
	separators   []string
}

func NewSplitter(chunkSizeTokens, chunkOverlapTokens int) *Splitter {
	return &Splitter{
		chunkChars:   chunkSizeTokens * charsPerToken,
		overlapChars: chunkOverlapTokens * charsPerToken,
		separators:   defaultSeparators,
	}
}

// Split returns the chunks of text in document order. Empty and
// whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	chunks := s.splitText(text, s.separators)

	result := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (s *Splitter) splitText(text string, separators []string) []string {
	if len(separators) == 0 {
		return []string{text}
	}

	// Pick the first separator that actually occurs in the text.
	separator := separators[len(separators)-1]
	rest := []string{}
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	splits := splitBySeparator(text, separator)

	var final []string
	var good []string
	for _, split := range splits {
		if len(split) <= s.chunkChars {
			good = append(good, split)
			continue
		}

		// Oversized piece: flush what we have, then recurse with
		// finer separators.
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, split)
		} else {
			final = append(final, s.splitText(split, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}

	return final
}

// merge joins consecutive splits into chunks of at most chunkChars,
// carrying overlapChars of trailing content into the next chunk.
func (s *Splitter) merge(splits []string, separator string) []string {
	var chunks []string
	var window []string
	total := 0

	sepLen := len(separator)

	for _, split := range splits {
		if total+len(split)+sepLen*len(window) > s.chunkChars && len(window) > 0 {
			chunks = append(chunks, strings.Join(window, separator))

			// Drop leading pieces until we are under the overlap size.
			for total > s.overlapChars || (total+len(split)+sepLen*len(window) > s.chunkChars && total > 0) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, split)
		total += len(split)
	}

	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, separator))
	}

	return chunks
}

func splitBySeparator(text, separator string) []string {
	if separator == "" {
		// Character-level fallback. Split into rune-sized pieces so we
		// never cut multi-byte characters in half.
		runes := []rune(text)
		pieces := make([]string, 0, len(runes))
		for _, r := range runes {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, separator)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
