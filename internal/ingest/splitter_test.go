package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitter_ShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(10, 2)

	chunks := s.Split("hello world")

	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestSplitter_EmptyText(t *testing.T) {
	s := NewSplitter(10, 2)

	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\n  "))
}

func TestSplitter_ParagraphBoundaries(t *testing.T) {
	s := NewSplitter(10, 0) // 40 chars per chunk

	para1 := strings.Repeat("a", 30)
	para2 := strings.Repeat("b", 30)
	chunks := s.Split(para1 + "\n\n" + para2)

	require.Len(t, chunks, 2)
	assert.Equal(t, para1, chunks[0])
	assert.Equal(t, para2, chunks[1])
}

func TestSplitter_ChunkSizeAndOverlap(t *testing.T) {
	s := NewSplitter(10, 5) // 40 chars per chunk, 20 chars overlap

	words := make([]string, 12)
	for i := range words {
		words[i] = fmt.Sprintf("word%02d", i+1)
	}
	text := strings.Join(words, " ")

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 40, "chunk %q exceeds size limit", chunk)
	}

	// Every word must survive splitting.
	joined := strings.Join(chunks, " ")
	for _, word := range words {
		assert.Contains(t, joined, word)
	}

	// Consecutive chunks share overlapping content.
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], firstWord,
			"chunk %d should overlap with chunk %d", i, i-1)
	}
}

func TestSplitter_LongWordCharacterFallback(t *testing.T) {
	s := NewSplitter(10, 0) // 40 chars per chunk

	word := strings.Repeat("x", 50)
	chunks := s.Split(word)

	require.Len(t, chunks, 2)
	assert.Equal(t, 40, len(chunks[0]))
	assert.Equal(t, 10, len(chunks[1]))
	assert.Equal(t, word, chunks[0]+chunks[1])
}

func TestSplitter_MultibyteSafe(t *testing.T) {
	s := NewSplitter(2, 0) // 8 chars per chunk forces the rune fallback

	text := strings.Repeat("héllö", 4)
	chunks := s.Split(text)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.True(t, strings.Contains(text, chunk), "chunk %q should be a substring", chunk)
	}
}
