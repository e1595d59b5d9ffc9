package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/entity"
)

// condenseQuestion rewrites a follow-up into a standalone question. On any
// failure the original question is used for retrieval, answering still works.
func (uc *ChatUsecase) condenseQuestion(ctx context.Context, model string, history []entity.ChatMessage, question string) string {
	messages := []entity.ChatTurn{
		{Role: "system", Content: condensePrompt},
		{Role: "user", Content: buildCondenseInput(history, question)},
	}

	resp, err := uc.llmConnector.Chat(ctx, model, messages)
	if err != nil {
		ctxzap.Warn(ctx, "failed to condense question, falling back to original", zap.Error(err))
		return question
	}

	condensed := strings.TrimSpace(resp.Message.Content)
	if condensed == "" {
		return question
	}

	ctxzap.Debug(ctx, "question condensed",
		zap.Int("original_length", len(question)),
		zap.Int("condensed_length", len(condensed)))

	return condensed
}

// embedQuery embeds a single query string with TTL memoization. Repeated
// questions skip the embedding round trip.
func (uc *ChatUsecase) embedQuery(ctx context.Context, question string) ([]float32, error) {
	if cached, ok := uc.embedCache.Get(question); ok {
		if vector, ok := cached.([]float32); ok {
			return vector, nil
		}
	}

	vectors, err := uc.embedConnector.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 vector, got %d", len(vectors))
	}

	uc.embedCache.Set(question, vectors[0], gocache.DefaultExpiration)

	return vectors[0], nil
}

// buildSources numbers the retrieved chunks as citations, starting from
// source1 for every question.
func (uc *ChatUsecase) buildSources(retrieved []entity.RetrievedChunk) []entity.SourceRef {
	sources := make([]entity.SourceRef, 0, len(retrieved))
	for i, chunk := range retrieved {
		sources = append(sources, entity.SourceRef{
			Label:    fmt.Sprintf("source%d", i+1),
			Filename: chunk.Filename,
			Source:   chunk.Source,
			Snippet:  truncate(chunk.Content, uc.cfg.SnippetLength),
			Score:    chunk.Score,
		})
	}
	return sources
}

func historyTurns(history []entity.ChatMessage) []entity.ChatTurn {
	turns := make([]entity.ChatTurn, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == entity.RoleAssistant {
			role = "assistant"
		}
		turns = append(turns, entity.ChatTurn{Role: role, Content: msg.Content})
	}
	return turns
}

func truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
