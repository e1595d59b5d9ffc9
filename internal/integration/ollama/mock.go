package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/entity"
)

// MockConnector returns canned completions for local development without a
// running model server.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Chat(ctx context.Context, model string, messages []entity.ChatTurn) (*entity.LLMChatResponse, error) {
	ctxzap.Info(ctx, "[MOCK] chat completion", zap.Int("message_count", len(messages)))

	if model == "" {
		model = "mock"
	}

	question := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			question = messages[i].Content
			break
		}
	}

	content := fmt.Sprintf(
		"Based on the available documentation, here is what I found about your question: %s [source1]",
		strings.TrimSpace(question),
	)

	return &entity.LLMChatResponse{
		Model:   model,
		Message: entity.ChatTurn{Role: "assistant", Content: content},
		Done:    true,
	}, nil
}
