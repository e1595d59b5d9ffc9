package chat

import (
	"context"

	"github.com/futig/ragchat/internal/entity"
)

type LLMConnector interface {
	Chat(ctx context.Context, model string, messages []entity.ChatTurn) (*entity.LLMChatResponse, error)
}

type EmbedderConnector interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type ASRConnector interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}
