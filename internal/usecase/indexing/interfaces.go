package indexing

import (
	"context"

	"github.com/futig/ragchat/internal/entity"
)

type EmbedderConnector interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type CallbackConnector interface {
	SendIndexingCompleted(ctx context.Context, callbackURL string, requestID string, data *entity.CallbackIndexingData)
	SendIndexingFailed(ctx context.Context, callbackURL string, requestID string, message string, details map[string]any)
}
