package documents

import (
	"context"

	"github.com/futig/ragchat/internal/entity"
)

// IndexingUsecase defines the indexing operations used by the HTTP handler
type IndexingUsecase interface {
	IndexUpload(ctx context.Context, filename string, data []byte) (*entity.Document, error)
	RemoveDocument(ctx context.Context, documentID string) error
	Status(ctx context.Context) (*entity.IndexStatusDTO, error)
	ReindexWithCallback(ctx context.Context, callbackURL string, requestID string)
}
