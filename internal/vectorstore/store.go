package vectorstore

import (
	"context"

	"github.com/futig/ragchat/internal/entity"
)

// Store is a vector index over document chunks. Vectors are supplied by the
// caller, the store never computes embeddings itself.
type Store interface {
	// EnsureSchema creates the backing collection if it does not exist yet.
	// Calling it against an existing collection is a no-op.
	EnsureSchema(ctx context.Context) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Insert stores chunks with their vectors. len(chunks) must equal
	// len(vectors).
	Insert(ctx context.Context, chunks []entity.Chunk, vectors [][]float32) error

	// Query returns the chunks nearest to the query vector, best match first.
	Query(ctx context.Context, query entity.SearchQuery) ([]entity.RetrievedChunk, error)

	// DeleteByDocument removes every chunk belonging to the document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Reset drops the whole collection.
	Reset(ctx context.Context) error

	// Ready reports whether the backing store is reachable.
	Ready(ctx context.Context) error
}
