package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/ragchat/internal/entity"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()

	store := NewMemoryStore()
	chunks := []entity.Chunk{
		{ID: "c1", DocumentID: "doc-a", Filename: "router.txt", Source: "docs/router.txt", ChunkIndex: 0, Content: "restart the router"},
		{ID: "c2", DocumentID: "doc-a", Filename: "router.txt", Source: "docs/router.txt", ChunkIndex: 1, Content: "check cable connections"},
		{ID: "c3", DocumentID: "doc-b", Filename: "dns.txt", Source: "docs/dns.txt", ChunkIndex: 0, Content: "flush the dns cache"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 0, 1},
	}
	require.NoError(t, store.Insert(context.Background(), chunks, vectors))

	return store
}

func TestMemoryStore_QueryRanksByCosine(t *testing.T) {
	store := seedStore(t)

	results, err := store.Query(context.Background(), entity.SearchQuery{
		Vector: []float32{1, 0, 0},
		TopK:   2,
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ID)
	assert.Equal(t, "c2", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStore_QueryTopKLargerThanStore(t *testing.T) {
	store := seedStore(t)

	results, err := store.Query(context.Background(), entity.SearchQuery{
		Vector: []float32{0, 0, 1},
		TopK:   10,
	})

	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "c3", results[0].ID)
}

func TestMemoryStore_QueryRejectsNonPositiveTopK(t *testing.T) {
	store := seedStore(t)

	_, err := store.Query(context.Background(), entity.SearchQuery{
		Vector: []float32{1, 0, 0},
		TopK:   0,
	})

	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestMemoryStore_InsertMismatch(t *testing.T) {
	store := NewMemoryStore()

	err := store.Insert(context.Background(), []entity.Chunk{{ID: "c1"}}, nil)
	assert.Error(t, err)
}

func TestMemoryStore_DeleteByDocument(t *testing.T) {
	store := seedStore(t)

	require.NoError(t, store.DeleteByDocument(context.Background(), "doc-a"))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := store.Query(context.Background(), entity.SearchQuery{
		Vector: []float32{1, 0, 0},
		TopK:   5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-b", results[0].DocumentID)
}

func TestMemoryStore_Reset(t *testing.T) {
	store := seedStore(t)

	require.NoError(t, store.Reset(context.Background()))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
