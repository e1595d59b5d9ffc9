package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/futig/ragchat/internal/entity"
)

type memoryEntry struct {
	chunk  entity.Chunk
	vector []float32
}

// MemoryStore is an in-memory Store with exact cosine search. It backs the
// mock mode and tests, no external vector database required.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Insert(ctx context.Context, chunks []entity.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, chunk := range chunks {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		s.entries[chunk.ID] = memoryEntry{chunk: chunk, vector: vec}
	}

	return nil
}

func (s *MemoryStore) Query(ctx context.Context, query entity.SearchQuery) ([]entity.RetrievedChunk, error) {
	if query.TopK < 1 {
		return nil, fmt.Errorf("%w: top_k must be positive", entity.ErrInvalidParameter)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]entity.RetrievedChunk, 0, len(s.entries))
	for _, e := range s.entries {
		results = append(results, entity.RetrievedChunk{
			Chunk: e.chunk,
			Score: cosineSimilarity(query.Vector, e.vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > query.TopK {
		results = results[:query.TopK]
	}

	return results, nil
}

func (s *MemoryStore) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if e.chunk.DocumentID == documentID {
			delete(s.entries, id)
		}
	}

	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]memoryEntry)
	return nil
}

func (s *MemoryStore) Ready(ctx context.Context) error {
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
