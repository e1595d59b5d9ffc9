package indexing

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/config"
	"github.com/futig/ragchat/internal/entity"
	"github.com/futig/ragchat/internal/integration/embedder"
	"github.com/futig/ragchat/internal/vectorstore"
)

type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[string]entity.Document
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[string]entity.Document)}
}

func (r *fakeDocumentRepo) UpsertDocument(ctx context.Context, doc entity.Document) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.docs {
		if existing.Source == doc.Source {
			doc.ID = id
			break
		}
	}
	r.docs[doc.ID] = doc
	return &doc, nil
}

func (r *fakeDocumentRepo) GetDocumentByID(ctx context.Context, id string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, entity.ErrDocumentNotFound
	}
	return &doc, nil
}

func (r *fakeDocumentRepo) GetDocumentBySource(ctx context.Context, source string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Source == source {
			return &doc, nil
		}
	}
	return nil, entity.ErrDocumentNotFound
}

func (r *fakeDocumentRepo) ListDocuments(ctx context.Context) ([]entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := make([]entity.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *fakeDocumentRepo) MarkIndexed(ctx context.Context, id string, chunkCount int) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, entity.ErrDocumentNotFound
	}
	doc.Status = entity.DocumentStatusIndexed
	doc.ChunkCount = chunkCount
	doc.Error = nil
	r.docs[id] = doc
	return &doc, nil
}

func (r *fakeDocumentRepo) MarkFailed(ctx context.Context, id string, reason string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, entity.ErrDocumentNotFound
	}
	doc.Status = entity.DocumentStatusFailed
	doc.Error = &reason
	r.docs[id] = doc
	return &doc, nil
}

func (r *fakeDocumentRepo) DeleteDocument(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return entity.ErrDocumentNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *fakeDocumentRepo) DeleteAllDocuments(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[string]entity.Document)
	return nil
}

type fakeCallback struct {
	mu        sync.Mutex
	completed []*entity.CallbackIndexingData
	failed    []string
}

func (c *fakeCallback) SendIndexingCompleted(ctx context.Context, callbackURL string, requestID string, data *entity.CallbackIndexingData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = append(c.completed, data)
}

func (c *fakeCallback) SendIndexingFailed(ctx context.Context, callbackURL string, requestID string, message string, details map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed = append(c.failed, message)
}

func newTestUsecase(t *testing.T, docsDir string) (*IndexingUsecase, *fakeDocumentRepo, *vectorstore.MemoryStore, *fakeCallback) {
	t.Helper()

	docRepo := newFakeDocumentRepo()
	store := vectorstore.NewMemoryStore()
	cb := &fakeCallback{}
	logger := zap.NewNop()

	uc := NewUsecase(
		docRepo,
		store,
		embedder.NewMockConnector(logger),
		cb,
		config.IngestConfig{
			DocsDir:        docsDir,
			ChunkSize:      50,
			ChunkOverlap:   10,
			EmbedBatchSize: 2,
		},
		logger,
	)

	return uc, docRepo, store, cb
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestSync_BuildsEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "router.txt", "to restart the router hold the power button for ten seconds")
	writeDoc(t, dir, "dns.md", "# DNS\n\nflush the dns cache when names fail to resolve")

	uc, docRepo, store, _ := newTestUsecase(t, dir)

	require.NoError(t, uc.Sync(context.Background()))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	docs, err := docRepo.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, doc := range docs {
		assert.Equal(t, entity.DocumentStatusIndexed, doc.Status)
		assert.Greater(t, doc.ChunkCount, 0)
	}
}

func TestSync_LoadsExistingIndex(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "router.txt", "this file must not be reindexed")

	uc, docRepo, store, _ := newTestUsecase(t, dir)

	// Pre-populate the store: Sync must treat the index as already built.
	require.NoError(t, store.Insert(context.Background(),
		[]entity.Chunk{{ID: "existing", DocumentID: "doc-x", Content: "seeded"}},
		[][]float32{{1, 0}},
	))

	require.NoError(t, uc.Sync(context.Background()))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	docs, err := docRepo.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestReindex_InFlightGuard(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t, t.TempDir())

	uc.inFlight.Store(true)
	_, err := uc.Reindex(context.Background())
	assert.ErrorIs(t, err, entity.ErrIndexInFlight)
}

func TestReindex_RecordsLoadFailures(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "good.txt", "usable content for indexing")
	writeDoc(t, dir, "empty.txt", "   ")

	uc, docRepo, _, _ := newTestUsecase(t, dir)

	data, err := uc.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, data.DocumentCount)
	assert.Greater(t, data.ChunkCount, 0)

	docs, err := docRepo.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	statuses := map[entity.DocumentStatus]int{}
	for _, doc := range docs {
		statuses[doc.Status]++
	}
	assert.Equal(t, 1, statuses[entity.DocumentStatusIndexed])
	assert.Equal(t, 1, statuses[entity.DocumentStatusFailed])
}

func TestReindexWithCallback_ReportsCompletion(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "guide.txt", "restart the router before anything else")

	uc, _, _, cb := newTestUsecase(t, dir)

	uc.ReindexWithCallback(context.Background(), "http://example.com/callback", "req-1")

	require.Len(t, cb.completed, 1)
	assert.Equal(t, 1, cb.completed[0].DocumentCount)
	assert.Empty(t, cb.failed)
}

func TestIndexUpload_AndRemove(t *testing.T) {
	uc, _, store, _ := newTestUsecase(t, t.TempDir())

	doc, err := uc.IndexUpload(context.Background(), "manual.md", []byte("# Manual\n\nhold the reset button for ten seconds"))
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusIndexed, doc.Status)
	assert.Equal(t, "upload/manual.md", doc.Source)
	assert.Greater(t, doc.ChunkCount, 0)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, doc.ChunkCount, count)

	require.NoError(t, uc.RemoveDocument(context.Background(), doc.ID))

	count, err = store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	err = uc.RemoveDocument(context.Background(), doc.ID)
	assert.ErrorIs(t, err, entity.ErrDocumentNotFound)
}

func TestIndexUpload_UnsupportedFormat(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t, t.TempDir())

	_, err := uc.IndexUpload(context.Background(), "binary.exe", []byte("nope"))
	assert.ErrorIs(t, err, entity.ErrUnsupportedFormat)
}

func TestStatus(t *testing.T) {
	uc, _, _, _ := newTestUsecase(t, t.TempDir())

	doc, err := uc.IndexUpload(context.Background(), "notes.txt", []byte("some troubleshooting notes"))
	require.NoError(t, err)

	status, err := uc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, doc.ChunkCount, status.ChunkCount)
	assert.False(t, status.InFlight)
	require.Len(t, status.Documents, 1)
	assert.Equal(t, doc.ID, status.Documents[0].ID)
}
