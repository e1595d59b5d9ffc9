package indexing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/config"
	"github.com/futig/ragchat/internal/entity"
	"github.com/futig/ragchat/internal/ingest"
	"github.com/futig/ragchat/internal/pkg/logger"
	"github.com/futig/ragchat/internal/repository"
	"github.com/futig/ragchat/internal/vectorstore"
)

// IndexingUsecase builds and maintains the knowledge base index
type IndexingUsecase struct {
	documentRepo   repository.DocumentRepository
	store          vectorstore.Store
	loader         *ingest.Loader
	splitter       *ingest.Splitter
	embedConnector EmbedderConnector
	callback       CallbackConnector
	cfg            config.IngestConfig
	inFlight       atomic.Bool
	logger         *zap.Logger
}

// NewUsecase creates a new indexing use case
func NewUsecase(
	documentRepo repository.DocumentRepository,
	store vectorstore.Store,
	embedConnector EmbedderConnector,
	callback CallbackConnector,
	cfg config.IngestConfig,
	logger *zap.Logger,
) *IndexingUsecase {
	return &IndexingUsecase{
		documentRepo:   documentRepo,
		store:          store,
		loader:         ingest.NewLoader(cfg.MaxFileSize),
		splitter:       ingest.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedConnector: embedConnector,
		callback:       callback,
		cfg:            cfg,
		logger:         logger,
	}
}

// Sync initializes the index on startup. An existing non-empty index is
// loaded as is, only an empty one triggers a build from the docs directory.
func (uc *IndexingUsecase) Sync(ctx context.Context) error {
	ctx = logger.WithAction(ctx, "index_sync")

	if err := uc.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	count, err := uc.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}

	if count > 0 {
		ctxzap.Info(ctx, "loaded existing index", zap.Int("chunk_count", count))
		return nil
	}

	ctxzap.Info(ctx, "index is empty, building from docs directory", zap.String("docs_dir", uc.cfg.DocsDir))

	if _, err := uc.Reindex(ctx); err != nil {
		return fmt.Errorf("initial index build: %w", err)
	}

	return nil
}

// Reindex rebuilds the whole index from the docs directory. Only one run may
// be active at a time.
func (uc *IndexingUsecase) Reindex(ctx context.Context) (*entity.CallbackIndexingData, error) {
	if !uc.inFlight.CompareAndSwap(false, true) {
		return nil, entity.ErrIndexInFlight
	}
	defer uc.inFlight.Store(false)

	ctx = logger.WithAction(ctx, "reindex")
	start := time.Now()

	if err := uc.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset index: %w", err)
	}
	if err := uc.documentRepo.DeleteAllDocuments(ctx); err != nil {
		return nil, fmt.Errorf("clear document records: %w", err)
	}

	docs, loadErrs, err := uc.loader.LoadDir(ctx, uc.cfg.DocsDir)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	totalChunks := 0
	indexed := 0
	for _, doc := range docs {
		chunkCount, err := uc.indexDocument(ctx, doc)
		if err != nil {
			ctxzap.Warn(ctx, "failed to index document",
				zap.String("source", doc.Source),
				zap.Error(err))
			continue
		}
		totalChunks += chunkCount
		indexed++
	}

	for _, loadErr := range loadErrs {
		uc.recordLoadFailure(ctx, loadErr)
	}

	data := &entity.CallbackIndexingData{
		DocumentCount: indexed,
		ChunkCount:    totalChunks,
		Elapsed:       time.Since(start).Seconds(),
	}

	ctxzap.Info(ctx, "reindex finished",
		zap.Int("document_count", data.DocumentCount),
		zap.Int("chunk_count", data.ChunkCount),
		zap.Int("failed_count", len(docs)-indexed+len(loadErrs)),
		zap.Float64("elapsed_seconds", data.Elapsed))

	return data, nil
}

// ReindexWithCallback runs Reindex and reports the outcome to the callback
// URL. Intended to run in a background goroutine after a 202 response.
func (uc *IndexingUsecase) ReindexWithCallback(ctx context.Context, callbackURL string, requestID string) {
	data, err := uc.Reindex(ctx)
	if err != nil {
		ctxzap.Error(ctx, "reindex failed", zap.Error(err))
		if callbackURL != "" {
			uc.callback.SendIndexingFailed(ctx, callbackURL, requestID, err.Error(), map[string]any{
				"docs_dir": uc.cfg.DocsDir,
			})
		}
		return
	}

	if callbackURL != "" {
		uc.callback.SendIndexingCompleted(ctx, callbackURL, requestID, data)
	}
}

// IndexUpload indexes a single uploaded file. An existing document with the
// same source is replaced.
func (uc *IndexingUsecase) IndexUpload(ctx context.Context, filename string, data []byte) (*entity.Document, error) {
	text, err := uc.loader.ExtractText(filename, data)
	if err != nil {
		return nil, err
	}

	doc := ingest.LoadedDocument{
		Filename: filename,
		Source:   "upload/" + filename,
		Size:     int64(len(data)),
		Text:     text,
	}

	record, err := uc.documentRepo.UpsertDocument(ctx, entity.Document{
		ID:       uuid.New().String(),
		Filename: doc.Filename,
		Source:   doc.Source,
		Size:     doc.Size,
		Status:   entity.DocumentStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("register document: %w", err)
	}

	// Drop chunks of the previous version before inserting new ones.
	if err := uc.store.DeleteByDocument(ctx, record.ID); err != nil {
		return nil, fmt.Errorf("remove stale chunks: %w", err)
	}

	chunkCount, err := uc.embedAndStore(ctx, record.ID, doc)
	if err != nil {
		if _, markErr := uc.documentRepo.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			ctxzap.Warn(ctx, "failed to mark document failed", zap.Error(markErr))
		}
		return nil, err
	}

	record, err = uc.documentRepo.MarkIndexed(ctx, record.ID, chunkCount)
	if err != nil {
		return nil, fmt.Errorf("mark document indexed: %w", err)
	}

	ctxzap.Info(ctx, "uploaded document indexed",
		zap.String("document_id", record.ID),
		zap.Int("chunk_count", chunkCount))

	return record, nil
}

// RemoveDocument deletes a document and its chunks
func (uc *IndexingUsecase) RemoveDocument(ctx context.Context, documentID string) error {
	if _, err := uc.documentRepo.GetDocumentByID(ctx, documentID); err != nil {
		return err
	}

	if err := uc.store.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	if err := uc.documentRepo.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}

	ctxzap.Info(ctx, "document removed", zap.String("document_id", documentID))

	return nil
}

// Status reports the current index contents
func (uc *IndexingUsecase) Status(ctx context.Context) (*entity.IndexStatusDTO, error) {
	count, err := uc.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	docs, err := uc.documentRepo.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	status := &entity.IndexStatusDTO{
		ChunkCount: count,
		InFlight:   uc.inFlight.Load(),
		Documents:  make([]entity.DocumentDTO, 0, len(docs)),
	}
	for _, doc := range docs {
		status.Documents = append(status.Documents, toDocumentDTO(doc))
	}

	return status, nil
}

func (uc *IndexingUsecase) indexDocument(ctx context.Context, doc ingest.LoadedDocument) (int, error) {
	record, err := uc.documentRepo.UpsertDocument(ctx, entity.Document{
		ID:          uuid.New().String(),
		Filename:    doc.Filename,
		Source:      doc.Source,
		ContentType: doc.ContentType,
		Size:        doc.Size,
		Status:      entity.DocumentStatusPending,
	})
	if err != nil {
		return 0, fmt.Errorf("register document: %w", err)
	}

	chunkCount, err := uc.embedAndStore(ctx, record.ID, doc)
	if err != nil {
		if _, markErr := uc.documentRepo.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			ctxzap.Warn(ctx, "failed to mark document failed", zap.Error(markErr))
		}
		return 0, err
	}

	if _, err := uc.documentRepo.MarkIndexed(ctx, record.ID, chunkCount); err != nil {
		return 0, fmt.Errorf("mark document indexed: %w", err)
	}

	return chunkCount, nil
}

// embedAndStore splits a document, embeds the chunks in batches and inserts
// them into the vector store.
func (uc *IndexingUsecase) embedAndStore(ctx context.Context, documentID string, doc ingest.LoadedDocument) (int, error) {
	pieces := uc.splitter.Split(doc.Text)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("%w: document produced no chunks", entity.ErrInvalidFile)
	}

	chunks := make([]entity.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, entity.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Filename:   doc.Filename,
			Source:     doc.Source,
			ChunkIndex: i,
			Content:    piece,
		})
	}

	for start := 0; start < len(chunks); start += uc.cfg.EmbedBatchSize {
		end := start + uc.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, 0, len(batch))
		for _, chunk := range batch {
			texts = append(texts, chunk.Content)
		}

		vectors, err := uc.embedConnector.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed chunks: %w", err)
		}

		if err := uc.store.Insert(ctx, batch, vectors); err != nil {
			return 0, fmt.Errorf("store chunks: %w", err)
		}
	}

	return len(chunks), nil
}

func (uc *IndexingUsecase) recordLoadFailure(ctx context.Context, loadErr ingest.LoadError) {
	record, err := uc.documentRepo.UpsertDocument(ctx, entity.Document{
		ID:       uuid.New().String(),
		Filename: loadErr.Source,
		Source:   loadErr.Source,
		Status:   entity.DocumentStatusPending,
	})
	if err != nil {
		ctxzap.Warn(ctx, "failed to record load failure", zap.Error(err))
		return
	}

	if _, err := uc.documentRepo.MarkFailed(ctx, record.ID, loadErr.Err.Error()); err != nil {
		ctxzap.Warn(ctx, "failed to mark document failed", zap.Error(err))
	}
}

func toDocumentDTO(doc entity.Document) entity.DocumentDTO {
	return entity.DocumentDTO{
		ID:          doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Size:        doc.Size,
		ChunkCount:  doc.ChunkCount,
		Status:      doc.Status,
		Error:       doc.Error,
		IndexedAt:   doc.IndexedAt,
	}
}
