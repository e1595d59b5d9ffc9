package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futig/ragchat/internal/entity"
)

// DocumentRepository defines the interface for indexed document metadata
type DocumentRepository interface {
	UpsertDocument(ctx context.Context, doc entity.Document) (*entity.Document, error)
	GetDocumentByID(ctx context.Context, id string) (*entity.Document, error)
	GetDocumentBySource(ctx context.Context, source string) (*entity.Document, error)
	ListDocuments(ctx context.Context) ([]entity.Document, error)
	MarkIndexed(ctx context.Context, id string, chunkCount int) (*entity.Document, error)
	MarkFailed(ctx context.Context, id string, reason string) (*entity.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteAllDocuments(ctx context.Context) error
}

var _ DocumentRepository = &DocumentPostgres{}

// DocumentPostgres implements DocumentRepository using PostgreSQL
type DocumentPostgres struct {
	db *pgxpool.Pool
}

func NewDocumentPostgres(db *pgxpool.Pool) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

// UpsertDocument inserts a document record or resets the existing record for
// the same source back to PENDING before reindexing.
func (r *DocumentPostgres) UpsertDocument(ctx context.Context, doc entity.Document) (*entity.Document, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO documents (id, filename, source, content_type, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source) DO UPDATE
		SET filename = EXCLUDED.filename,
		    content_type = EXCLUDED.content_type,
		    size_bytes = EXCLUDED.size_bytes,
		    status = EXCLUDED.status,
		    chunk_count = 0,
		    error = NULL,
		    indexed_at = NULL
		RETURNING id, filename, source, content_type, size_bytes, chunk_count, status, error, created_at, indexed_at`,
		doc.ID, doc.Filename, doc.Source, doc.ContentType, doc.Size, string(doc.Status),
	)

	created, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("upsert document: %w", err)
	}

	return created, nil
}

func (r *DocumentPostgres) GetDocumentByID(ctx context.Context, id string) (*entity.Document, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, filename, source, content_type, size_bytes, chunk_count, status, error, created_at, indexed_at
		FROM documents
		WHERE id = $1`,
		id,
	)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return doc, nil
}

func (r *DocumentPostgres) GetDocumentBySource(ctx context.Context, source string) (*entity.Document, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, filename, source, content_type, size_bytes, chunk_count, status, error, created_at, indexed_at
		FROM documents
		WHERE source = $1`,
		source,
	)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document by source: %w", err)
	}

	return doc, nil
}

func (r *DocumentPostgres) ListDocuments(ctx context.Context) ([]entity.Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, filename, source, content_type, size_bytes, chunk_count, status, error, created_at, indexed_at
		FROM documents
		ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}

	return docs, rows.Err()
}

func (r *DocumentPostgres) MarkIndexed(ctx context.Context, id string, chunkCount int) (*entity.Document, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE documents
		SET status = $2, chunk_count = $3, error = NULL, indexed_at = now()
		WHERE id = $1
		RETURNING id, filename, source, content_type, size_bytes, chunk_count, status, error, created_at, indexed_at`,
		id, string(entity.DocumentStatusIndexed), chunkCount,
	)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("mark document indexed: %w", err)
	}

	return doc, nil
}

func (r *DocumentPostgres) MarkFailed(ctx context.Context, id string, reason string) (*entity.Document, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE documents
		SET status = $2, error = $3
		WHERE id = $1
		RETURNING id, filename, source, content_type, size_bytes, chunk_count, status, error, created_at, indexed_at`,
		id, string(entity.DocumentStatusFailed), reason,
	)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("mark document failed: %w", err)
	}

	return doc, nil
}

func (r *DocumentPostgres) DeleteDocument(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrDocumentNotFound
	}

	return nil
}

func (r *DocumentPostgres) DeleteAllDocuments(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM documents`)
	if err != nil {
		return fmt.Errorf("delete all documents: %w", err)
	}

	return nil
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var doc entity.Document
	var status string
	var errText *string
	var createdAt time.Time
	var indexedAt *time.Time

	err := row.Scan(&doc.ID, &doc.Filename, &doc.Source, &doc.ContentType, &doc.Size,
		&doc.ChunkCount, &status, &errText, &createdAt, &indexedAt)
	if err != nil {
		return nil, err
	}

	doc.Status = entity.DocumentStatus(status)
	doc.Error = errText
	doc.CreatedAt = createdAt
	doc.IndexedAt = indexedAt

	return &doc, nil
}
