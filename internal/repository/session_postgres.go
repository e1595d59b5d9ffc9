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

// SessionRepository defines the interface for chat session persistence
type SessionRepository interface {
	CreateSession(ctx context.Context, session entity.ChatSession) (*entity.ChatSession, error)
	GetSessionByID(ctx context.Context, id string) (*entity.ChatSession, error)
	ListSessions(ctx context.Context) ([]entity.ChatSession, error)
	UpdateSessionStatus(ctx context.Context, id string, status entity.SessionStatus) (*entity.ChatSession, error)
	TouchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
}

var _ SessionRepository = &SessionPostgres{}

// SessionPostgres implements SessionRepository using PostgreSQL
type SessionPostgres struct {
	db *pgxpool.Pool
}

func NewSessionPostgres(db *pgxpool.Pool) *SessionPostgres {
	return &SessionPostgres{db: db}
}

func (r *SessionPostgres) CreateSession(ctx context.Context, session entity.ChatSession) (*entity.ChatSession, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, title, status, model)
		VALUES ($1, $2, $3, $4)
		RETURNING id, title, status, model, created_at, updated_at`,
		session.ID, session.Title, string(session.Status), session.Model,
	)

	created, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return created, nil
}

func (r *SessionPostgres) GetSessionByID(ctx context.Context, id string) (*entity.ChatSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, title, status, model, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1`,
		id,
	)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return session, nil
}

func (r *SessionPostgres) ListSessions(ctx context.Context) ([]entity.ChatSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, title, status, model, created_at, updated_at
		FROM chat_sessions
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []entity.ChatSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	return sessions, rows.Err()
}

func (r *SessionPostgres) UpdateSessionStatus(ctx context.Context, id string, status entity.SessionStatus) (*entity.ChatSession, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE chat_sessions
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, title, status, model, created_at, updated_at`,
		id, string(status),
	)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrSessionNotFound
		}
		return nil, fmt.Errorf("update session status: %w", err)
	}

	return session, nil
}

func (r *SessionPostgres) TouchSession(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE chat_sessions
		SET updated_at = now()
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrSessionNotFound
	}

	return nil
}

func (r *SessionPostgres) DeleteSession(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrSessionNotFound
	}

	return nil
}

func scanSession(row pgx.Row) (*entity.ChatSession, error) {
	var session entity.ChatSession
	var status string
	var createdAt, updatedAt time.Time

	err := row.Scan(&session.ID, &session.Title, &status, &session.Model, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	session.Status = entity.SessionStatus(status)
	session.CreatedAt = createdAt
	session.UpdatedAt = updatedAt

	return &session, nil
}
