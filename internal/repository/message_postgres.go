package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futig/ragchat/internal/entity"
)

// MessageRepository defines the interface for chat message persistence.
// Messages are append-only, there is no update or delete.
type MessageRepository interface {
	CreateMessage(ctx context.Context, message entity.ChatMessage) (*entity.ChatMessage, error)
	ListMessagesBySession(ctx context.Context, sessionID string, limit int) ([]entity.ChatMessage, error)
}

var _ MessageRepository = &MessagePostgres{}

// MessagePostgres implements MessageRepository using PostgreSQL
type MessagePostgres struct {
	db *pgxpool.Pool
}

func NewMessagePostgres(db *pgxpool.Pool) *MessagePostgres {
	return &MessagePostgres{db: db}
}

func (r *MessagePostgres) CreateMessage(ctx context.Context, message entity.ChatMessage) (*entity.ChatMessage, error) {
	sources := message.Sources
	if sources == nil {
		sources = []entity.SourceRef{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("marshal sources: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, sources)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, session_id, role, content, sources, created_at`,
		message.ID, message.SessionID, string(message.Role), message.Content, sourcesJSON,
	)

	created, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	return created, nil
}

// ListMessagesBySession returns messages in chronological order. A limit of 0
// returns the full history; a positive limit returns the most recent messages
// only, still oldest first.
func (r *MessagePostgres) ListMessagesBySession(ctx context.Context, sessionID string, limit int) ([]entity.ChatMessage, error) {
	query := `
		SELECT id, session_id, role, content, sources, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC`
	args := []any{sessionID}

	if limit > 0 {
		query = `
			SELECT id, session_id, role, content, sources, created_at
			FROM (
				SELECT id, session_id, role, content, sources, created_at
				FROM chat_messages
				WHERE session_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT $2
			) recent
			ORDER BY created_at ASC, id ASC`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []entity.ChatMessage
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *message)
	}

	return messages, rows.Err()
}

func scanMessage(row pgx.Row) (*entity.ChatMessage, error) {
	var message entity.ChatMessage
	var role string
	var sourcesJSON []byte
	var createdAt time.Time

	err := row.Scan(&message.ID, &message.SessionID, &role, &message.Content, &sourcesJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	message.Role = entity.MessageRole(role)
	message.CreatedAt = createdAt

	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &message.Sources); err != nil {
			return nil, fmt.Errorf("unmarshal sources: %w", err)
		}
	}

	return &message, nil
}
