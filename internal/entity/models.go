package entity

import (
	"fmt"
	"time"
)

type SessionStatus string

// Session status represents the lifecycle of a chat session
const (
	SessionStatusActive SessionStatus = "ACTIVE" // Session accepts questions
	SessionStatusClosed SessionStatus = "CLOSED" // Session closed by user, history kept
)

func (ss SessionStatus) Validate() error {
	switch ss {
	case SessionStatusActive, SessionStatusClosed:
		return nil
	default:
		return fmt.Errorf("unknown session status: %s", ss)
	}
}

type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
)

type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "PENDING" // Registered, not yet indexed
	DocumentStatusIndexed DocumentStatus = "INDEXED" // Chunks stored in the vector store
	DocumentStatusFailed  DocumentStatus = "FAILED"  // Extraction or embedding failed
)

// ChatSession is one conversation with memory. All questions asked within
// the session share the accumulated chat history.
type ChatSession struct {
	ID        string        `json:"session_id"`
	Title     string        `json:"title"`
	Status    SessionStatus `json:"status"`
	Model     string        `json:"model"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ChatMessage is a single turn in a session. Assistant messages carry the
// source references used to produce the answer.
type ChatMessage struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Sources   []SourceRef `json:"sources,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// SourceRef is a citation attached to an assistant answer. Labels restart
// from [source1] for every question.
type SourceRef struct {
	Label    string  `json:"label"`
	Filename string  `json:"filename"`
	Source   string  `json:"source"`
	Snippet  string  `json:"snippet,omitempty"`
	Score    float32 `json:"score"`
}

// Document is a file registered in the knowledge base.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Source      string         `json:"source"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	ChunkCount  int            `json:"chunk_count"`
	Status      DocumentStatus `json:"status"`
	Error       *string        `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	IndexedAt   *time.Time     `json:"indexed_at,omitempty"`
}
