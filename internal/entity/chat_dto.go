package entity

import (
	"time"
)

type StartSessionRequest struct {
	Title string `json:"title,omitempty"`
	Model string `json:"model,omitempty"`
}

type AskRequest struct {
	Question string `json:"question"`
}

// AnswerDTO is the synchronous reply to a question: the generated answer
// plus the citations backing it, numbered from [source1].
type AnswerDTO struct {
	SessionID string      `json:"session_id"`
	Question  string      `json:"question"`
	Answer    string      `json:"answer"`
	Sources   []SourceRef `json:"sources"`
	Elapsed   float64     `json:"elapsed_seconds"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type MessageDTO struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Sources   []SourceRef `json:"sources,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type SessionDTO struct {
	ID        string        `json:"session_id"`
	Title     string        `json:"title"`
	Status    SessionStatus `json:"status"`
	Model     string        `json:"model"`
	Messages  []MessageDTO  `json:"messages,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type DocumentDTO struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	ChunkCount  int            `json:"chunk_count"`
	Status      DocumentStatus `json:"status"`
	Error       *string        `json:"error,omitempty"`
	IndexedAt   *time.Time     `json:"indexed_at,omitempty"`
}

type ReindexRequest struct {
	CallbackURL string `json:"callback_url,omitempty"`
}

// ResultFormat selects the transcript export format.
type ResultFormat string

const (
	FormatMarkdown ResultFormat = "markdown"
	FormatJSON     ResultFormat = "json"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatJSON, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}
