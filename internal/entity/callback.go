package entity

// CallbackEventType represents the type of callback event
type CallbackEventType string

const (
	CallbackEventTypeIndexingCompleted CallbackEventType = "indexingCompleted"
	CallbackEventTypeIndexingFailed    CallbackEventType = "indexingFailed"
)

// CallbackEvent represents a callback event
type CallbackEvent struct {
	Event     CallbackEventType `json:"event"`
	Timestamp string            `json:"timestamp"` // ISO-8601 UTC
	Data      any               `json:"data"`
}

// CallbackIndexingData reports the result of an indexing run.
type CallbackIndexingData struct {
	DocumentCount int     `json:"document_count"`
	ChunkCount    int     `json:"chunk_count"`
	Elapsed       float64 `json:"elapsed_seconds"`
}

// CallbackErrorData represents data for a failed indexing run
type CallbackErrorData struct {
	Error CallbackErrorDetails `json:"error"`
}

// CallbackErrorDetails contains error information
type CallbackErrorDetails struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details"` // Context like ids, files
}
