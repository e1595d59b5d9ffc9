package entity

import "errors"

// Domain errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is closed")
	ErrMessageNotFound = errors.New("message not found")

	// Document errors
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidFile       = errors.New("invalid file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrInvalidExtension  = errors.New("invalid file extension")
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// Retrieval errors
	ErrEmptyQuestion = errors.New("question is empty")
	ErrIndexEmpty    = errors.New("vector store is empty")
	ErrIndexInFlight = errors.New("indexing already in progress")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)
