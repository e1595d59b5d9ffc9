package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/entity"
	"github.com/futig/ragchat/internal/pkg/response"
	"github.com/futig/ragchat/internal/pkg/validator"
)

// Handler handles HTTP requests for chat sessions
type Handler struct {
	usecase   ChatUsecase
	validator *validator.Validator
}

// NewHandler creates a new chat handler
func NewHandler(usecase ChatUsecase, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:   usecase,
		validator: validator,
	}
}

// StartSession creates a new chat session
// POST /chat-session
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req entity.StartSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	session, err := h.usecase.StartSession(r.Context(), &req)
	if err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	response.Created(w, session)
}

// ListSessions returns all chat sessions without message history
// GET /chat-session
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.usecase.ListSessions(r.Context())
	if err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	response.Success(w, sessions)
}

// GetSession returns a session with its full message history
// GET /chat-session/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	session, err := h.usecase.GetSession(r.Context(), sessionID)
	if err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	response.Success(w, session)
}

// CloseSession closes an active session
// POST /chat-session/{sessionID}/close
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	session, err := h.usecase.CloseSession(r.Context(), sessionID)
	if err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	response.Success(w, session)
}

// Ask answers a text question within a session
// POST /chat-session/{sessionID}/ask
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	var req entity.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, err := h.usecase.Ask(r.Context(), sessionID, &req)
	if err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	response.Success(w, answer)
}

// AskAudio answers a voice question within a session
// POST /chat-session/{sessionID}/ask-audio
func (h *Handler) AskAudio(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Audio file is required")
		return
	}
	defer file.Close()

	if err := h.validator.ValidateAudioFile(fileHeader); err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read audio file")
		return
	}

	answer, err := h.usecase.AskAudio(r.Context(), sessionID, fileHeader.Filename, audio)
	if err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	response.Success(w, answer)
}

// ExportTranscript returns the session history rendered in the requested format
// GET /chat-session/{sessionID}/transcript?format=markdown
func (h *Handler) ExportTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(entity.FormatMarkdown)
	}

	data, meta, err := h.usecase.ExportTranscript(r.Context(), sessionID, entity.ResultFormat(format))
	if err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	response.File(w, meta.ContentType, meta.Filename, data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	response.JSON(w, status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func handleUsecaseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, entity.ErrSessionClosed):
		respondError(w, http.StatusConflict, "Session is closed")
	case errors.Is(err, entity.ErrIndexEmpty):
		respondError(w, http.StatusConflict, "Knowledge base is empty, upload documents first")
	case errors.Is(err, entity.ErrIndexInFlight):
		respondError(w, http.StatusConflict, "Indexing is in progress, try again later")
	case errors.Is(err, entity.ErrEmptyQuestion),
		errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrInvalidFormat):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrInvalidExtension),
		errors.Is(err, entity.ErrFileTooLarge),
		errors.Is(err, entity.ErrInvalidFile):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		ctxzap.Error(r.Context(), "internal error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
