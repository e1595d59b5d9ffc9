package documents

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/entity"
	"github.com/futig/ragchat/internal/pkg/logger"
	"github.com/futig/ragchat/internal/pkg/response"
	"github.com/futig/ragchat/internal/pkg/validator"
)

// Handler handles HTTP requests for the knowledge base
type Handler struct {
	usecase   IndexingUsecase
	validator *validator.Validator
}

// NewHandler creates a new documents handler
func NewHandler(usecase IndexingUsecase, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:   usecase,
		validator: validator,
	}
}

// Status reports the current index contents
// GET /documents
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.usecase.Status(r.Context())
	if err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	response.Success(w, status)
}

// Upload indexes a single uploaded document
// POST /documents
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Document file is required")
		return
	}
	defer file.Close()

	if err := h.validator.ValidateDocumentUpload(fileHeader); err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read document file")
		return
	}

	filename := validator.SanitizeFilename(fileHeader.Filename)
	doc, err := h.usecase.IndexUpload(r.Context(), filename, data)
	if err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	response.Created(w, doc)
}

// Reindex rebuilds the whole index in the background. The caller gets an
// immediate 202 and, when a callback URL is given, a completion notification.
// POST /documents/reindex
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	var req entity.ReindexRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	requestID := chimiddleware.GetReqID(r.Context())

	// The request context dies with the response, so the background run gets
	// a fresh one carrying the same logger and request id.
	bgCtx := ctxzap.ToContext(context.Background(), ctxzap.Extract(r.Context()))
	bgCtx = logger.AddFields(bgCtx,
		zap.String("request_id", requestID),
		zap.String("action", "reindex"),
	)

	go h.usecase.ReindexWithCallback(bgCtx, req.CallbackURL, requestID)

	response.Accepted(w, map[string]string{
		"status":  "accepted",
		"message": "Reindexing started",
	})
}

// Remove deletes a document and its chunks from the index
// DELETE /documents/{documentID}
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		respondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if err := h.usecase.RemoveDocument(r.Context(), documentID); err != nil {
		handleUsecaseError(w, r, err)
		return
	}

	response.NoContent(w)
}

func respondError(w http.ResponseWriter, status int, message string) {
	response.JSON(w, status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func handleUsecaseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrDocumentNotFound):
		respondError(w, http.StatusNotFound, "Document not found")
	case errors.Is(err, entity.ErrIndexInFlight):
		respondError(w, http.StatusConflict, "Indexing is in progress, try again later")
	case errors.Is(err, entity.ErrInvalidExtension),
		errors.Is(err, entity.ErrFileTooLarge),
		errors.Is(err, entity.ErrUnsupportedFormat),
		errors.Is(err, entity.ErrInvalidFile),
		errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidParameter):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		ctxzap.Error(r.Context(), "internal error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
