package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/ragchat/internal/config"
	"github.com/futig/ragchat/internal/entity"
	"github.com/futig/ragchat/internal/pkg/formatter"
	"github.com/futig/ragchat/internal/pkg/validator"
)

type fakeChatUsecase struct {
	sessions map[string]*entity.ChatSession
	askErr   error
}

func newFakeChatUsecase() *fakeChatUsecase {
	return &fakeChatUsecase{sessions: make(map[string]*entity.ChatSession)}
}

func (f *fakeChatUsecase) StartSession(ctx context.Context, req *entity.StartSessionRequest) (*entity.ChatSession, error) {
	session := &entity.ChatSession{
		ID:     "session-1",
		Title:  req.Title,
		Status: entity.SessionStatusActive,
	}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeChatUsecase) GetSession(ctx context.Context, sessionID string) (*entity.SessionDTO, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return &entity.SessionDTO{ID: session.ID, Title: session.Title, Status: session.Status}, nil
}

func (f *fakeChatUsecase) ListSessions(ctx context.Context) ([]entity.SessionDTO, error) {
	dtos := make([]entity.SessionDTO, 0, len(f.sessions))
	for _, s := range f.sessions {
		dtos = append(dtos, entity.SessionDTO{ID: s.ID, Status: s.Status})
	}
	return dtos, nil
}

func (f *fakeChatUsecase) CloseSession(ctx context.Context, sessionID string) (*entity.ChatSession, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	session.Status = entity.SessionStatusClosed
	return session, nil
}

func (f *fakeChatUsecase) Ask(ctx context.Context, sessionID string, req *entity.AskRequest) (*entity.AnswerDTO, error) {
	if f.askErr != nil {
		return nil, f.askErr
	}
	if _, ok := f.sessions[sessionID]; !ok {
		return nil, entity.ErrSessionNotFound
	}
	return &entity.AnswerDTO{
		SessionID: sessionID,
		Question:  req.Question,
		Answer:    "Restart the router first. [source1]",
		Sources:   []entity.SourceRef{{Label: "source1", Source: "docs/router.txt"}},
	}, nil
}

func (f *fakeChatUsecase) AskAudio(ctx context.Context, sessionID string, filename string, audio []byte) (*entity.AnswerDTO, error) {
	return f.Ask(ctx, sessionID, &entity.AskRequest{Question: "transcribed question"})
}

func (f *fakeChatUsecase) ExportTranscript(ctx context.Context, sessionID string, format entity.ResultFormat) ([]byte, *formatter.ExportMeta, error) {
	if !format.IsValid() {
		return nil, nil, fmt.Errorf("%w: %s", entity.ErrInvalidFormat, format)
	}
	if _, ok := f.sessions[sessionID]; !ok {
		return nil, nil, entity.ErrSessionNotFound
	}
	return []byte("# Chat transcript\n"), &formatter.ExportMeta{
		ContentType: "text/markdown",
		Filename:    "transcript-" + sessionID + ".md",
	}, nil
}

func newTestRouter(uc ChatUsecase) chi.Router {
	v := validator.NewFileValidator(config.FileUploadConfig{
		MaxFileSize:      1 << 20,
		MaxAudioFileSize: 1 << 20,
		MaxUploadSize:    1 << 20,
	})
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(uc, v))
	return r
}

func doRequest(t *testing.T, router chi.Router, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStartSession(t *testing.T) {
	router := newTestRouter(newFakeChatUsecase())

	rec := doRequest(t, router, http.MethodPost, "/chat-session", `{"title":"Router issues"}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var session entity.ChatSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "session-1", session.ID)
	assert.Equal(t, "Router issues", session.Title)
	assert.Equal(t, entity.SessionStatusActive, session.Status)
}

func TestGetSession_NotFound(t *testing.T) {
	router := newTestRouter(newFakeChatUsecase())

	rec := doRequest(t, router, http.MethodGet, "/chat-session/missing", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAsk(t *testing.T) {
	uc := newFakeChatUsecase()
	router := newTestRouter(uc)
	doRequest(t, router, http.MethodPost, "/chat-session", `{}`)

	rec := doRequest(t, router, http.MethodPost, "/chat-session/session-1/ask", `{"question":"How do I restart the router?"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var answer entity.AnswerDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Contains(t, answer.Answer, "[source1]")
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "docs/router.txt", answer.Sources[0].Source)
}

func TestAsk_EmptyIndexConflict(t *testing.T) {
	uc := newFakeChatUsecase()
	uc.askErr = entity.ErrIndexEmpty
	router := newTestRouter(uc)
	doRequest(t, router, http.MethodPost, "/chat-session", `{}`)

	rec := doRequest(t, router, http.MethodPost, "/chat-session/session-1/ask", `{"question":"anything"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAsk_ClosedSessionConflict(t *testing.T) {
	uc := newFakeChatUsecase()
	uc.askErr = entity.ErrSessionClosed
	router := newTestRouter(uc)
	doRequest(t, router, http.MethodPost, "/chat-session", `{}`)

	rec := doRequest(t, router, http.MethodPost, "/chat-session/session-1/ask", `{"question":"anything"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAsk_InvalidBody(t *testing.T) {
	router := newTestRouter(newFakeChatUsecase())

	rec := doRequest(t, router, http.MethodPost, "/chat-session/session-1/ask", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseSession(t *testing.T) {
	router := newTestRouter(newFakeChatUsecase())
	doRequest(t, router, http.MethodPost, "/chat-session", `{}`)

	rec := doRequest(t, router, http.MethodPost, "/chat-session/session-1/close", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var session entity.ChatSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, entity.SessionStatusClosed, session.Status)
}

func TestExportTranscript(t *testing.T) {
	router := newTestRouter(newFakeChatUsecase())
	doRequest(t, router, http.MethodPost, "/chat-session", `{}`)

	rec := doRequest(t, router, http.MethodGet, "/chat-session/session-1/transcript?format=markdown", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Header().Get("Content-Disposition"), "transcript-session-1.md"))
	assert.Contains(t, rec.Body.String(), "Chat transcript")
}

func TestExportTranscript_InvalidFormat(t *testing.T) {
	router := newTestRouter(newFakeChatUsecase())
	doRequest(t, router, http.MethodPost, "/chat-session", `{}`)

	rec := doRequest(t, router, http.MethodGet, "/chat-session/session-1/transcript?format=xml", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
