package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/config"
	"github.com/futig/ragchat/internal/entity"
	"github.com/futig/ragchat/internal/integration/embedder"
	"github.com/futig/ragchat/internal/pkg/validator"
	"github.com/futig/ragchat/internal/vectorstore"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]entity.ChatSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]entity.ChatSession)}
}

func (r *fakeSessionRepo) CreateSession(ctx context.Context, session entity.ChatSession) (*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	r.sessions[session.ID] = session
	return &session, nil
}

func (r *fakeSessionRepo) GetSessionByID(ctx context.Context, id string) (*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return &session, nil
}

func (r *fakeSessionRepo) ListSessions(ctx context.Context) ([]entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions := make([]entity.ChatSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.After(sessions[j].CreatedAt) })
	return sessions, nil
}

func (r *fakeSessionRepo) UpdateSessionStatus(ctx context.Context, id string, status entity.SessionStatus) (*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	session.Status = status
	session.UpdatedAt = time.Now()
	r.sessions[id] = session
	return &session, nil
}

func (r *fakeSessionRepo) TouchSession(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return entity.ErrSessionNotFound
	}
	session.UpdatedAt = time.Now()
	r.sessions[id] = session
	return nil
}

func (r *fakeSessionRepo) DeleteSession(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return entity.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []entity.ChatMessage
}

func (r *fakeMessageRepo) CreateMessage(ctx context.Context, message entity.ChatMessage) (*entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.CreatedAt = time.Now()
	r.messages = append(r.messages, message)
	return &message, nil
}

func (r *fakeMessageRepo) ListMessagesBySession(ctx context.Context, sessionID string, limit int) ([]entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.ChatMessage
	for _, msg := range r.messages {
		if msg.SessionID == sessionID {
			result = append(result, msg)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

type fakeLLM struct {
	mu    sync.Mutex
	calls [][]entity.ChatTurn
	fail  bool
}

func (l *fakeLLM) Chat(ctx context.Context, model string, messages []entity.ChatTurn) (*entity.LLMChatResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return nil, fmt.Errorf("model server unavailable")
	}
	l.calls = append(l.calls, messages)

	content := "The router must be restarted first. [source1]"
	if len(messages) > 0 && messages[0].Content == condensePrompt {
		content = "How do I restart the router?"
	}

	return &entity.LLMChatResponse{
		Model:   "llama3",
		Message: entity.ChatTurn{Role: "assistant", Content: content},
		Done:    true,
	}, nil
}

func (l *fakeLLM) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type fakeASR struct{}

func (a *fakeASR) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	return "how do I restart the router", nil
}

func newTestUsecase(t *testing.T, store vectorstore.Store, llm *fakeLLM) (*ChatUsecase, *fakeSessionRepo, *fakeMessageRepo) {
	t.Helper()

	sessionRepo := newFakeSessionRepo()
	messageRepo := &fakeMessageRepo{}
	logger := zap.NewNop()

	uc := NewUsecase(
		sessionRepo,
		messageRepo,
		store,
		validator.NewFileValidator(config.FileUploadConfig{MaxFileSize: 1 << 20, MaxAudioFileSize: 1 << 20, MaxUploadSize: 1 << 20}),
		llm,
		embedder.NewMockConnector(logger),
		&fakeASR{},
		config.ChatConfig{TopK: 2, HistoryLimit: 10, EmbedCacheTTL: time.Minute, SnippetLength: 60},
		logger,
	)

	return uc, sessionRepo, messageRepo
}

func seedIndex(t *testing.T, store vectorstore.Store) {
	t.Helper()

	em := embedder.NewMockConnector(zap.NewNop())
	chunks := []entity.Chunk{
		{ID: uuid.New().String(), DocumentID: "doc-a", Filename: "router.txt", Source: "docs/router.txt", ChunkIndex: 0, Content: "to restart the router hold the power button"},
		{ID: uuid.New().String(), DocumentID: "doc-a", Filename: "router.txt", Source: "docs/router.txt", ChunkIndex: 1, Content: "check that all cables are connected"},
		{ID: uuid.New().String(), DocumentID: "doc-b", Filename: "dns.txt", Source: "docs/dns.txt", ChunkIndex: 0, Content: "flush the dns cache when names fail to resolve"},
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := em.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.NoError(t, store.Insert(context.Background(), chunks, vectors))
}

func TestStartSession(t *testing.T) {
	uc, _, _ := newTestUsecase(t, vectorstore.NewMemoryStore(), &fakeLLM{})

	session, err := uc.StartSession(context.Background(), &entity.StartSessionRequest{Title: "network issues"})

	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, entity.SessionStatusActive, session.Status)
	assert.Equal(t, "network issues", session.Title)
}

func TestAsk_EmptyIndex(t *testing.T) {
	uc, _, _ := newTestUsecase(t, vectorstore.NewMemoryStore(), &fakeLLM{})

	session, err := uc.StartSession(context.Background(), &entity.StartSessionRequest{})
	require.NoError(t, err)

	_, err = uc.Ask(context.Background(), session.ID, &entity.AskRequest{Question: "why is the network down?"})
	assert.ErrorIs(t, err, entity.ErrIndexEmpty)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	uc, _, _ := newTestUsecase(t, vectorstore.NewMemoryStore(), &fakeLLM{})

	session, err := uc.StartSession(context.Background(), &entity.StartSessionRequest{})
	require.NoError(t, err)

	_, err = uc.Ask(context.Background(), session.ID, &entity.AskRequest{Question: "   "})
	assert.ErrorIs(t, err, entity.ErrEmptyQuestion)
}

func TestAsk_SessionNotFound(t *testing.T) {
	uc, _, _ := newTestUsecase(t, vectorstore.NewMemoryStore(), &fakeLLM{})

	_, err := uc.Ask(context.Background(), uuid.New().String(), &entity.AskRequest{Question: "hello?"})
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestAsk_AnswersWithSources(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	seedIndex(t, store)
	llm := &fakeLLM{}
	uc, _, messageRepo := newTestUsecase(t, store, llm)

	session, err := uc.StartSession(context.Background(), &entity.StartSessionRequest{})
	require.NoError(t, err)

	answer, err := uc.Ask(context.Background(), session.ID, &entity.AskRequest{Question: "how do I restart the router?"})
	require.NoError(t, err)

	assert.Equal(t, session.ID, answer.SessionID)
	assert.Contains(t, answer.Answer, "[source1]")
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "source1", answer.Sources[0].Label)
	assert.Equal(t, "source2", answer.Sources[1].Label)
	assert.Equal(t, "docs/router.txt", answer.Sources[0].Source)
	assert.GreaterOrEqual(t, answer.Elapsed, 0.0)

	// First question goes straight to answering, no condense call.
	assert.Equal(t, 1, llm.callCount())
	assert.Contains(t, llm.calls[0][0].Content, "[source1] docs/router.txt")

	// Question and answer are persisted in order.
	history, err := messageRepo.ListMessagesBySession(context.Background(), session.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.RoleUser, history[0].Role)
	assert.Equal(t, entity.RoleAssistant, history[1].Role)
	assert.Len(t, history[1].Sources, 2)
}

func TestAsk_FollowUpIsCondensed(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	seedIndex(t, store)
	llm := &fakeLLM{}
	uc, _, _ := newTestUsecase(t, store, llm)

	session, err := uc.StartSession(context.Background(), &entity.StartSessionRequest{})
	require.NoError(t, err)

	_, err = uc.Ask(context.Background(), session.ID, &entity.AskRequest{Question: "how do I restart the router?"})
	require.NoError(t, err)

	_, err = uc.Ask(context.Background(), session.ID, &entity.AskRequest{Question: "and what if that does not help?"})
	require.NoError(t, err)

	// Second question triggers a condense call plus an answer call.
	require.Equal(t, 3, llm.callCount())
	assert.Equal(t, condensePrompt, llm.calls[1][0].Content)
	assert.Contains(t, llm.calls[1][1].Content, "Follow-up question: and what if that does not help?")

	// The answer call carries the history and the original question.
	answerCall := llm.calls[2]
	assert.Equal(t, "system", answerCall[0].Role)
	assert.Equal(t, "and what if that does not help?", answerCall[len(answerCall)-1].Content)
}

func TestAsk_ClosedSession(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	seedIndex(t, store)
	uc, _, _ := newTestUsecase(t, store, &fakeLLM{})

	session, err := uc.StartSession(context.Background(), &entity.StartSessionRequest{})
	require.NoError(t, err)

	_, err = uc.CloseSession(context.Background(), session.ID)
	require.NoError(t, err)

	_, err = uc.Ask(context.Background(), session.ID, &entity.AskRequest{Question: "still there?"})
	assert.ErrorIs(t, err, entity.ErrSessionClosed)
}

func TestCloseSession_Idempotent(t *testing.T) {
	uc, _, _ := newTestUsecase(t, vectorstore.NewMemoryStore(), &fakeLLM{})

	session, err := uc.StartSession(context.Background(), &entity.StartSessionRequest{})
	require.NoError(t, err)

	closed, err := uc.CloseSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusClosed, closed.Status)

	closedAgain, err := uc.CloseSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusClosed, closedAgain.Status)
}

func TestAskAudio_TranscribesAndAnswers(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	seedIndex(t, store)
	uc, _, _ := newTestUsecase(t, store, &fakeLLM{})

	session, err := uc.StartSession(context.Background(), &entity.StartSessionRequest{})
	require.NoError(t, err)

	answer, err := uc.AskAudio(context.Background(), session.ID, "question.wav", []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, "how do I restart the router", answer.Question)
	assert.NotEmpty(t, answer.Sources)
}

func TestExportTranscript(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	seedIndex(t, store)
	uc, _, _ := newTestUsecase(t, store, &fakeLLM{})

	session, err := uc.StartSession(context.Background(), &entity.StartSessionRequest{Title: "router debugging"})
	require.NoError(t, err)

	_, err = uc.Ask(context.Background(), session.ID, &entity.AskRequest{Question: "how do I restart the router?"})
	require.NoError(t, err)

	data, meta, err := uc.ExportTranscript(context.Background(), session.ID, entity.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "text/markdown; charset=utf-8", meta.ContentType)
	assert.True(t, strings.HasSuffix(meta.Filename, ".md"))

	text := string(data)
	assert.Contains(t, text, "router debugging")
	assert.Contains(t, text, "how do I restart the router?")
	assert.Contains(t, text, "[source1] docs/router.txt")

	_, _, err = uc.ExportTranscript(context.Background(), session.ID, entity.ResultFormat("xml"))
	assert.ErrorIs(t, err, entity.ErrInvalidFormat)
}
