package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/config"
	"github.com/futig/ragchat/internal/entity"
	"github.com/futig/ragchat/internal/pkg/formatter"
	"github.com/futig/ragchat/internal/pkg/logger"
	"github.com/futig/ragchat/internal/pkg/validator"
	"github.com/futig/ragchat/internal/repository"
	"github.com/futig/ragchat/internal/vectorstore"
)

// ChatUsecase implements the conversational retrieval flow
type ChatUsecase struct {
	sessionRepo      repository.SessionRepository
	messageRepo      repository.MessageRepository
	store            vectorstore.Store
	validator        *validator.Validator
	llmConnector     LLMConnector
	embedConnector   EmbedderConnector
	asrConnector     ASRConnector
	formatterFactory *formatter.Factory
	embedCache       *gocache.Cache
	cfg              config.ChatConfig
	logger           *zap.Logger
}

// NewUsecase creates a new chat use case
func NewUsecase(
	sessionRepo repository.SessionRepository,
	messageRepo repository.MessageRepository,
	store vectorstore.Store,
	validator *validator.Validator,
	llmConnector LLMConnector,
	embedConnector EmbedderConnector,
	asrConnector ASRConnector,
	cfg config.ChatConfig,
	logger *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		sessionRepo:      sessionRepo,
		messageRepo:      messageRepo,
		store:            store,
		validator:        validator,
		llmConnector:     llmConnector,
		embedConnector:   embedConnector,
		asrConnector:     asrConnector,
		formatterFactory: formatter.NewFactory(),
		embedCache:       gocache.New(cfg.EmbedCacheTTL, 2*cfg.EmbedCacheTTL),
		cfg:              cfg,
		logger:           logger,
	}
}

// StartSession creates a new active session
func (uc *ChatUsecase) StartSession(ctx context.Context, req *entity.StartSessionRequest) (*entity.ChatSession, error) {
	if err := uc.validator.ValidateStartSession(req); err != nil {
		return nil, err
	}

	session := entity.ChatSession{
		ID:     uuid.New().String(),
		Title:  req.Title,
		Status: entity.SessionStatusActive,
		Model:  req.Model,
	}

	createdSession, err := uc.sessionRepo.CreateSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	ctxzap.Info(ctx, "session started", zap.String("session_id", createdSession.ID))

	return createdSession, nil
}

// GetSession returns a session with its full message history
func (uc *ChatUsecase) GetSession(ctx context.Context, sessionID string) (*entity.SessionDTO, error) {
	session, err := uc.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	messages, err := uc.messageRepo.ListMessagesBySession(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return toSessionDTO(session, messages), nil
}

// ListSessions returns all sessions without message history
func (uc *ChatUsecase) ListSessions(ctx context.Context) ([]entity.SessionDTO, error) {
	sessions, err := uc.sessionRepo.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	dtos := make([]entity.SessionDTO, 0, len(sessions))
	for i := range sessions {
		dtos = append(dtos, *toSessionDTO(&sessions[i], nil))
	}

	return dtos, nil
}

// CloseSession closes an active session. History stays readable, new
// questions are rejected.
func (uc *ChatUsecase) CloseSession(ctx context.Context, sessionID string) (*entity.ChatSession, error) {
	session, err := uc.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Status == entity.SessionStatusClosed {
		return session, nil
	}

	session, err = uc.sessionRepo.UpdateSessionStatus(ctx, sessionID, entity.SessionStatusClosed)
	if err != nil {
		return nil, fmt.Errorf("update session status: %w", err)
	}

	ctxzap.Info(ctx, "session closed", zap.String("session_id", sessionID))

	return session, nil
}

// Ask answers a question within a session. Retrieval uses the conversation
// history to resolve follow-up questions.
func (uc *ChatUsecase) Ask(ctx context.Context, sessionID string, req *entity.AskRequest) (*entity.AnswerDTO, error) {
	start := time.Now()

	if err := uc.validator.ValidateAsk(req); err != nil {
		return nil, err
	}
	question := strings.TrimSpace(req.Question)

	ctx = logger.AddFields(ctx, zap.String("session_id", sessionID))

	session, err := uc.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Status != entity.SessionStatusActive {
		return nil, fmt.Errorf("%w: session %s", entity.ErrSessionClosed, sessionID)
	}

	count, err := uc.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	if count == 0 {
		return nil, entity.ErrIndexEmpty
	}

	history, err := uc.messageRepo.ListMessagesBySession(ctx, sessionID, uc.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	// Follow-up questions are condensed to standalone ones before
	// retrieval. The original question still goes to the model.
	searchQuestion := question
	if len(history) > 0 {
		searchQuestion = uc.condenseQuestion(ctx, session.Model, history, question)
	}

	vector, err := uc.embedQuery(ctx, searchQuestion)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	retrieved, err := uc.store.Query(ctx, entity.SearchQuery{
		Vector: vector,
		TopK:   uc.cfg.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	ctxzap.Debug(ctx, "context retrieved", zap.Int("chunk_count", len(retrieved)))

	messages := make([]entity.ChatTurn, 0, len(history)+2)
	messages = append(messages, entity.ChatTurn{
		Role:    "system",
		Content: buildSystemPrompt(retrieved),
	})
	messages = append(messages, historyTurns(history)...)
	messages = append(messages, entity.ChatTurn{Role: "user", Content: question})

	resp, err := uc.llmConnector.Chat(ctx, session.Model, messages)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := uc.buildSources(retrieved)

	userMsg := entity.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      entity.RoleUser,
		Content:   question,
	}
	if _, err := uc.messageRepo.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persist question: %w", err)
	}

	assistantMsg := entity.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      entity.RoleAssistant,
		Content:   resp.Message.Content,
		Sources:   sources,
	}
	if _, err := uc.messageRepo.CreateMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("persist answer: %w", err)
	}

	if err := uc.sessionRepo.TouchSession(ctx, sessionID); err != nil {
		ctxzap.Warn(ctx, "failed to touch session", zap.Error(err))
	}

	elapsed := time.Since(start).Seconds()
	ctxzap.Info(ctx, "question answered",
		zap.Int("source_count", len(sources)),
		zap.Float64("elapsed_seconds", elapsed))

	return &entity.AnswerDTO{
		SessionID: sessionID,
		Question:  question,
		Answer:    resp.Message.Content,
		Sources:   sources,
		Elapsed:   elapsed,
	}, nil
}

// AskAudio transcribes a voice recording and answers it as a text question
func (uc *ChatUsecase) AskAudio(ctx context.Context, sessionID string, filename string, audio []byte) (*entity.AnswerDTO, error) {
	transcription, err := uc.asrConnector.Transcribe(ctx, filename, audio)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}

	ctxzap.Info(ctx, "audio question transcribed", zap.Int("text_length", len(transcription)))

	return uc.Ask(ctx, sessionID, &entity.AskRequest{Question: transcription})
}

// ExportTranscript renders the session history in the requested format
func (uc *ChatUsecase) ExportTranscript(ctx context.Context, sessionID string, format entity.ResultFormat) ([]byte, *formatter.ExportMeta, error) {
	if !format.IsValid() {
		return nil, nil, fmt.Errorf("%w: %s", entity.ErrInvalidFormat, format)
	}

	transcript, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	fm, err := uc.formatterFactory.Create(format)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", entity.ErrInvalidFormat, format)
	}

	data, err := fm.Format(transcript)
	if err != nil {
		return nil, nil, fmt.Errorf("format transcript: %w", err)
	}

	meta := &formatter.ExportMeta{
		ContentType: fm.ContentType(),
		Filename:    "transcript-" + sessionID + fm.FileExtension(),
	}

	return data, meta, nil
}
