package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/config"
	"github.com/futig/ragchat/internal/entity"
	"github.com/futig/ragchat/internal/telegram/middleware"
)

const (
	msgWelcome = "Hi! I answer troubleshooting questions from the team knowledge base.\n\n" +
		"Just send a question as text or a voice message. I keep the conversation " +
		"context, so follow-up questions work too.\n\n" +
		"/new starts a fresh conversation, /help shows all commands."
	msgHelp = "Commands:\n\n" +
		"/start - show the welcome message\n" +
		"/new - start a fresh conversation\n" +
		"/help - show this help\n\n" +
		"Anything else is treated as a question to the knowledge base."
	msgNewSession = "Started a fresh conversation. Previous context is gone."
	msgGeneric    = "Something went wrong. Please try again or send /new"
	msgEmptyIndex = "The knowledge base is empty. Ask an administrator to upload documents first."

	sessionTTL = 24 * time.Hour
)

// ChatUsecase defines the chat operations used by the bot
type ChatUsecase interface {
	StartSession(ctx context.Context, req *entity.StartSessionRequest) (*entity.ChatSession, error)
	CloseSession(ctx context.Context, sessionID string) (*entity.ChatSession, error)
	Ask(ctx context.Context, sessionID string, req *entity.AskRequest) (*entity.AnswerDTO, error)
	AskAudio(ctx context.Context, sessionID string, filename string, audio []byte) (*entity.AnswerDTO, error)
}

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

type bot struct {
	api         *tgbotapi.BotAPI
	cfg         *config.TelegramConfig
	chatUC      ChatUsecase
	sessions    *gocache.Cache // chat id -> session id
	logger      *zap.Logger
	loggingMW   *middleware.LoggingMiddleware
	recoveryMW  *middleware.RecoveryMiddleware
	rateLimitMW *middleware.RateLimiterMiddleware
	workers     chan struct{}
	updatesChan tgbotapi.UpdatesChannel
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewBot initializes the telegram bot with all dependencies
func NewBot(cfg *config.TelegramConfig, chatUC ChatUsecase, logger *zap.Logger) (Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	api.Debug = false

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	b := &bot{
		api:      api,
		cfg:      cfg,
		chatUC:   chatUC,
		sessions: gocache.New(sessionTTL, time.Hour),
		logger:   logger,
		workers:  make(chan struct{}, cfg.MaxConcurrentUsers),
		stopChan: make(chan struct{}),
	}

	b.loggingMW = middleware.NewLoggingMiddleware(logger)
	b.recoveryMW = middleware.NewRecoveryMiddleware(logger, api)
	b.rateLimitMW = middleware.NewRateLimiterMiddleware(cfg.RateLimitPerMinute, logger, api)

	return b, nil
}

// Start starts the update processing loop
func (b *bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	b.updatesChan = b.api.GetUpdatesChan(u)

	ctx = ctxzap.ToContext(ctx, b.logger)
	go b.processUpdates(ctx)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops the bot gracefully with timeout
func (b *bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	close(b.stopChan)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	shutdownTimeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed",
			zap.Duration("timeout", shutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

func (b *bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update := <-b.updatesChan:
			b.wg.Add(1)
			b.workers <- struct{}{}
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				defer func() { <-b.workers }()
				b.handleUpdateWithMiddleware(u)
			}(update)
		}
	}
}

func (b *bot) handleUpdateWithMiddleware(update tgbotapi.Update) {
	b.rateLimitMW.Handle(update, func(u tgbotapi.Update) {
		b.loggingMW.Handle(u, func(u2 tgbotapi.Update) {
			b.recoveryMW.Handle(u2, func(u3 tgbotapi.Update) {
				b.handleUpdate(u3)
			})
		})
	})
}

func (b *bot) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	ctx := ctxzap.ToContext(context.Background(), b.logger)
	message := update.Message

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	if message.Voice != nil {
		b.handleVoice(ctx, message)
		return
	}

	if strings.TrimSpace(message.Text) != "" {
		b.handleQuestion(ctx, message, message.Text)
		return
	}
}

func (b *bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()

	ctxzap.Info(ctx, "command received",
		zap.String("command", command),
		zap.Int64("user_id", message.From.ID),
	)

	switch command {
	case "start":
		b.send(message.Chat.ID, msgWelcome)
	case "help":
		b.send(message.Chat.ID, msgHelp)
	case "new":
		b.handleNewCommand(ctx, message)
	default:
		b.send(message.Chat.ID, "Unknown command. Send /help for the list of commands.")
	}
}

// handleNewCommand closes the current conversation and starts a fresh one
func (b *bot) handleNewCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if sessionID, ok := b.sessions.Get(sessionKey(chatID)); ok {
		if _, err := b.chatUC.CloseSession(ctx, sessionID.(string)); err != nil {
			ctxzap.Warn(ctx, "failed to close previous session",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
			)
		}
		b.sessions.Delete(sessionKey(chatID))
	}

	if _, err := b.sessionFor(ctx, message); err != nil {
		ctxzap.Error(ctx, "failed to start session", zap.Error(err))
		b.send(chatID, msgGeneric)
		return
	}

	b.send(chatID, msgNewSession)
}

func (b *bot) handleQuestion(ctx context.Context, message *tgbotapi.Message, question string) {
	chatID := message.Chat.ID

	sessionID, err := b.sessionFor(ctx, message)
	if err != nil {
		ctxzap.Error(ctx, "failed to resolve session", zap.Error(err))
		b.send(chatID, msgGeneric)
		return
	}

	typing := newTypingNotifier(b.api, chatID, b.logger)
	typing.Start(ctx)
	defer typing.Stop()

	answer, err := b.chatUC.Ask(ctx, sessionID, &entity.AskRequest{Question: question})
	if err != nil {
		b.replyWithError(ctx, chatID, err)
		return
	}

	b.send(chatID, renderAnswer(answer))
}

func (b *bot) handleVoice(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	sessionID, err := b.sessionFor(ctx, message)
	if err != nil {
		ctxzap.Error(ctx, "failed to resolve session", zap.Error(err))
		b.send(chatID, msgGeneric)
		return
	}

	typing := newTypingNotifier(b.api, chatID, b.logger)
	typing.Start(ctx)
	defer typing.Stop()

	audio, err := b.downloadVoiceFile(ctx, message.Voice.FileID)
	if err != nil {
		ctxzap.Error(ctx, "failed to download voice file",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		b.send(chatID, "Could not download the voice message. Please try again.")
		return
	}

	answer, err := b.chatUC.AskAudio(ctx, sessionID, "voice.ogg", audio)
	if err != nil {
		b.replyWithError(ctx, chatID, err)
		return
	}

	b.send(chatID, renderAnswer(answer))
}

// sessionFor returns the active session for the chat, starting one if needed
func (b *bot) sessionFor(ctx context.Context, message *tgbotapi.Message) (string, error) {
	chatID := message.Chat.ID

	if sessionID, ok := b.sessions.Get(sessionKey(chatID)); ok {
		return sessionID.(string), nil
	}

	title := "Telegram chat"
	if message.From != nil && message.From.UserName != "" {
		title = "Telegram chat with @" + message.From.UserName
	}

	session, err := b.chatUC.StartSession(ctx, &entity.StartSessionRequest{Title: title})
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}

	b.sessions.Set(sessionKey(chatID), session.ID, sessionTTL)

	ctxzap.Info(ctx, "session started for telegram chat",
		zap.Int64("chat_id", chatID),
		zap.String("session_id", session.ID),
	)

	return session.ID, nil
}

func (b *bot) replyWithError(ctx context.Context, chatID int64, err error) {
	ctxzap.Error(ctx, "failed to answer question",
		zap.Error(err),
		zap.Int64("chat_id", chatID),
	)

	switch {
	case errors.Is(err, entity.ErrIndexEmpty):
		b.send(chatID, msgEmptyIndex)
	case errors.Is(err, entity.ErrSessionClosed), errors.Is(err, entity.ErrSessionNotFound):
		// Stale session mapping, drop it so the next message starts fresh
		b.sessions.Delete(sessionKey(chatID))
		b.send(chatID, "The conversation has expired. Send /new and ask again.")
	case errors.Is(err, entity.ErrEmptyQuestion):
		b.send(chatID, "The question is empty. Please send some text.")
	default:
		b.send(chatID, msgGeneric)
	}
}

func (b *bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

func sessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// renderAnswer formats the answer with its references block
func renderAnswer(answer *entity.AnswerDTO) string {
	var sb strings.Builder
	sb.WriteString(answer.Answer)

	if len(answer.Sources) > 0 {
		sb.WriteString("\n\nReferences:\n")
		for _, src := range answer.Sources {
			sb.WriteString(fmt.Sprintf("[%s] %s\n", src.Label, src.Source))
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
