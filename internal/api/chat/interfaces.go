package chat

import (
	"context"

	"github.com/futig/ragchat/internal/entity"
	"github.com/futig/ragchat/internal/pkg/formatter"
)

// ChatUsecase defines the chat operations used by the HTTP handler
type ChatUsecase interface {
	StartSession(ctx context.Context, req *entity.StartSessionRequest) (*entity.ChatSession, error)
	GetSession(ctx context.Context, sessionID string) (*entity.SessionDTO, error)
	ListSessions(ctx context.Context) ([]entity.SessionDTO, error)
	CloseSession(ctx context.Context, sessionID string) (*entity.ChatSession, error)
	Ask(ctx context.Context, sessionID string, req *entity.AskRequest) (*entity.AnswerDTO, error)
	AskAudio(ctx context.Context, sessionID string, filename string, audio []byte) (*entity.AnswerDTO, error)
	ExportTranscript(ctx context.Context, sessionID string, format entity.ResultFormat) ([]byte, *formatter.ExportMeta, error)
}
