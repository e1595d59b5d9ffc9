package ollama

import (
	"context"
	"fmt"
	"net/http"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/config"
	"github.com/futig/ragchat/internal/entity"
	"github.com/futig/ragchat/internal/integration/common"
	pkghttp "github.com/futig/ragchat/pkg/http"
)

type Connector struct {
	config    config.OllamaConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.OllamaConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Chat generates a completion for the given conversation. An empty model
// falls back to the configured default.
func (c *Connector) Chat(ctx context.Context, model string, messages []entity.ChatTurn) (*entity.LLMChatResponse, error) {
	if model == "" {
		model = c.config.Model
	}

	ctxzap.Info(ctx, "requesting chat completion",
		zap.String("model", model),
		zap.Int("message_count", len(messages)))

	req := &entity.LLMChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: entity.ChatOptions{
			Temperature: c.config.Temperature,
			NumCtx:      c.config.NumCtx,
		},
	}

	var resp entity.LLMChatResponse
	err := retry.Do(
		func() error {
			return c.connector.DoRequest(ctx, http.MethodPost, c.config.ChatEndpoint, req, &resp)
		},
		append(c.config.Retry.ToRetryOptions(),
			retry.Context(ctx),
			retry.RetryIf(common.ShouldRetry),
			retry.LastErrorOnly(true),
		)...,
	)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if resp.Message.Content == "" {
		return nil, fmt.Errorf("invalid chat response: empty message content")
	}

	ctxzap.Info(ctx, "chat completion received",
		zap.String("model", resp.Model),
		zap.Int("answer_length", len(resp.Message.Content)))

	return &resp, nil
}
