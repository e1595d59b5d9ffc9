package asr

import (
	"context"
	"fmt"
	"mime/multipart"
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
	config    config.ASRConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.ASRConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Transcribe converts an audio recording to text
// POST {transcribe_endpoint} with multipart/form-data
func (c *Connector) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	ctxzap.Info(ctx, "transcribing audio",
		zap.String("filename", filename),
		zap.Int("size_bytes", len(audio)))

	prepareBody := func(writer *multipart.Writer) error {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return fmt.Errorf("create form file: %w", err)
		}

		if _, err := part.Write(audio); err != nil {
			return fmt.Errorf("write audio content: %w", err)
		}
		return nil
	}

	var resp entity.ASRTranscribeResponse
	err := retry.Do(
		func() error {
			return c.connector.DoMultipartRequest(ctx, http.MethodPost, c.config.TranscribeEndpoint, prepareBody, &resp)
		},
		append(c.config.Retry.ToRetryOptions(),
			retry.Context(ctx),
			retry.RetryIf(common.ShouldRetry),
			retry.LastErrorOnly(true),
		)...,
	)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	if resp.Text == "" {
		return "", fmt.Errorf("invalid transcription response: empty text")
	}

	ctxzap.Info(ctx, "audio transcribed", zap.Int("text_length", len(resp.Text)))

	return resp.Text, nil
}
