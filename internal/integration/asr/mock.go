package asr

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector returns a fixed transcription for local development.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	ctxzap.Info(ctx, "[MOCK] transcribing audio", zap.String("filename", filename))

	return "How do I restart the router?", nil
}
