package vectorstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/ragchat/internal/config"
)

func TestNewWeaviateStore_AppliesConfiguredTimeout(t *testing.T) {
	client := newConnectionClient(45 * time.Second)

	assert.Equal(t, 45*time.Second, client.Timeout)
}

func TestNewWeaviateStore_UsesConfiguredClass(t *testing.T) {
	store, err := NewWeaviateStore(config.WeaviateConfig{
		Host:      "localhost:8081",
		Scheme:    "http",
		ClassName: "RagChatChunk",
		Timeout:   30 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, "RagChatChunk", store.className)
}
