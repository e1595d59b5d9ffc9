package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/ragchat/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// External service configurations
	OllamaConnectorCfg   OllamaConnectorConfig   `envPrefix:"OLLAMA_"`
	EmbedderConnectorCfg EmbedderConnectorConfig `envPrefix:"EMBEDDER_"`
	ASRConnectorCfg      ASRConnectorConfig      `envPrefix:"ASR_"`
	CallbackConnectorCfg CallbackConnectorConfig `envPrefix:"CALLBACK_"`

	// Vector store configuration
	WeaviateCfg WeaviateConfig `envPrefix:"WEAVIATE_"`

	// Document ingestion configuration
	IngestCfg IngestConfig `envPrefix:"INGEST_"`

	// Chat pipeline configuration
	ChatCfg ChatConfig `envPrefix:"CHAT_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS,notEmpty"`

	// Telegram bot configuration (used by the bot binary only)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string `env:"BOT_TOKEN,notEmpty"`
	UpdateTimeout      int    `env:"UPDATE_TIMEOUT" envDefault:"30"`
	MaxConcurrentUsers int    `env:"MAX_CONCURRENT_USERS" envDefault:"64"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	ShutdownTimeout    int    `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
}

type OllamaConnectorConfig struct {
	HTTPClientConfig
	ChatEndpoint string               `env:"CHAT_ENDPOINT" envDefault:"/api/chat"`
	Model        string               `env:"MODEL" envDefault:"llama3"`
	Temperature  float64              `env:"TEMPERATURE" envDefault:"0.1"`
	NumCtx       int                  `env:"NUM_CTX" envDefault:"4096"`
	Retry        pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type EmbedderConnectorConfig struct {
	HTTPClientConfig
	EmbedEndpoint string               `env:"EMBED_ENDPOINT" envDefault:"/api/embed"`
	Model         string               `env:"MODEL" envDefault:"e5-base-v2"`
	Retry         pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type ASRConnectorConfig struct {
	HTTPClientConfig
	TranscribeEndpoint string               `env:"TRANSCRIBE_ENDPOINT,notEmpty"`
	Retry              pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type CallbackConnectorConfig struct {
	HTTPClientConfig
	Retry pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT,notEmpty"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT,notEmpty"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE,notEmpty"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT,notEmpty"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT,notEmpty"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

// WeaviateConfig holds the vector store connection settings
type WeaviateConfig struct {
	Host      string        `env:"HOST,notEmpty"`
	Scheme    string        `env:"SCHEME" envDefault:"http"`
	APIKey    string        `env:"API_KEY"`
	ClassName string        `env:"CLASS_NAME" envDefault:"RagChatChunk"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// IngestConfig holds document loading and chunking settings
type IngestConfig struct {
	DocsDir        string `env:"DOCS_DIR" envDefault:"knowledge"`
	ChunkSize      int    `env:"CHUNK_SIZE" envDefault:"500"`
	ChunkOverlap   int    `env:"CHUNK_OVERLAP" envDefault:"100"`
	EmbedBatchSize int    `env:"EMBED_BATCH_SIZE" envDefault:"32"`
	MaxFileSize    int64  `env:"MAX_FILE_SIZE" envDefault:"52428800"` // 50 MiB
}

// ChatConfig holds retrieval and answering settings
type ChatConfig struct {
	TopK          int           `env:"TOP_K" envDefault:"4"`
	HistoryLimit  int           `env:"HISTORY_LIMIT" envDefault:"20"`
	EmbedCacheTTL time.Duration `env:"EMBED_CACHE_TTL" envDefault:"10m"`
	SnippetLength int           `env:"SNIPPET_LENGTH" envDefault:"200"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize      int64 `env:"MAX_FILE_SIZE,notEmpty"`       // 50 MiB
	MaxAudioFileSize int64 `env:"MAX_AUDIO_FILE_SIZE,notEmpty"` // 25 MiB
	MaxUploadSize    int64 `env:"MAX_UPLOAD_SIZE,notEmpty"`     // 64 MiB
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	// Validate chunking configuration
	if cfg.IngestCfg.ChunkSize < 1 {
		errors = append(errors, fmt.Sprintf("INGEST_CHUNK_SIZE must be positive, got %d", cfg.IngestCfg.ChunkSize))
	}

	if cfg.IngestCfg.ChunkOverlap < 0 || cfg.IngestCfg.ChunkOverlap >= cfg.IngestCfg.ChunkSize {
		errors = append(errors, fmt.Sprintf("INGEST_CHUNK_OVERLAP must be between 0 and INGEST_CHUNK_SIZE(%d), got %d", cfg.IngestCfg.ChunkSize, cfg.IngestCfg.ChunkOverlap))
	}

	if cfg.IngestCfg.EmbedBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("INGEST_EMBED_BATCH_SIZE must be positive, got %d", cfg.IngestCfg.EmbedBatchSize))
	}

	// Validate chat configuration
	if cfg.ChatCfg.TopK < 1 {
		errors = append(errors, fmt.Sprintf("CHAT_TOP_K must be positive, got %d", cfg.ChatCfg.TopK))
	}

	if cfg.OllamaConnectorCfg.Temperature < 0 || cfg.OllamaConnectorCfg.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("OLLAMA_TEMPERATURE must be between 0 and 2, got %g", cfg.OllamaConnectorCfg.Temperature))
	}

	// Validate Database configuration
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
