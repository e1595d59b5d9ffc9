package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/api"
	chatapi "github.com/futig/ragchat/internal/api/chat"
	documentsapi "github.com/futig/ragchat/internal/api/documents"
	"github.com/futig/ragchat/internal/config"
	"github.com/futig/ragchat/internal/integration/asr"
	"github.com/futig/ragchat/internal/integration/callback"
	"github.com/futig/ragchat/internal/integration/embedder"
	"github.com/futig/ragchat/internal/integration/ollama"
	"github.com/futig/ragchat/internal/pkg/validator"
	"github.com/futig/ragchat/internal/repository"
	"github.com/futig/ragchat/internal/telegram"
	"github.com/futig/ragchat/internal/usecase/chat"
	"github.com/futig/ragchat/internal/usecase/indexing"
	"github.com/futig/ragchat/internal/vectorstore"
)

func Build() (*App, error) {
	ctx := context.Background()

	deps, err := buildCore(ctx)
	if err != nil {
		return nil, err
	}

	// Setup API handlers
	chatHandler := chatapi.NewHandler(deps.chatUC, deps.fileValidator)
	documentsHandler := documentsapi.NewHandler(deps.indexingUC, deps.fileValidator)
	deps.logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(chatHandler, documentsHandler, deps.logger)
	deps.logger.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:    deps.cfg.ServerAddr,
		Handler: router,
		// Generation can take a while, so the write timeout matches the
		// router-level request timeout.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 125 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	deps.logger.Info("Application built successfully",
		zap.String("environment", deps.cfg.Environment),
	)

	return &App{
		server: server,
		db:     deps.db,
		logger: deps.logger,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot() (telegram.Bot, *zap.Logger, error) {
	ctx := context.Background()

	deps, err := buildCore(ctx)
	if err != nil {
		return nil, nil, err
	}

	bot, err := telegram.NewBot(&deps.cfg.TelegramCfg, deps.chatUC, deps.logger)
	if err != nil {
		deps.db.Close()
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	deps.logger.Info("Telegram bot built successfully",
		zap.String("environment", deps.cfg.Environment),
	)

	return bot, deps.logger, nil
}

// core holds the shared application components used by both binaries
type core struct {
	cfg           *config.Config
	logger        *zap.Logger
	db            *pgxpool.Pool
	fileValidator *validator.Validator
	chatUC        *chat.ChatUsecase
	indexingUC    *indexing.IndexingUsecase
}

func buildCore(ctx context.Context) (*core, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize repositories
	sessionRepo := repository.NewSessionPostgres(db)
	messageRepo := repository.NewMessagePostgres(db)
	documentRepo := repository.NewDocumentPostgres(db)
	logger.Info("Repositories initialized")

	// Initialize vector store
	var store vectorstore.Store
	if cfg.EnableMocks {
		logger.Info("Using in-memory vector store")
		store = vectorstore.NewMemoryStore()
	} else {
		store, err = vectorstore.NewWeaviateStore(cfg.WeaviateCfg)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("setup vector store: %w", err)
		}
		logger.Info("Weaviate vector store initialized",
			zap.String("host", cfg.WeaviateCfg.Host),
			zap.String("class", cfg.WeaviateCfg.ClassName),
		)
	}

	// Initialize connectors
	callbackConnector := callback.NewConnector(cfg.CallbackConnectorCfg, logger)

	var llmConnector chat.LLMConnector
	var embedConnector chat.EmbedderConnector
	var asrConnector chat.ASRConnector

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		llmConnector = ollama.NewMockConnector(logger)
		embedConnector = embedder.NewMockConnector(logger)
		asrConnector = asr.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")
		llmConnector = ollama.NewConnector(cfg.OllamaConnectorCfg, logger)
		embedConnector = embedder.NewConnector(cfg.EmbedderConnectorCfg, logger)
		asrConnector = asr.NewConnector(cfg.ASRConnectorCfg, logger)
	}

	// Initialize validators
	fileValidator := validator.NewFileValidator(cfg.FileUploadCfg)
	logger.Info("Validators initialized")

	// Initialize use cases
	chatUC := chat.NewUsecase(
		sessionRepo,
		messageRepo,
		store,
		fileValidator,
		llmConnector,
		embedConnector,
		asrConnector,
		cfg.ChatCfg,
		logger,
	)

	indexingUC := indexing.NewUsecase(
		documentRepo,
		store,
		embedConnector,
		callbackConnector,
		cfg.IngestCfg,
		logger,
	)
	logger.Info("Use cases initialized")

	// Load the existing index or build it from the docs directory
	if err := indexingUC.Sync(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sync index: %w", err)
	}

	return &core{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		fileValidator: fileValidator,
		chatUC:        chatUC,
		indexingUC:    indexingUC,
	}, nil
}

// Bench bundles the components used by the benchmark binary
type Bench struct {
	ChatUC *chat.ChatUsecase
	Cfg    *config.Config
	Logger *zap.Logger

	db *pgxpool.Pool
}

// BuildBench builds the application core for the model benchmark binary
func BuildBench() (*Bench, error) {
	deps, err := buildCore(context.Background())
	if err != nil {
		return nil, err
	}

	return &Bench{
		ChatUC: deps.chatUC,
		Cfg:    deps.cfg,
		Logger: deps.logger,
		db:     deps.db,
	}, nil
}

// Close releases the benchmark resources
func (b *Bench) Close() {
	if b.db != nil {
		b.db.Close()
	}
}
