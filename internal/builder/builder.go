package builder

import (
	"fmt"
	"net/http"
	"time"

	"github.com/futig/formchat-backend/internal/api"
	chatapi "github.com/futig/formchat-backend/internal/api/chat"
	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/integration/callback"
	"github.com/futig/formchat-backend/internal/integration/llm"
	"github.com/futig/formchat-backend/internal/pkg/formatter"
	"github.com/futig/formchat-backend/internal/pkg/pdfform"
	"github.com/futig/formchat-backend/internal/pkg/validator"
	"github.com/futig/formchat-backend/internal/telegram"
	"github.com/futig/formchat-backend/internal/usecase/conversation"
	"github.com/futig/formchat-backend/internal/usecase/extractor"
	"github.com/futig/formchat-backend/internal/usecase/finalizer"
	"github.com/futig/formchat-backend/internal/usecase/translator"
	"go.uber.org/zap"
)

// core holds the services shared by the HTTP server and the Telegram bot
type core struct {
	engine    *conversation.Engine
	artifacts *finalizer.Store
	validator *validator.Validator
}

func Build() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	c, err := buildCore(cfg, logger)
	if err != nil {
		return nil, err
	}

	chatHandler := chatapi.NewHandler(c.engine, c.artifacts, c.validator, cfg.FileUploadCfg)
	logger.Info("API handlers initialized")

	router := api.SetupRouter(chatHandler, cfg.RequestTimeout, logger)
	logger.Info("HTTP router configured")

	// LLM-bound turns can run for minutes, so the write deadline follows the request timeout
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		logger: logger,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot() (telegram.Bot, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building Telegram bot",
		zap.String("environment", cfg.Environment),
	)

	if cfg.TelegramCfg.BotToken == "" {
		return nil, nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required to run the bot")
	}

	c, err := buildCore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	bot, err := telegram.NewBot(&cfg.TelegramCfg, telegram.Dependencies{
		Conversation: c.engine,
		Artifacts:    c.artifacts,
		Validator:    c.validator,
		MaxFileSize:  cfg.FileUploadCfg.MaxFileSize,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	logger.Info("Telegram bot built successfully",
		zap.String("environment", cfg.Environment),
	)

	return bot, logger, nil
}

func buildCore(cfg *config.Config, logger *zap.Logger) (*core, error) {
	callbackConnector := callback.NewConnector(cfg.CallbackConnectorCfg, logger)

	var llmConnector conversation.LLMConnector
	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		llmConnector = llm.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")
		llmConnector = llm.NewConnector(cfg.LLMConnectorCfg, logger)
	}

	pdfReader := pdfform.Reader{}
	trans := translator.NewTranslator(llmConnector, cfg.ConversationCfg.PivotLanguage)
	extr := extractor.NewExtractor(llmConnector, pdfReader)

	store := finalizer.NewStore(cfg.FinalizerCfg.ArtifactTTL, logger)
	fin, err := finalizer.NewFinalizer(cfg.FinalizerCfg, pdfReader, formatter.NewFactory(), store, logger)
	if err != nil {
		return nil, fmt.Errorf("setup finalizer: %w", err)
	}

	sessions := conversation.NewManager(cfg.ConversationCfg.SessionTTL, cfg.ConversationCfg.DefaultSessionID)
	engine := conversation.NewEngine(cfg.ConversationCfg, sessions, extr, trans, llmConnector, fin, callbackConnector, logger)
	logger.Info("Use cases initialized",
		zap.String("pivot_language", cfg.ConversationCfg.PivotLanguage),
		zap.String("transcript_format", cfg.FinalizerCfg.TranscriptFormat),
	)

	return &core{
		engine:    engine,
		artifacts: store,
		validator: validator.NewValidator(cfg.FileUploadCfg),
	}, nil
}
