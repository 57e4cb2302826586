package telegram

import (
	"context"
	"fmt"

	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/telegram/bot"
	"github.com/futig/formchat-backend/internal/telegram/handlers"
	"github.com/futig/formchat-backend/internal/telegram/keyboard"
	"github.com/futig/formchat-backend/internal/telegram/state"
	"go.uber.org/zap"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// Dependencies are the services the bot front-end talks to
type Dependencies struct {
	Conversation handlers.ConversationUsecase
	Artifacts    handlers.ArtifactStore
	Validator    handlers.DocumentValidator
	MaxFileSize  int64
}

// NewBot initializes the telegram bot with all dependencies
func NewBot(cfg *config.TelegramConfig, deps Dependencies, logger *zap.Logger) (Bot, error) {
	b, err := bot.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	prefs := state.NewPreferences(cfg.PreferenceTTL, cfg.DefaultLanguage)
	registerHandlers(b, deps, prefs, logger)

	logger.Info("telegram bot initialized successfully")

	return b, nil
}

func registerHandlers(b *bot.Bot, deps Dependencies, prefs *state.Preferences, logger *zap.Logger) {
	api := b.GetAPI()
	kb := keyboard.NewBuilder()

	b.RegisterHandler(handlers.NewCommandHandler(api, deps.Conversation, deps.Validator, prefs, kb, logger))
	b.RegisterHandler(handlers.NewDocumentHandler(api, deps.Conversation, deps.Validator, prefs, kb, deps.MaxFileSize, logger))
	b.RegisterHandler(handlers.NewTextHandler(api, deps.Conversation, deps.Artifacts, kb, logger))
	b.RegisterHandler(handlers.NewCallbackHandler(api, deps.Conversation, deps.Validator, prefs, logger))

	logger.Info("telegram handlers registered",
		zap.Int("handler_count", 4),
	)
}
