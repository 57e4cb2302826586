package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/telegram/handlers"
	"github.com/futig/formchat-backend/internal/telegram/middleware"
	"github.com/futig/formchat-backend/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Bot represents the Telegram bot
type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         *config.TelegramConfig
	handlers    map[string]handlers.Handler
	logger      *zap.Logger
	loggingMW   *middleware.LoggingMiddleware
	recoveryMW  *middleware.RecoveryMiddleware
	rateLimitMW *middleware.RateLimiterMiddleware
	updatesChan tgbotapi.UpdatesChannel
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// New authorizes the bot token and sets up the middleware chain
func New(cfg *config.TelegramConfig, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	return &Bot{
		api:         api,
		cfg:         cfg,
		handlers:    make(map[string]handlers.Handler),
		logger:      logger,
		loggingMW:   middleware.NewLoggingMiddleware(logger),
		recoveryMW:  middleware.NewRecoveryMiddleware(logger, api),
		rateLimitMW: middleware.NewRateLimiterMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger, api),
		stopChan:    make(chan struct{}),
	}, nil
}

// GetAPI returns the underlying Telegram API client
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}

// RegisterHandler routes updates of the handler's kind to it
func (b *Bot) RegisterHandler(h handlers.Handler) {
	b.handlers[h.Kind()] = h
}

// Start starts receiving updates
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	b.updatesChan = b.api.GetUpdatesChan(u)

	ctx = ctxzap.ToContext(ctx, b.logger)
	go b.processUpdates(ctx)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops the bot gracefully, waiting for running handlers up to the shutdown timeout
func (b *Bot) Stop() error {
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

func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdateWithMiddleware(ctx, u)
			}(update)
		}
	}
}

// handleUpdateWithMiddleware runs rate limiting, then logging, then recovery
func (b *Bot) handleUpdateWithMiddleware(ctx context.Context, update tgbotapi.Update) {
	b.rateLimitMW.Handle(update, func(u tgbotapi.Update) {
		b.loggingMW.Handle(u, func(u2 tgbotapi.Update) {
			b.recoveryMW.Handle(u2, func(u3 tgbotapi.Update) {
				b.handleUpdate(ctx, u3)
			})
		})
	})
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	kind, msg := normalize(update)
	if msg == nil {
		return
	}

	handler, exists := b.handlers[kind]
	if !exists {
		ctxzap.Warn(ctx, "no handler for update kind",
			zap.String("kind", kind),
			zap.Int64("chat_id", msg.ChatID),
		)
		b.sendMessage(msg.ChatID, render.MsgHelp)
		return
	}

	if err := handler.Handle(ctx, msg); err != nil {
		ctxzap.Error(ctx, "handler error",
			zap.Error(err),
			zap.String("kind", kind),
			zap.Int64("chat_id", msg.ChatID),
		)
		b.sendMessage(msg.ChatID, render.ErrGeneric)
	}
}

// normalize picks the handler kind of an update and flattens it into a Message
func normalize(update tgbotapi.Update) (string, *handlers.Message) {
	if q := update.CallbackQuery; q != nil {
		if q.Message == nil {
			return "", nil
		}
		return handlers.KindCallback, &handlers.Message{
			ChatID:       q.Message.Chat.ID,
			UserID:       q.From.ID,
			MessageID:    q.Message.MessageID,
			CallbackData: q.Data,
			CallbackID:   q.ID,
		}
	}

	m := update.Message
	if m == nil {
		return "", nil
	}

	msg := &handlers.Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
		Document:  m.Document,
	}
	if m.From != nil {
		msg.UserID = m.From.ID
	}

	switch {
	case m.IsCommand():
		msg.Command = m.Command()
		msg.CommandArgs = m.CommandArguments()
		return handlers.KindCommand, msg
	case m.Document != nil:
		return handlers.KindDocument, msg
	case m.Text != "":
		return handlers.KindText, msg
	default:
		// photos, stickers, voice and the like
		return "", msg
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}
