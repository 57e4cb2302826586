package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/pkg/logger"
	"github.com/futig/formchat-backend/internal/telegram/keyboard"
	"github.com/futig/formchat-backend/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CommandHandler handles slash commands
type CommandHandler struct {
	BaseHandler
	api       API
	usecase   ConversationUsecase
	validator DocumentValidator
	prefs     LanguagePreferences
	keyboard  *keyboard.Builder
	logger    *zap.Logger
}

func NewCommandHandler(
	api API,
	usecase ConversationUsecase,
	validator DocumentValidator,
	prefs LanguagePreferences,
	kb *keyboard.Builder,
	logger *zap.Logger,
) *CommandHandler {
	return &CommandHandler{
		BaseHandler: BaseHandler{
			kind:          KindCommand,
			messageSender: NewMessageSender(api, logger),
		},
		api:       api,
		usecase:   usecase,
		validator: validator,
		prefs:     prefs,
		keyboard:  kb,
		logger:    logger,
	}
}

func (h *CommandHandler) Handle(ctx context.Context, msg *Message) error {
	ctxzap.Info(ctx, "command received",
		zap.String("command", msg.Command),
		zap.Int64("user_id", msg.UserID),
	)

	switch msg.Command {
	case "start":
		h.sendMessage(msg.ChatID, render.MsgWelcome, nil)
	case "help":
		h.sendMessage(msg.ChatID, render.MsgHelp, nil)
	case "language":
		h.handleLanguage(logger.WithAction(ctx, "SetLanguage"), msg)
	case "rephrase":
		rephrase(logger.WithAction(ctx, "Rephrase"), &h.BaseHandler, h.api, h.usecase, msg.ChatID, h.logger)
	case "status":
		h.handleStatus(ctx, msg)
	default:
		h.sendMessage(msg.ChatID, render.ErrUnknownCommand, nil)
	}
	return nil
}

func (h *CommandHandler) handleLanguage(ctx context.Context, msg *Message) {
	language := strings.TrimSpace(msg.CommandArgs)
	if language == "" {
		h.sendMessage(msg.ChatID, render.RenderLanguageCurrent(h.prefs.Language(msg.ChatID)), h.keyboard.LanguageKeyboard())
		return
	}
	setLanguage(ctx, &h.BaseHandler, h.validator, h.prefs, msg.ChatID, language)
}

func (h *CommandHandler) handleStatus(ctx context.Context, msg *Message) {
	snapshot, err := h.usecase.Snapshot(SessionID(msg.ChatID))
	if errors.Is(err, entity.ErrSessionNotFound) {
		h.sendMessage(msg.ChatID, render.MsgStatusIdle, nil)
		return
	}
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return
	}
	h.sendMessage(msg.ChatID, render.RenderStatus(snapshot), nil)
}
