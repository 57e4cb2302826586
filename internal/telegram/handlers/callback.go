package handlers

import (
	"context"

	"github.com/futig/formchat-backend/internal/pkg/logger"
	"github.com/futig/formchat-backend/internal/telegram/keyboard"
	"github.com/futig/formchat-backend/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CallbackHandler handles inline keyboard button clicks
type CallbackHandler struct {
	BaseHandler
	api       API
	usecase   ConversationUsecase
	validator DocumentValidator
	prefs     LanguagePreferences
	logger    *zap.Logger
}

func NewCallbackHandler(
	api API,
	usecase ConversationUsecase,
	validator DocumentValidator,
	prefs LanguagePreferences,
	logger *zap.Logger,
) *CallbackHandler {
	return &CallbackHandler{
		BaseHandler: BaseHandler{
			kind:          KindCallback,
			messageSender: NewMessageSender(api, logger),
		},
		api:       api,
		usecase:   usecase,
		validator: validator,
		prefs:     prefs,
		logger:    logger,
	}
}

func (h *CallbackHandler) Handle(ctx context.Context, msg *Message) error {
	// stop the button spinner first
	if _, err := h.api.Request(tgbotapi.NewCallback(msg.CallbackID, "")); err != nil {
		ctxzap.Warn(ctx, "failed to answer callback query", zap.Error(err))
	}

	data, err := keyboard.ParseCallback(msg.CallbackData)
	if err != nil {
		ctxzap.Warn(ctx, "invalid callback data", zap.String("data", msg.CallbackData))
		return nil
	}

	switch data.Action {
	case keyboard.ActionRephrase:
		rephrase(logger.WithAction(ctx, "Rephrase"), &h.BaseHandler, h.api, h.usecase, msg.ChatID, h.logger)
	case keyboard.ActionLanguage:
		setLanguage(ctx, &h.BaseHandler, h.validator, h.prefs, msg.ChatID, data.Value)
	default:
		ctxzap.Warn(ctx, "unknown callback action", zap.String("action", data.Action))
	}
	return nil
}

// rephrase is shared by the button and the /rephrase command
func rephrase(ctx context.Context, h *BaseHandler, api API, usecase ConversationUsecase, chatID int64, log *zap.Logger) {
	typing := NewTypingNotifier(api, chatID, log)
	typing.Start(ctx)
	text, err := usecase.RephraseCurrent(ctx, SessionID(chatID))
	typing.Stop()
	if err != nil {
		h.HandleError(ctx, chatID, err)
		return
	}
	h.sendMessage(chatID, text, nil)
}

func setLanguage(ctx context.Context, h *BaseHandler, v DocumentValidator, prefs LanguagePreferences, chatID int64, language string) {
	if err := v.ValidateLanguage(language); err != nil {
		h.HandleError(ctx, chatID, err)
		return
	}
	prefs.SetLanguage(chatID, language)
	h.sendMessage(chatID, render.RenderLanguageSet(prefs.Language(chatID)), nil)
}
