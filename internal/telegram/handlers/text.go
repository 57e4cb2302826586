package handlers

import (
	"context"
	"path"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/pkg/logger"
	"github.com/futig/formchat-backend/internal/telegram/keyboard"
	"github.com/futig/formchat-backend/internal/telegram/render"
	"go.uber.org/zap"
)

// TextHandler submits plain messages as chat turns or answers
type TextHandler struct {
	BaseHandler
	api       API
	usecase   ConversationUsecase
	artifacts ArtifactStore
	keyboard  *keyboard.Builder
	logger    *zap.Logger
}

func NewTextHandler(
	api API,
	usecase ConversationUsecase,
	artifacts ArtifactStore,
	kb *keyboard.Builder,
	logger *zap.Logger,
) *TextHandler {
	return &TextHandler{
		BaseHandler: BaseHandler{
			kind:          KindText,
			messageSender: NewMessageSender(api, logger),
		},
		api:       api,
		usecase:   usecase,
		artifacts: artifacts,
		keyboard:  kb,
		logger:    logger,
	}
}

func (h *TextHandler) Handle(ctx context.Context, msg *Message) error {
	ctx = logger.WithAction(ctx, "SubmitTurn")

	typing := NewTypingNotifier(h.api, msg.ChatID, h.logger)
	typing.Start(ctx)
	reply, err := h.usecase.SubmitTurn(ctx, SessionID(msg.ChatID), msg.Text, "")
	typing.Stop()
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	if !reply.Completed {
		var markup interface{}
		if reply.Mode == entity.ModeAsking {
			markup = h.keyboard.QuestionKeyboard()
		}
		h.sendMessage(msg.ChatID, reply.Reply, markup)
		return nil
	}

	if err := h.messageSender.SendCritical(ctx, msg.ChatID, reply.Reply, nil); err != nil {
		return err
	}
	return h.deliverArtifact(ctx, msg.ChatID, path.Base(reply.DownloadLink))
}

// deliverArtifact sends the finalized file, which is the point of the whole dialogue
func (h *TextHandler) deliverArtifact(ctx context.Context, chatID int64, handle string) error {
	_, data, err := h.artifacts.Open(handle)
	if err != nil {
		h.HandleError(ctx, chatID, err)
		return nil
	}

	return h.messageSender.SendDocument(ctx, chatID, handle, data, render.MsgArtifactCaption)
}
