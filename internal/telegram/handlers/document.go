package handlers

import (
	"context"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/pkg/logger"
	"github.com/futig/formchat-backend/internal/telegram/keyboard"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// DocumentHandler starts a questionnaire from a sent .txt or .pdf document
type DocumentHandler struct {
	BaseHandler
	api        API
	usecase    ConversationUsecase
	validator  DocumentValidator
	prefs      LanguagePreferences
	keyboard   *keyboard.Builder
	downloader *fileDownloader
	logger     *zap.Logger
}

func NewDocumentHandler(
	api API,
	usecase ConversationUsecase,
	validator DocumentValidator,
	prefs LanguagePreferences,
	kb *keyboard.Builder,
	maxFileSize int64,
	logger *zap.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler: BaseHandler{
			kind:          KindDocument,
			messageSender: NewMessageSender(api, logger),
		},
		api:        api,
		usecase:    usecase,
		validator:  validator,
		prefs:      prefs,
		keyboard:   kb,
		downloader: newFileDownloader(api, maxFileSize),
		logger:     logger,
	}
}

func (h *DocumentHandler) Handle(ctx context.Context, msg *Message) error {
	ctx = logger.WithAction(ctx, "IngestDocument")
	doc := msg.Document

	if err := h.validator.ValidateDocument(doc.FileName, int64(doc.FileSize)); err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	typing := NewTypingNotifier(h.api, msg.ChatID, h.logger)
	typing.Start(ctx)
	defer typing.Stop()

	content, err := h.downloader.Download(ctx, doc.FileID)
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	language := h.prefs.Language(msg.ChatID)
	question, err := h.usecase.Ingest(ctx, SessionID(msg.ChatID), &entity.Document{
		Name:        doc.FileName,
		ContentType: doc.MimeType,
		Content:     content,
	}, language)
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	ctxzap.Info(ctx, "questionnaire started from telegram document",
		zap.Int64("chat_id", msg.ChatID),
		zap.String("file", doc.FileName),
		zap.String("language", language),
	)

	h.sendMessage(msg.ChatID, question, h.keyboard.QuestionKeyboard())
	return nil
}
