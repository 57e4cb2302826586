package handlers

import (
	"context"

	"github.com/futig/formchat-backend/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the part of *tgbotapi.BotAPI the handlers use
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// ConversationUsecase drives the question-answer dialogue of a chat
type ConversationUsecase interface {
	Ingest(ctx context.Context, sessionID string, doc *entity.Document, displayLanguage string) (string, error)
	SubmitTurn(ctx context.Context, sessionID, text, declaredLanguage string) (*entity.TurnReply, error)
	RephraseCurrent(ctx context.Context, sessionID string) (string, error)
	Snapshot(sessionID string) (*entity.SessionSnapshot, error)
}

type ArtifactStore interface {
	Open(handle string) (*entity.Artifact, []byte, error)
}

type DocumentValidator interface {
	ValidateDocument(name string, size int64) error
	ValidateLanguage(language string) error
}

// LanguagePreferences stores the language each chat is asked in
type LanguagePreferences interface {
	Language(chatID int64) string
	SetLanguage(chatID int64, language string)
}
