package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update kinds a handler can be registered for
const (
	KindCommand  = "COMMAND"
	KindDocument = "DOCUMENT"
	KindText     = "TEXT"
	KindCallback = "CALLBACK"
)

// Message represents a normalized Telegram message
type Message struct {
	ChatID       int64
	UserID       int64
	MessageID    int
	Text         string
	Command      string
	CommandArgs  string
	Document     *tgbotapi.Document
	CallbackData string
	CallbackID   string
}

// Handler processes one kind of update
type Handler interface {
	Handle(ctx context.Context, msg *Message) error

	// Kind returns the update kind this handler serves
	Kind() string
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	kind          string
	messageSender *MessageSender
}

// Kind implements Handler
func (h *BaseHandler) Kind() string {
	return h.kind
}

// sendMessage is a convenience wrapper for messageSender.Send
func (h *BaseHandler) sendMessage(chatID int64, text string, markup interface{}) {
	if h.messageSender != nil {
		h.messageSender.Send(chatID, text, markup)
	}
}

// SessionID is the conversation session a chat talks to
func SessionID(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}
