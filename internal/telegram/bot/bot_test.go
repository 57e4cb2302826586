package bot

import (
	"testing"

	"github.com/futig/formchat-backend/internal/telegram/handlers"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 3,
		From:      &tgbotapi.User{ID: 7},
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      text,
	}
}

func TestNormalize(t *testing.T) {
	t.Run("command with arguments", func(t *testing.T) {
		m := message("/language german")
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 9}}

		kind, msg := normalize(tgbotapi.Update{Message: m})
		assert.Equal(t, handlers.KindCommand, kind)
		require.NotNil(t, msg)
		assert.Equal(t, "language", msg.Command)
		assert.Equal(t, "german", msg.CommandArgs)
		assert.Equal(t, int64(42), msg.ChatID)
		assert.Equal(t, int64(7), msg.UserID)
	})

	t.Run("document", func(t *testing.T) {
		m := message("")
		m.Document = &tgbotapi.Document{FileID: "f1", FileName: "form.pdf"}

		kind, msg := normalize(tgbotapi.Update{Message: m})
		assert.Equal(t, handlers.KindDocument, kind)
		assert.Equal(t, "f1", msg.Document.FileID)
	})

	t.Run("text", func(t *testing.T) {
		kind, msg := normalize(tgbotapi.Update{Message: message("my answer")})
		assert.Equal(t, handlers.KindText, kind)
		assert.Equal(t, "my answer", msg.Text)
	})

	t.Run("callback", func(t *testing.T) {
		kind, msg := normalize(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb1",
			From:    &tgbotapi.User{ID: 7},
			Message: message(""),
			Data:    "rephrase:",
		}})
		assert.Equal(t, handlers.KindCallback, kind)
		assert.Equal(t, "cb1", msg.CallbackID)
		assert.Equal(t, "rephrase:", msg.CallbackData)
	})

	t.Run("unsupported content", func(t *testing.T) {
		kind, msg := normalize(tgbotapi.Update{Message: message("")})
		assert.Empty(t, kind)
		require.NotNil(t, msg)
	})

	t.Run("nothing to handle", func(t *testing.T) {
		_, msg := normalize(tgbotapi.Update{})
		assert.Nil(t, msg)
	})
}
