package middleware

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Sender delivers notices to the user, *tgbotapi.BotAPI satisfies it
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// updateChat returns the user and chat an update comes from
func updateChat(update tgbotapi.Update) (userID, chatID int64, ok bool) {
	switch {
	case update.Message != nil:
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		return userID, update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.From.ID, update.CallbackQuery.Message.Chat.ID, true
	}
	return 0, 0, false
}
