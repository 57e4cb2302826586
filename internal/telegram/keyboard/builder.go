package keyboard

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// languages offered by the picker, /language accepts any name
var suggestedLanguages = []string{"english", "german", "french", "spanish", "russian", "italian"}

// Builder creates inline keyboards
type Builder struct{}

// NewBuilder creates a keyboard builder
func NewBuilder() *Builder {
	return &Builder{}
}

// QuestionKeyboard is attached to every question
func (b *Builder) QuestionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💡 Explain differently", EncodeCallback(ActionRephrase, "")),
		),
	)
}

// LanguageKeyboard lists the suggested languages, two per row
func (b *Builder) LanguageKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i := 0; i < len(suggestedLanguages); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{}
		for _, lang := range suggestedLanguages[i:min(i+2, len(suggestedLanguages))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(title(lang), EncodeCallback(ActionLanguage, lang)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
