package render

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/futig/formchat-backend/internal/entity"
)

const (
	MsgWelcome = `👋 Hi! Send me a questionnaire as a .txt or .pdf file and I will walk you through it one question at a time.

When every question is answered you get the filled form (or a transcript) back as a file.

Use /language <name> to pick the language I ask in, /help for the full list of commands.`

	MsgHelp = `🤖 Commands:

/start - Show the welcome message
/help - Show this help
/language <name> - Set the language for questions, e.g. /language german
/rephrase - Explain the current question in other words
/status - Show progress of the current questionnaire

Send a .txt or .pdf document to start a new questionnaire. Any batch in progress is discarded.
Outside a questionnaire I simply chat with you.`

	MsgLanguageSet     = `🌐 Language set to %s. It applies to the next document you send.`
	MsgLanguageCurrent = `🌐 Current language: %s. Pick another one or use /language <name>.`
	MsgDocumentFailed  = `❌ Could not read questions from %s.`
	MsgStatusIdle      = `💬 No questionnaire in progress. Send a document to start one.`
	MsgStatusAsking    = `📝 Question %d of %d (%s).`
	MsgArtifactCaption = `📎 Your answers`

	ErrGeneric            = `❌ Something went wrong. Please try again or use /start`
	ErrUnknownCommand     = `❌ Unknown command. Use /help`
	ErrNoActiveQuestion   = `❌ There is no question to rephrase right now.`
	ErrEmptyMessage       = `❌ Please type an answer.`
	ErrEmptyDocument      = `❌ I found no questions in that document.`
	ErrInvalidFile        = `❌ Only non-empty .txt and .pdf files are supported.`
	ErrFileTooLarge       = `❌ The file is too large.`
	ErrInvalidLanguage    = `❌ That does not look like a language name.`
	ErrPopulation         = `❌ Your answers could not be written into the form. Send any message to try again.`
	ErrNetworkIssue       = `❌ Connection problem. Try again a bit later.`
	ErrServiceUnavailable = `❌ The language model is unavailable right now. Try again in a few minutes.`
	ErrTimeout            = `❌ That took too long. Please try again.`
	ErrRateLimited        = `⚠️ Too many messages. Please wait a little.`
)

// RenderStatus formats a session snapshot for the /status command
func RenderStatus(snapshot *entity.SessionSnapshot) string {
	if snapshot == nil || snapshot.Mode != entity.ModeAsking {
		return MsgStatusIdle
	}

	current := snapshot.Cursor
	if current < 1 {
		current = 1
	}
	return fmt.Sprintf(MsgStatusAsking, current, snapshot.TotalQuestions, snapshot.DisplayLanguage)
}

// RenderLanguageSet confirms a language change
func RenderLanguageSet(language string) string {
	return fmt.Sprintf(MsgLanguageSet, language)
}

// RenderLanguageCurrent shows the chat language
func RenderLanguageCurrent(language string) string {
	return fmt.Sprintf(MsgLanguageCurrent, language)
}

// EscapeMarkdown escapes special markdown characters
func EscapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"`", "\\`",
	)
	return replacer.Replace(text)
}

// ClassifyError maps an error to a user-facing message
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ErrGeneric
	case errors.Is(err, entity.ErrNoActiveQuestion):
		return ErrNoActiveQuestion
	case errors.Is(err, entity.ErrEmptyMessage):
		return ErrEmptyMessage
	case errors.Is(err, entity.ErrEmptyDocument):
		return ErrEmptyDocument
	case errors.Is(err, entity.ErrInvalidExtension), errors.Is(err, entity.ErrInvalidFile):
		return ErrInvalidFile
	case errors.Is(err, entity.ErrFileTooLarge):
		return ErrFileTooLarge
	case errors.Is(err, entity.ErrInvalidParameter), errors.Is(err, entity.ErrInvalidFormat):
		return ErrInvalidLanguage
	case errors.Is(err, entity.ErrPopulation):
		return ErrPopulation
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTimeout
	case errors.Is(err, entity.ErrGateway):
		return ErrServiceUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetworkIssue
	}

	return ErrGeneric
}
