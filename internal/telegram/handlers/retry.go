package handlers

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type retryPolicy struct {
	attempts uint
	delay    time.Duration
}

var defaultRetryPolicy = retryPolicy{attempts: 3, delay: time.Second}

// sendWithRetry sends c, retrying with backoff. Used for messages the user
// must not lose, such as the finished artifact.
func (s *MessageSender) sendWithRetry(ctx context.Context, chatID int64, c tgbotapi.Chattable) error {
	err := retry.Do(
		func() error {
			_, err := s.api.Send(c)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.retry.attempts),
		retry.Delay(s.retry.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("failed to send message, retrying",
				zap.Error(err),
				zap.Uint("attempt", n+1),
				zap.Uint("max_retries", s.retry.attempts),
				zap.Int64("chat_id", chatID),
			)
		}),
	)
	if err != nil {
		s.logger.Error("failed to send message after all retries",
			zap.Error(err),
			zap.Uint("max_retries", s.retry.attempts),
			zap.Int64("chat_id", chatID),
		)
	}
	return err
}

// SendCritical sends a text message with retries
func (s *MessageSender) SendCritical(ctx context.Context, chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return s.sendWithRetry(ctx, chatID, msg)
}

// SendDocument uploads data as a file named name, with retries
func (s *MessageSender) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	return s.sendWithRetry(ctx, chatID, doc)
}
