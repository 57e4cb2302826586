package handlers

import (
	"context"
	"errors"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
)

// String returns string representation of error severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// HandlerError represents a structured error with user message and logging info
type HandlerError struct {
	Err         error
	UserMessage string
	Severity    ErrorSeverity
}

// userErrors are caused by what the user sent, not by a failing dependency
var userErrors = []error{
	entity.ErrEmptyDocument,
	entity.ErrEmptyMessage,
	entity.ErrNoActiveQuestion,
	entity.ErrInvalidExtension,
	entity.ErrInvalidFile,
	entity.ErrFileTooLarge,
	entity.ErrInvalidFormat,
	entity.ErrInvalidParameter,
}

func classifyHandlerError(err error) *HandlerError {
	handlerErr := &HandlerError{
		Err:         err,
		UserMessage: render.ClassifyError(err),
		Severity:    SeverityError,
	}

	for _, target := range userErrors {
		if errors.Is(err, target) {
			handlerErr.Severity = SeverityWarning
			break
		}
	}

	return handlerErr
}

// HandleError logs err with a matching severity and tells the user what went wrong
func (h *BaseHandler) HandleError(ctx context.Context, chatID int64, err error) {
	if err == nil {
		return
	}

	handlerErr := classifyHandlerError(err)

	switch handlerErr.Severity {
	case SeverityWarning:
		ctxzap.Warn(ctx, "request rejected",
			zap.Error(handlerErr.Err),
			zap.Int64("chat_id", chatID),
		)
	default:
		ctxzap.Error(ctx, "handler error",
			zap.Error(handlerErr.Err),
			zap.Int64("chat_id", chatID),
		)
	}

	h.sendMessage(chatID, handlerErr.UserMessage, nil)
}
