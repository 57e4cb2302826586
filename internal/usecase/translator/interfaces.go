package translator

import (
	"context"

	"github.com/futig/formchat-backend/internal/entity"
)

type LLMConnector interface {
	Complete(ctx context.Context, messages []entity.ChatMessage) (string, error)
}
