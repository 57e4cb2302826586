package conversation

import (
	"context"

	"github.com/futig/formchat-backend/internal/entity"
)

type LLMConnector interface {
	Complete(ctx context.Context, messages []entity.ChatMessage) (string, error)
}

type Extractor interface {
	Extract(ctx context.Context, doc *entity.Document) (*entity.Extraction, error)
}

type Translator interface {
	Pivot() string
	ToTarget(ctx context.Context, text, language string) (string, error)
	ToPivot(ctx context.Context, text, language string) (string, error)
}

type Finalizer interface {
	Finalize(ctx context.Context, records []entity.QuestionRecord, source *entity.SourceForm) (*entity.Artifact, error)
}

// CallbackConnector is called after the session lock is released
type CallbackConnector interface {
	SendFinalResult(ctx context.Context, data *entity.CallbackFinalResultData)
}
