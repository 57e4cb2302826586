package extractor

import (
	"context"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/pkg/pdfform"
)

type LLMConnector interface {
	Complete(ctx context.Context, messages []entity.ChatMessage) (string, error)
}

type PDFReader interface {
	ReadFields(content []byte) ([]pdfform.Field, error)
	ExtractText(content []byte) (string, error)
}
