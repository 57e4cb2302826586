package formatter

import (
	"fmt"

	"github.com/futig/formchat-backend/internal/entity"
)

const baseTitle = "Questions and answers"

// Formatter renders the question/answer pairs of a finished batch
type Formatter interface {
	Format(records []entity.QuestionRecord) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.TranscriptFormat) (Formatter, error) {
	switch format {
	case entity.FormatText, "":
		return NewTextFormatter(), nil
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
