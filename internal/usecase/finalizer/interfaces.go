package finalizer

import (
	"io"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/pkg/formatter"
	"github.com/futig/formchat-backend/internal/pkg/pdfform"
)

type FormFiller interface {
	ReadFields(content []byte) ([]pdfform.Field, error)
	Fill(content []byte, values map[string]string, w io.Writer) error
}

type FormatterFactory interface {
	Create(format entity.TranscriptFormat) (formatter.Formatter, error)
}
