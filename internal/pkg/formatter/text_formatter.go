package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/formchat-backend/internal/entity"
)

const (
	textContentType   = "text/plain; charset=utf-8"
	textFileExtension = ".txt"
)

// TextFormatter writes the flat "Q<i>: / A<i>:" transcript
type TextFormatter struct{}

func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

func (tf *TextFormatter) Format(records []entity.QuestionRecord) ([]byte, error) {
	var buf bytes.Buffer
	for i, r := range records {
		fmt.Fprintf(&buf, "Q%d: %s\nA%d: %s\n\n", i+1, r.ID, i+1, r.Answer)
	}
	return buf.Bytes(), nil
}

func (tf *TextFormatter) ContentType() string {
	return textContentType
}

func (tf *TextFormatter) FileExtension() string {
	return textFileExtension
}
