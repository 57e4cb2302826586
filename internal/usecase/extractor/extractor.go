package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const extractQuestionsPrompt = "Extract only the questions from the following application form text. " +
	"Assume that questions are lines starting with a pattern like 'Q1', 'Q2', etc. " +
	"Return a JSON array containing just the question strings. Do not include any additional text. Text: %s"

// enumeratedLine matches "Q1 | Name", "Q2: Age", "3. City" and "4) Phone"
var enumeratedLine = regexp.MustCompile(`(?i)^\s*(?:q\s*(\d+)\b|(\d+)\s*[.)])\s*[|:.)\-]?\s*\S`)

// Extractor derives the ordered question list of a document
type Extractor struct {
	llm LLMConnector
	pdf PDFReader
}

func NewExtractor(llm LLMConnector, pdf PDFReader) *Extractor {
	return &Extractor{
		llm: llm,
		pdf: pdf,
	}
}

// Extract returns the document's questions as identifier -> seed answer pairs.
// Fillable form fields win over text; identifiers are trimmed, non-empty and unique.
// An empty result is not an error here.
func (e *Extractor) Extract(ctx context.Context, doc *entity.Document) (*entity.Extraction, error) {
	if !doc.IsPDF() {
		fields := fromLines(plainText(doc.Content))
		ctxzap.Info(ctx, "questions extracted from text document", zap.Int("count", len(fields)))
		return &entity.Extraction{Fields: fields}, nil
	}

	formFields, err := e.pdf.ReadFields(doc.Content)
	if err != nil {
		ctxzap.Debug(ctx, "document has no readable form", zap.Error(err))
	}

	if len(formFields) > 0 {
		fields := make([]entity.FormField, 0, len(formFields))
		for _, f := range formFields {
			fields = append(fields, entity.FormField{ID: f.Name, Value: f.Value})
		}
		fields = orderByOrdinal(dedupe(fields))
		ctxzap.Info(ctx, "questions extracted from form fields", zap.Int("count", len(fields)))
		return &entity.Extraction{Fields: fields, Fillable: true}, nil
	}

	text, err := e.pdf.ExtractText(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrEmptyDocument, err)
	}

	fields, err := e.fromPDFText(ctx, text)
	if err != nil {
		return nil, err
	}
	return &entity.Extraction{Fields: fields}, nil
}

func (e *Extractor) fromPDFText(ctx context.Context, text string) ([]entity.FormField, error) {
	matched, reliable := matchEnumerated(text)
	if reliable {
		ctxzap.Info(ctx, "questions matched by enumeration", zap.Int("count", len(matched)))
		return matched, nil
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	reply, err := e.llm.Complete(ctx, []entity.ChatMessage{
		{Role: entity.RoleUser, Content: fmt.Sprintf(extractQuestionsPrompt, text)},
	})
	if err != nil {
		return nil, fmt.Errorf("extract questions: %w", err)
	}

	questions, err := parseQuestionList(reply)
	if err != nil || len(questions) == 0 {
		ctxzap.Warn(ctx, "unusable question list from LLM, using enumerated lines",
			zap.Error(err),
			zap.Int("matched", len(matched)),
		)
		return matched, nil
	}

	fields := make([]entity.FormField, 0, len(questions))
	for _, q := range questions {
		fields = append(fields, entity.FormField{ID: q})
	}
	fields = dedupe(fields)
	ctxzap.Info(ctx, "questions extracted by LLM", zap.Int("count", len(fields)))

	return fields, nil
}

// matchEnumerated collects the enumerated lines of text. The match is reliable
// when the ordinals run 1, 2, ... k without gaps.
func matchEnumerated(text string) ([]entity.FormField, bool) {
	var fields []entity.FormField
	reliable := true
	for _, line := range strings.Split(text, "\n") {
		m := enumeratedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n != len(fields)+1 {
			reliable = false
		}
		fields = append(fields, entity.FormField{ID: strings.TrimSpace(line)})
	}

	fields = dedupe(fields)
	return fields, reliable && len(fields) > 0
}

// parseQuestionList reads a JSON array of strings, tolerating code fences and
// prose around the array
func parseQuestionList(reply string) ([]string, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var questions []string
	if err := json.Unmarshal([]byte(reply[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("decode question list: %w", err)
	}

	return questions, nil
}

func plainText(content []byte) string {
	text := strings.ToValidUTF8(string(content), "\uFFFD")
	return strings.TrimPrefix(text, "\uFEFF")
}

func fromLines(text string) []entity.FormField {
	var fields []entity.FormField
	for _, line := range strings.Split(text, "\n") {
		fields = append(fields, entity.FormField{ID: line})
	}
	return dedupe(fields)
}

// dedupe trims identifiers and drops blanks and repeats, keeping first occurrences
func dedupe(fields []entity.FormField) []entity.FormField {
	out := make([]entity.FormField, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f.ID = strings.TrimSpace(f.ID)
		if f.ID == "" || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		out = append(out, f)
	}
	return out
}
