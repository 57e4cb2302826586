package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	toTargetPrompt = "Translate the following text into %s and only the target language. " +
		"Do not include any extra text or explanations. Only translate the text provided. " +
		"Do not translate names, numerical values, or locations. Text: %s"

	toPivotPrompt = "Translate the following text into %s. If the text is already in %s " +
		"or does not require translation (e.g., names, numbers, locations), return the original text. " +
		"DO NOT INCLUDE ANY EXTRA CONTEXT. Text: %s"
)

// Translator converts text between the pivot language and a display language.
// Translations into or out of the pivot are the identity and cost no gateway call.
type Translator struct {
	llm   LLMConnector
	pivot string
}

func NewTranslator(llm LLMConnector, pivot string) *Translator {
	return &Translator{
		llm:   llm,
		pivot: strings.TrimSpace(pivot),
	}
}

// Pivot returns the configured pivot language
func (t *Translator) Pivot() string {
	return t.pivot
}

// IsPivot reports whether language names the pivot. An empty language counts as the pivot.
func (t *Translator) IsPivot(language string) bool {
	language = strings.TrimSpace(language)
	return language == "" || strings.EqualFold(language, t.pivot)
}

// ToTarget renders pivot-language text in the given language
func (t *Translator) ToTarget(ctx context.Context, text, language string) (string, error) {
	if t.IsPivot(language) {
		return text, nil
	}

	ctxzap.Debug(ctx, "translating to target language", zap.String("language", language))
	return t.complete(ctx, fmt.Sprintf(toTargetPrompt, strings.TrimSpace(language), text))
}

// ToPivot renders text written in the given language in the pivot language
func (t *Translator) ToPivot(ctx context.Context, text, language string) (string, error) {
	if t.IsPivot(language) {
		return text, nil
	}

	ctxzap.Debug(ctx, "translating to pivot language", zap.String("language", language))
	return t.complete(ctx, fmt.Sprintf(toPivotPrompt, capitalize(t.pivot), capitalize(t.pivot), text))
}

func (t *Translator) complete(ctx context.Context, prompt string) (string, error) {
	out, err := t.llm.Complete(ctx, []entity.ChatMessage{{Role: entity.RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return out, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
