package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/futig/formchat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// textMarker separates instructions from the payload in every prompt built by this service
const textMarker = "Text:"

// MockConnector answers completions locally and deterministically.
// Translation prompts echo the payload, extraction prompts return the payload
// lines as a JSON array, anything else gets a canned reply.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Complete(ctx context.Context, messages []entity.ChatMessage) (string, error) {
	prompt := lastUserContent(messages)
	ctxzap.Info(ctx, "[MOCK] chat completion", zap.Int("message_count", len(messages)))

	switch {
	case strings.HasPrefix(prompt, "Translate the following text"):
		return payload(prompt), nil
	case strings.HasPrefix(prompt, "Extract only the questions"):
		var questions []string
		for _, line := range strings.Split(payload(prompt), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				questions = append(questions, line)
			}
		}
		if questions == nil {
			questions = []string{}
		}
		out, err := json.Marshal(questions)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case strings.HasPrefix(prompt, "Rephrase"):
		return "In other words: " + payload(prompt), nil
	case prompt == "":
		return "Hello! Upload a form to start answering its questions.", nil
	default:
		return "You said: " + prompt, nil
	}
}

func payload(prompt string) string {
	idx := strings.Index(prompt, textMarker)
	if idx < 0 {
		return prompt
	}
	return strings.TrimSpace(prompt[idx+len(textMarker):])
}

func lastUserContent(messages []entity.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == entity.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
