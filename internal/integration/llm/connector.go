package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/integration/common"
	pkghttp "github.com/futig/formchat-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Connector struct {
	config    config.LLMConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.LLMConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector("llm", cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Complete sends the messages to the chat completion endpoint and returns
// the content of the first choice. Every failure is reported as entity.ErrGateway.
func (c *Connector) Complete(ctx context.Context, messages []entity.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.CompletionTimeout)
	defer cancel()

	req := &entity.LLMCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Stream:      false,
	}

	ctxzap.Debug(ctx, "requesting chat completion",
		zap.String("model", c.config.Model),
		zap.Int("message_count", len(messages)),
	)

	var resp entity.LLMCompletionResponse
	err := c.connector.DoRequest(ctx, http.MethodPost, c.config.CompletionEndpoint, req, &resp)
	if err != nil {
		return "", fmt.Errorf("%w: %w", entity.ErrGateway, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion response has no choices", entity.ErrGateway)
	}

	content := resp.Choices[0].Message.Content
	ctxzap.Debug(ctx, "chat completion received",
		zap.Int("content_length", len(content)),
		zap.String("finish_reason", resp.Choices[0].FinishReason),
	)

	return content, nil
}
