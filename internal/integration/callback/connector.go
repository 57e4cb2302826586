package callback

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/integration/common"
	pkghttp "github.com/futig/formchat-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Connector struct {
	config    config.CallbackConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.CallbackConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector("callback", cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// SendFinalResult notifies the configured endpoint that a batch was finalized.
// Delivery failures are logged and never reach the caller.
func (c *Connector) SendFinalResult(ctx context.Context, data *entity.CallbackFinalResultData) {
	if c.config.CallbackEndpoint == "" {
		return
	}

	err := c.Send(ctx, c.config.CallbackEndpoint, &entity.CallbackEvent{
		Event: entity.CallbackEventTypeFinalResult,
		Data:  data,
	})
	if err != nil {
		ctxzap.Error(ctx, "failed to send final result callback", zap.Error(err))
	}
}

func (c *Connector) Send(ctx context.Context, callbackURL string, event *entity.CallbackEvent) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	ctxzap.Debug(ctx, "sending callback event",
		zap.String("event_type", string(event.Event)),
		zap.String("callback_url", callbackURL),
		zap.String("timestamp", event.Timestamp),
	)

	err := c.connector.DoRequest(ctx, http.MethodPost, "", event, nil, pkghttp.WithURL(callbackURL))
	if err != nil {
		return fmt.Errorf("failed to send callback, event_type: %s, url: %s, error: %w", string(event.Event), callbackURL, err)
	}

	ctxzap.Info(ctx, "callback sent successfully",
		zap.String("event_type", string(event.Event)),
		zap.String("callback_url", callbackURL),
	)
	return nil
}
