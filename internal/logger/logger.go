package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/internal/config"
	"github.com/jwebster45206/campaign-engine/pkg/queue"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	return SetupWriter(os.Stdout, cfg.Environment, cfg.LogLevel)
}

// SetupWriter builds a logger writing to w and installs it as the default.
// Production gets JSON, anything else text.
func SetupWriter(w io.Writer, environment string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithCampaign adds the campaign id to the logger context
func WithCampaign(logger *slog.Logger, id uuid.UUID) *slog.Logger {
	return logger.With("campaign_id", id.String())
}

// WithRequest adds the request id, type and campaign to the logger context
func WithRequest(logger *slog.Logger, req *queue.Request) *slog.Logger {
	return WithCampaign(logger, req.CampaignID).With("request_id", req.RequestID, "type", req.Type)
}
