package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/gigip2p-bot/internal/jobs"
)

// Warmer refreshes cached quotes.
type Warmer interface {
	Warm(ctx context.Context, symbols []string) int
}

type QuoteWarmupHandler struct {
	warmer Warmer
	log    *slog.Logger
}

func NewQuoteWarmupHandler(warmer Warmer, log *slog.Logger) *QuoteWarmupHandler {
	if log == nil {
		log = slog.Default()
	}
	return &QuoteWarmupHandler{warmer: warmer, log: log}
}

func (h *QuoteWarmupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.QuoteWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "quote warm-up: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
	}

	warmed := h.warmer.Warm(ctx, payload.Symbols)
	h.log.DebugContext(ctx, "quotes warmed", slog.Int("warmed", warmed), slog.Int("requested", len(payload.Symbols)))

	return nil
}
