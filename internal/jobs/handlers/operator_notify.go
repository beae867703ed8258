// Package handlers processes background tasks.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/gigip2p-bot/internal/jobs"
	"github.com/Proton-105/gigip2p-bot/internal/notify"
)

// OperatorNotifyHandler delivers queued alerts through a direct notifier.
type OperatorNotifyHandler struct {
	delivery notify.Operator
	log      *slog.Logger
}

func NewOperatorNotifyHandler(delivery notify.Operator, log *slog.Logger) *OperatorNotifyHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OperatorNotifyHandler{delivery: delivery, log: log}
}

func (h *OperatorNotifyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.OperatorNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "operator notify: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
	}

	if err := h.delivery.NotifyOperator(ctx, payload.Alert); err != nil {
		return err
	}

	h.log.InfoContext(ctx, "operator notified",
		slog.Int64("user_id", payload.Alert.UserID),
		slog.String("token", payload.Alert.Token),
		slog.Float64("amount", payload.Alert.Amount),
	)
	return nil
}
