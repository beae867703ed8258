// Package repository persists confirmed orders in Postgres.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Proton-105/gigip2p-bot/internal/order"
	"github.com/Proton-105/gigip2p-bot/pkg/logger"
)

// OrderRepository defines persistence operations for confirmed orders.
type OrderRepository interface {
	SaveOrder(ctx context.Context, o *order.Order) error
}

type orderRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewOrderRepository creates a new SQL-backed order journal.
func NewOrderRepository(db *sql.DB, log *slog.Logger) OrderRepository {
	if log == nil {
		log = slog.Default()
	}
	return &orderRepository{
		db:  db,
		log: log,
	}
}

// SaveOrder records a confirmed order. Saving the same order id twice is a no-op.
func (r *orderRepository) SaveOrder(ctx context.Context, o *order.Order) error {
	const query = `
		INSERT INTO orders (order_id, user_id, action, token, network, amount, price, fee,
			fiat_value, fiat, recipient, tag, signing_url, correlation_id, quoted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (order_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		o.ID,
		o.UserID,
		string(o.Action),
		o.Token,
		o.Network,
		o.Amount,
		o.Price,
		o.Fee,
		o.QuotedFiatValue,
		o.Fiat,
		o.Recipient,
		o.Tag,
		o.SigningURL,
		logger.CorrelationIDFromContext(ctx),
		o.CreatedAt,
	); err != nil {
		r.log.Error("failed to save order", slog.String("order_id", o.ID), slog.Int64("user_id", o.UserID), slog.Any("error", err))
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}
