// Package notify delivers operator alerts for high-value trades.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Alert describes a trade an operator should look at.
type Alert struct {
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	Token     string    `json:"token"`
	Network   string    `json:"network,omitempty"`
	Amount    float64   `json:"amount"`
	FiatValue float64   `json:"fiat_value"`
	Fiat      string    `json:"fiat,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	At        time.Time `json:"at"`
}

// Text renders the alert for a chat message.
func (a Alert) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 High-value %s\n", strings.ToLower(a.Action))
	fmt.Fprintf(&b, "User: %d\n", a.UserID)
	fmt.Fprintf(&b, "Amount: %s %s", strconv.FormatFloat(a.Amount, 'f', -1, 64), a.Token)
	if a.Network != "" {
		fmt.Fprintf(&b, " (%s)", a.Network)
	}
	fmt.Fprintf(&b, "\nValue: $%.2f", a.FiatValue)
	if a.OrderID != "" {
		fmt.Fprintf(&b, "\nOrder: %s", a.OrderID)
	}
	return b.String()
}

// Operator receives alerts.
type Operator interface {
	NotifyOperator(ctx context.Context, alert Alert) error
}

// LogNotifier only logs alerts. Used when no operator chat is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyOperator(ctx context.Context, alert Alert) error {
	n.log.WarnContext(ctx, "high-value trade",
		slog.Int64("user_id", alert.UserID),
		slog.String("token", alert.Token),
		slog.Float64("amount", alert.Amount),
		slog.Float64("fiat_value", alert.FiatValue),
	)
	return nil
}
