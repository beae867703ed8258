// Package order builds the settlement instruction produced when slot filling completes.
package order

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/Proton-105/gigip2p-bot/internal/errors"
	"github.com/Proton-105/gigip2p-bot/internal/quote"
	"github.com/Proton-105/gigip2p-bot/internal/recipient"
	"github.com/Proton-105/gigip2p-bot/internal/token"
)

// Action is the side of the trade from the user's point of view.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
)

// ParseAction accepts "buy" or "sell" in any case.
func ParseAction(s string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	default:
		return "", false
	}
}

// Title returns the capitalised action for messages.
func (a Action) Title() string {
	switch a {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	default:
		return string(a)
	}
}

// ErrIncomplete is returned when a quote or recipient is missing.
var ErrIncomplete = errors.New("order is missing a quote or recipient")

// Order is a fully priced settlement instruction.
type Order struct {
	ID              string    `json:"id"`
	UserID          int64     `json:"user_id"`
	Action          Action    `json:"action"`
	Token           string    `json:"token"`
	Network         string    `json:"network,omitempty"`
	Amount          float64   `json:"amount"`
	Price           float64   `json:"price"`
	Fee             float64   `json:"fee"`
	QuotedFiatValue float64   `json:"quoted_fiat_value"`
	Fiat            string    `json:"fiat"`
	Recipient       string    `json:"recipient"`
	Tag             string    `json:"tag,omitempty"`
	SigningURL      string    `json:"signing_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Params collects what the dialogue has gathered.
type Params struct {
	UserID    int64
	Action    Action
	Token     string
	Network   string
	Amount    float64
	Fiat      string
	Quote     quote.Quote
	Recipient recipient.Binding
}

// Pricing holds the fee policy.
type Pricing struct {
	Fee float64
}

// Value returns the fiat total rounded to cents: buy adds the fee to the cost, sell subtracts it
// from the proceeds.
func (p Pricing) Value(action Action, amount, price float64) float64 {
	gross := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(price))
	fee := decimal.NewFromFloat(p.Fee)

	total := gross.Add(fee)
	if action == Sell {
		total = gross.Sub(fee)
	}
	return total.Round(2).InexactFloat64()
}

// New validates params and prices the order. The token must be in catalog, the amount positive,
// and both the quote and the recipient resolved.
func New(catalog *token.Catalog, pricing Pricing, p Params, now time.Time) (*Order, error) {
	if p.Action != Buy && p.Action != Sell {
		return nil, apperrors.NewInputError(fmt.Sprintf("unknown action %q", p.Action), "Please choose Buy or Sell.")
	}

	t, ok := catalog.Lookup(p.Token)
	if !ok {
		return nil, apperrors.NewInputError(
			fmt.Sprintf("unsupported token %q", p.Token),
			fmt.Sprintf("%s is not supported. Choose one of: %s.", strings.ToUpper(p.Token), strings.Join(catalog.Symbols(), ", ")),
		)
	}

	if math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) || p.Amount <= 0 {
		return nil, apperrors.NewInputError(fmt.Sprintf("invalid amount %v", p.Amount), "The amount must be a positive number.")
	}

	network := ""
	if t.MultiNetwork() {
		n, ok := t.Network(p.Network)
		if !ok {
			return nil, apperrors.NewInputError(
				fmt.Sprintf("unknown network %q for %s", p.Network, t.Symbol),
				fmt.Sprintf("Choose a network for %s: %s.", t.Symbol, strings.Join(t.NetworkNames(), ", ")),
			)
		}
		network = n.Name
	}

	if p.Quote.Price <= 0 || !strings.EqualFold(p.Quote.Symbol, t.Symbol) || !p.Recipient.Resolved() {
		return nil, ErrIncomplete
	}

	value := pricing.Value(p.Action, p.Amount, p.Quote.Price)
	if p.Action == Sell && value <= 0 {
		return nil, apperrors.NewInputError(
			fmt.Sprintf("sell proceeds %.2f do not cover the fee", value),
			fmt.Sprintf("That amount does not cover the $%.2f fee. Please enter a larger amount.", pricing.Fee),
		)
	}

	return &Order{
		UserID:          p.UserID,
		Action:          p.Action,
		Token:           t.Symbol,
		Network:         network,
		Amount:          p.Amount,
		Price:           p.Quote.Price,
		Fee:             pricing.Fee,
		QuotedFiatValue: value,
		Fiat:            strings.ToUpper(p.Fiat),
		Recipient:       p.Recipient.Address,
		Tag:             p.Recipient.Tag,
		CreatedAt:       now,
	}, nil
}

// HighValue reports whether a sell exceeds the operator notification threshold.
func (o *Order) HighValue(threshold float64) bool {
	return o != nil && o.Action == Sell && o.Amount > threshold
}
