package state

import (
	"fmt"
	"time"

	"github.com/Proton-105/gigip2p-bot/internal/order"
)

// State represents a dialogue state.
type State string

const (
	// StateIdle is the reset state: no trade in progress.
	StateIdle State = "idle"
	// StateAwaitingToken waits for the user to name a token.
	StateAwaitingToken State = "awaiting_token"
	// StateAwaitingNetwork waits for a chain for a multi-network token.
	StateAwaitingNetwork State = "awaiting_network"
	// StateAwaitingAmount waits for a positive amount.
	StateAwaitingAmount State = "awaiting_amount"
	// StateConfirming holds a priced order until the user replies.
	StateConfirming State = "confirming"
)

// States lists every state, used by metrics.
var States = []State{StateIdle, StateAwaitingToken, StateAwaitingNetwork, StateAwaitingAmount, StateConfirming}

// Slots are the parameters collected across turns.
type Slots struct {
	Token   string  `json:"token,omitempty"`
	Network string  `json:"network,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
}

// UserSession is one user's conversation.
type UserSession struct {
	UserID    int64        `json:"user_id"`
	State     State        `json:"state"`
	Action    order.Action `json:"action,omitempty"`
	Slots     Slots        `json:"slots"`
	History   []string     `json:"history,omitempty"`
	Fiat      string       `json:"fiat,omitempty"`
	Pending   *order.Order `json:"pending,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewSession returns an idle session for userID.
func NewSession(userID int64) *UserSession {
	return &UserSession{UserID: userID, State: StateIdle}
}

// Reset clears the trade in progress and returns to idle. History and fiat survive.
func (s *UserSession) Reset() {
	s.State = StateIdle
	s.Action = ""
	s.Slots = Slots{}
	s.Pending = nil
}

// Remember appends intent to the history, keeping only the last limit entries.
func (s *UserSession) Remember(intent string, limit int) {
	s.History = append(s.History, intent)
	if limit > 0 && len(s.History) > limit {
		s.History = append(s.History[:0:0], s.History[len(s.History)-limit:]...)
	}
}

// Clone returns a deep copy.
func (s *UserSession) Clone() *UserSession {
	if s == nil {
		return nil
	}

	c := *s
	if s.History != nil {
		c.History = append([]string(nil), s.History...)
	}
	if s.Pending != nil {
		pending := *s.Pending
		c.Pending = &pending
	}
	return &c
}

// Validate reports state/slot combinations the dialogue can never produce.
func (s *UserSession) Validate() error {
	switch s.State {
	case StateIdle:
		return nil
	case StateAwaitingToken, StateAwaitingNetwork, StateAwaitingAmount, StateConfirming:
	default:
		return fmt.Errorf("unknown state %q", s.State)
	}

	if s.Action != order.Buy && s.Action != order.Sell {
		return fmt.Errorf("state %s without a buy/sell action", s.State)
	}

	switch s.State {
	case StateAwaitingNetwork, StateAwaitingAmount:
		if s.Slots.Token == "" {
			return fmt.Errorf("state %s without a token", s.State)
		}
	case StateConfirming:
		if s.Pending == nil {
			return fmt.Errorf("state %s without a pending order", s.State)
		}
	}

	return nil
}
