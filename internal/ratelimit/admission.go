package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// FailurePolicy decides admission when the limiter backend cannot answer.
type FailurePolicy int

const (
	// FailOpen admits the turn when the backend is unavailable.
	FailOpen FailurePolicy = iota
	// FailClosed rejects the turn when the backend is unavailable.
	FailClosed
)

func (p FailurePolicy) String() string {
	if p == FailClosed {
		return "closed"
	}
	return "open"
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	// Degraded is set when the failure policy, not the limiter, made the call.
	Degraded bool
}

// Admission gates dialogue turns per user.
type Admission struct {
	limiter Limiter
	rules   *Rules
	policy  FailurePolicy
	log     *slog.Logger
	now     func() time.Time
}

// AdmissionOption customises an Admission.
type AdmissionOption func(*Admission)

// WithFailurePolicy overrides the policy taken from Rules.
func WithFailurePolicy(policy FailurePolicy) AdmissionOption {
	return func(a *Admission) {
		a.policy = policy
	}
}

// WithAdmissionClock replaces time.Now when computing retry hints.
func WithAdmissionClock(now func() time.Time) AdmissionOption {
	return func(a *Admission) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAdmission wires a limiter to the configured per-user rule.
func NewAdmission(limiter Limiter, rules *Rules, log *slog.Logger, opts ...AdmissionOption) *Admission {
	if log == nil {
		log = slog.Default()
	}

	a := &Admission{
		limiter: limiter,
		rules:   rules,
		policy:  rules.FailurePolicy(),
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Admit reports whether the user may take another turn right now.
func (a *Admission) Admit(ctx context.Context, userID int64) bool {
	return a.Decide(ctx, userID).Allowed
}

// Decide evaluates the per-user sliding window and applies the failure policy on backend errors.
func (a *Admission) Decide(ctx context.Context, userID int64) Decision {
	if a == nil || a.limiter == nil || !a.rules.Enabled() || a.rules.IsWhitelisted(userID) {
		return Decision{Allowed: true}
	}

	limit, window, err := a.rules.GetPerUserLimit()
	if err != nil {
		a.log.Error("invalid per-user rate limit rule", slog.Any("error", err))
		return a.degraded()
	}

	result, err := a.limiter.Check(ctx, userKey(userID), limit, window)
	if result != nil && (err == nil || errors.Is(err, ErrLimitExceeded)) {
		if !result.Allowed {
			retryAfter := result.ResetAt.Sub(a.now())
			if retryAfter < 0 {
				retryAfter = 0
			}
			return Decision{Allowed: false, RetryAfter: retryAfter}
		}
		return Decision{Allowed: true}
	}

	a.log.Warn("rate limiter unavailable",
		slog.Int64("user_id", userID),
		slog.String("policy", a.policy.String()),
		slog.Any("error", err),
	)
	return a.degraded()
}

func (a *Admission) degraded() Decision {
	rateLimitBackendFailuresTotal.WithLabelValues(a.policy.String()).Inc()
	return Decision{Allowed: a.policy == FailOpen, Degraded: true}
}

func userKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}
