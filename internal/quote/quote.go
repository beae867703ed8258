// Package quote fetches spot prices and caches them for a short TTL.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/Proton-105/gigip2p-bot/internal/errors"
)

// ErrUnavailable is returned when no price could be obtained within the retry budget.
var ErrUnavailable = errors.New("quote unavailable")

// Quote is a spot price in USD observed at FetchedAt.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Source is the upstream price capability.
type Source interface {
	SpotPrice(ctx context.Context, symbol string) (float64, error)
}

// Cache stores the latest quote per symbol. Freshness is decided by the Service.
type Cache interface {
	Get(symbol string) (Quote, bool)
	Set(q Quote)
}

// Service answers GetPrice from cache or upstream with a bounded retry.
type Service struct {
	source Source
	cache  Cache
	retry  apperrors.RetryPolicy
	ttl    time.Duration
	pegged map[string]float64
	now    func() time.Time
	log    *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

func WithRetryPolicy(policy apperrors.RetryPolicy) Option {
	return func(s *Service) {
		s.retry = policy
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPegged answers the given symbols from a fixed price instead of the source.
func WithPegged(pegged map[string]float64) Option {
	return func(s *Service) {
		for symbol, price := range pegged {
			s.pegged[strings.ToUpper(symbol)] = price
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a quote service with a 60s TTL and the default retry policy.
func NewService(source Source, cache Cache, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		source: source,
		cache:  cache,
		retry:  apperrors.DefaultRetryPolicy(),
		ttl:    60 * time.Second,
		pegged: make(map[string]float64),
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetPrice returns a fresh quote for symbol, or ErrUnavailable once the retry budget is spent.
func (s *Service) GetPrice(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Quote{}, fmt.Errorf("%w: empty symbol", ErrUnavailable)
	}

	if price, ok := s.pegged[symbol]; ok {
		quoteRequestsTotal.WithLabelValues("pegged").Inc()
		return Quote{Symbol: symbol, Price: price, FetchedAt: s.now()}, nil
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(symbol); ok && s.now().Sub(cached.FetchedAt) < s.ttl {
			quoteRequestsTotal.WithLabelValues("cache").Inc()
			return cached, nil
		}
	}

	var price float64
	err := s.policy(ctx).Do(ctx, func(ctx context.Context, attempt int) error {
		p, err := s.source.SpotPrice(ctx, symbol)
		if err != nil {
			quoteFetchAttemptsTotal.WithLabelValues("error").Inc()
			s.log.Warn("price fetch attempt failed",
				slog.String("symbol", symbol),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			return err
		}
		if p <= 0 {
			quoteFetchAttemptsTotal.WithLabelValues("invalid").Inc()
			return fmt.Errorf("non-positive price %v for %s", p, symbol)
		}

		quoteFetchAttemptsTotal.WithLabelValues("ok").Inc()
		price = p
		return nil
	})
	if err != nil {
		quoteRequestsTotal.WithLabelValues("unavailable").Inc()
		return Quote{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, symbol, err)
	}

	q := Quote{Symbol: symbol, Price: price, FetchedAt: s.now()}
	if s.cache != nil {
		s.cache.Set(q)
	}

	quoteRequestsTotal.WithLabelValues("fetched").Inc()
	return q, nil
}

// policy stops retrying once the caller is gone, the breaker is open or the source refused
// the symbol.
func (s *Service) policy(ctx context.Context) apperrors.RetryPolicy {
	policy := s.retry
	retryable := policy.Retryable
	policy.Retryable = func(err error) bool {
		switch {
		case ctx.Err() != nil,
			errors.Is(err, context.Canceled),
			errors.Is(err, apperrors.ErrCircuitOpen),
			errors.Is(err, ErrRejected):
			return false
		}
		return retryable == nil || retryable(err)
	}
	return policy
}

// Warm refreshes the cache for every symbol and returns how many succeeded.
func (s *Service) Warm(ctx context.Context, symbols []string) int {
	warmed := 0
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.GetPrice(ctx, symbol); err != nil {
			s.log.Warn("quote warm-up failed", slog.String("symbol", symbol), slog.Any("error", err))
			continue
		}
		warmed++
	}
	return warmed
}
