package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrDuplicate is returned when the key has already been claimed.
var ErrDuplicate = errors.New("update already handled")

type Operation func(ctx context.Context) error

// Guard runs an operation at most once per key within the TTL.
type Guard interface {
	Once(ctx context.Context, key string, fn Operation) error
}

type guard struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
}

// NewGuard builds a Guard. A non-positive ttl defaults to 24 hours.
func NewGuard(store Store, ttl time.Duration, log *slog.Logger) Guard {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &guard{
		store: store,
		ttl:   ttl,
		log:   log,
	}
}

// Once claims key and runs fn. A store failure does not block fn. If fn fails or panics the
// claim is released so a redelivery can retry.
func (g *guard) Once(ctx context.Context, key string, fn Operation) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return errors.New("operation fn cannot be nil")
	}
	if key == "" || g.store == nil {
		return fn(ctx)
	}

	hashed := GenerateKey(key)
	claimed, err := g.store.Claim(ctx, hashed, g.ttl)
	if err != nil {
		g.log.Warn("idempotency store unavailable, handling update anyway", slog.String("key", key), slog.Any("error", err))
		return fn(ctx)
	}
	if !claimed {
		return ErrDuplicate
	}

	done := false
	defer func() {
		if done {
			return
		}
		// fn failed or panicked
		if releaseErr := g.store.Release(context.WithoutCancel(ctx), hashed); releaseErr != nil {
			g.log.Warn("failed to release idempotency key", slog.String("key", key), slog.Any("error", releaseErr))
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}

	done = true
	return nil
}
