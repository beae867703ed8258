package idempotency

import (
	"context"
	"log/slog"
	"time"
)

// Pruner removes expired claims. Redis expires keys itself, so only MemoryStore needs one.
type Pruner interface {
	Prune(ctx context.Context) int
}

type Cleaner struct {
	store    Pruner
	log      *slog.Logger
	interval time.Duration
}

func NewCleaner(store Pruner, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &Cleaner{
		store:    store,
		log:      log,
		interval: interval,
	}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.store.Prune(ctx); removed > 0 {
				c.log.Debug("pruned idempotency keys", slog.Int("removed", removed))
			}
		}
	}
}
