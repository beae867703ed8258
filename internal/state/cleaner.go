package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner removes sessions that have been inactive longer than ttl.
// Redis sessions also expire on their own; the sweep matters for MemoryStorage.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.interval <= 0 || c.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("session cleaner stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep clears expired sessions once and returns how many were removed.
func (c *Cleaner) Sweep(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	sessions, err := c.storage.GetAllSessions(ctx)
	if err != nil {
		c.log.Error("session cleaner failed to list sessions", slog.Any("error", err))
		return 0
	}

	cutoff := c.now().Add(-c.ttl)
	removed := 0

	for _, session := range sessions {
		if !session.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := c.storage.ClearSession(ctx, session.UserID); err != nil {
			c.log.Error("session cleaner failed to clear session", slog.Int64("user_id", session.UserID), slog.Any("error", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		c.log.Info("expired sessions cleared", slog.Int("sessions_removed", removed))
	}

	return removed
}
