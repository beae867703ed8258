package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigCache keeps quotes in an allocation-friendly in-process cache.
// Entries are evicted after the life window; the Service still checks FetchedAt.
type BigCache struct {
	cache *bigcache.BigCache
	log   *slog.Logger
}

var _ Cache = (*BigCache)(nil)

// NewBigCache creates a cache whose entries live for ttl.
func NewBigCache(ctx context.Context, ttl time.Duration, log *slog.Logger) (*BigCache, error) {
	if log == nil {
		log = slog.Default()
	}

	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 16
	cfg.MaxEntriesInWindow = 1024
	cfg.MaxEntrySize = 128
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create quote cache: %w", err)
	}

	return &BigCache{cache: cache, log: log}, nil
}

func (c *BigCache) Get(symbol string) (Quote, bool) {
	raw, err := c.cache.Get(cacheKey(symbol))
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			c.log.Warn("quote cache read failed", slog.String("symbol", symbol), slog.Any("error", err))
		}
		return Quote{}, false
	}

	var q Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		c.log.Warn("quote cache entry is corrupt", slog.String("symbol", symbol), slog.Any("error", err))
		return Quote{}, false
	}

	return q, true
}

func (c *BigCache) Set(q Quote) {
	raw, err := json.Marshal(q)
	if err != nil {
		c.log.Warn("failed to encode quote", slog.String("symbol", q.Symbol), slog.Any("error", err))
		return
	}

	if err := c.cache.Set(cacheKey(q.Symbol), raw); err != nil {
		c.log.Warn("quote cache write failed", slog.String("symbol", q.Symbol), slog.Any("error", err))
	}
}

// Close stops the cache janitor.
func (c *BigCache) Close() error {
	return c.cache.Close()
}

func cacheKey(symbol string) string {
	return "quote:" + strings.ToUpper(symbol)
}
