// Package recipient resolves the settlement address for a token and network.
package recipient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Proton-105/gigip2p-bot/internal/token"
	"github.com/Proton-105/gigip2p-bot/pkg/config"
)

const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// ErrInvalidAddress marks a registry answer that does not look like an address for the chain.
var ErrInvalidAddress = errors.New("invalid settlement address")

// Binding is where a settlement should be sent.
type Binding struct {
	Token   string
	Network string
	Address string
	Tag     string
	Source  string
}

// Resolved reports whether an address was found. An unresolved binding must not be used for an order.
func (b Binding) Resolved() bool {
	return b.Address != ""
}

// Registry is the live recipient lookup.
type Registry interface {
	Lookup(ctx context.Context, token, network string) (Binding, error)
}

// Resolver tries the registry first and falls back to the configured table.
type Resolver struct {
	registry Registry
	catalog  *token.Catalog
	timeout  time.Duration
	log      *slog.Logger

	mu          sync.RWMutex
	fallback    map[string]Binding
	defaultTags map[string]string
}

// NewResolver builds a resolver. registry may be nil, in which case only the table is used.
func NewResolver(registry Registry, catalog *token.Catalog, cfg config.RecipientConfig, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}

	r := &Resolver{
		registry: registry,
		catalog:  catalog,
		timeout:  cfg.RequestTimeout,
		log:      log,
	}
	r.UpdateFallback(cfg)

	return r
}

// UpdateFallback swaps the static table, used on config reload.
func (r *Resolver) UpdateFallback(cfg config.RecipientConfig) {
	fallback := make(map[string]Binding, len(cfg.Fallback))
	for _, row := range cfg.Fallback {
		b := Binding{
			Token:   strings.ToUpper(row.Token),
			Network: strings.ToLower(row.Network),
			Address: strings.TrimSpace(row.Address),
			Tag:     row.Tag,
			Source:  SourceFallback,
		}
		fallback[fallbackKey(b.Token, b.Network)] = b
	}

	tags := make(map[string]string, len(cfg.DefaultTags))
	for symbol, tag := range cfg.DefaultTags {
		tags[strings.ToUpper(symbol)] = tag
	}

	r.mu.Lock()
	r.fallback = fallback
	r.defaultTags = tags
	r.mu.Unlock()
}

// Resolve never fails: it returns the live binding, the fallback, or an unresolved Binding.
func (r *Resolver) Resolve(ctx context.Context, symbol, network string) Binding {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	network = strings.ToLower(strings.TrimSpace(network))

	if r.registry != nil {
		live, err := r.lookup(ctx, symbol, network)
		if err == nil {
			resolutionsTotal.WithLabelValues(SourceLive).Inc()
			return r.withDefaultTag(live)
		}

		r.log.Warn("live recipient lookup failed, using fallback",
			slog.String("token", symbol),
			slog.String("network", network),
			slog.Any("error", err),
		)
	}

	r.mu.RLock()
	b, ok := r.fallback[fallbackKey(symbol, network)]
	if !ok {
		b, ok = r.fallback[fallbackKey(symbol, "")]
	}
	r.mu.RUnlock()

	if !ok {
		resolutionsTotal.WithLabelValues("unresolved").Inc()
		r.log.Error("no settlement address configured", slog.String("token", symbol), slog.String("network", network))
		return Binding{Token: symbol, Network: network}
	}

	b.Network = network
	resolutionsTotal.WithLabelValues(SourceFallback).Inc()
	return r.withDefaultTag(b)
}

func (r *Resolver) lookup(ctx context.Context, symbol, network string) (Binding, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	b, err := r.registry.Lookup(ctx, symbol, network)
	if err != nil {
		return Binding{}, err
	}

	address, err := r.normalize(symbol, network, b.Address)
	if err != nil {
		return Binding{}, err
	}

	return Binding{
		Token:   symbol,
		Network: network,
		Address: address,
		Tag:     strings.TrimSpace(b.Tag),
		Source:  SourceLive,
	}, nil
}

// normalize checks the address shape and returns EVM addresses in checksum form.
func (r *Resolver) normalize(symbol, network, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.ContainsAny(address, " \t\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	t, ok := r.catalog.Lookup(symbol)
	if ok && t.IsEVM(network) {
		if !common.IsHexAddress(address) {
			return "", fmt.Errorf("%w: %q is not a hex address", ErrInvalidAddress, address)
		}
		return common.HexToAddress(address).Hex(), nil
	}

	return address, nil
}

func (r *Resolver) withDefaultTag(b Binding) Binding {
	if b.Tag != "" {
		return b
	}

	r.mu.RLock()
	tag, ok := r.defaultTags[b.Token]
	r.mu.RUnlock()
	if ok {
		b.Tag = tag
	}

	return b
}

func fallbackKey(symbol, network string) string {
	if network == "" {
		return symbol
	}
	return symbol + "/" + network
}
