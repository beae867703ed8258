// Package token describes the tradable assets and the chains they settle on.
package token

import (
	"strings"

	"github.com/Proton-105/gigip2p-bot/pkg/config"
)

// Network is one chain a token can settle on.
type Network struct {
	Name     string
	Aliases  []string
	Decimals int
	EVM      bool
}

// Token is a supported asset.
type Token struct {
	Symbol   string
	Decimals int
	EVM      bool
	TagLabel string
	Networks []Network
}

// MultiNetwork reports whether the user must pick a chain for this token.
func (t Token) MultiNetwork() bool {
	return len(t.Networks) > 1
}

// HasTag reports whether settlements carry a memo/destination tag.
func (t Token) HasTag() bool {
	return t.TagLabel != ""
}

// Network returns the network whose name or alias matches word, case-insensitively.
func (t Token) Network(word string) (Network, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return Network{}, false
	}

	for _, network := range t.Networks {
		if network.Name == word {
			return network, true
		}
		for _, alias := range network.Aliases {
			if alias == word {
				return network, true
			}
		}
	}

	return Network{}, false
}

// NetworkNames lists the canonical network names in configuration order.
func (t Token) NetworkNames() []string {
	names := make([]string, 0, len(t.Networks))
	for _, network := range t.Networks {
		names = append(names, network.Name)
	}
	return names
}

// DecimalsOn returns the base-unit precision on the named network, or the token default.
func (t Token) DecimalsOn(network string) int {
	if n, ok := t.Network(network); ok && n.Decimals > 0 {
		return n.Decimals
	}
	return t.Decimals
}

// IsEVM reports whether addresses on the named network are EVM hex addresses.
func (t Token) IsEVM(network string) bool {
	if n, ok := t.Network(network); ok {
		return n.EVM
	}
	return t.EVM
}

// Catalog is the canonical symbol table.
type Catalog struct {
	tokens []Token
	index  map[string]int
}

// NewCatalog builds a catalog from trade configuration.
func NewCatalog(cfg config.TradeConfig) *Catalog {
	c := &Catalog{index: make(map[string]int, len(cfg.Tokens))}

	for _, tc := range cfg.Tokens {
		t := Token{
			Symbol:   strings.ToUpper(tc.Symbol),
			Decimals: tc.Decimals,
			EVM:      tc.EVM,
			TagLabel: tc.TagLabel,
		}
		for _, nc := range tc.Networks {
			aliases := make([]string, 0, len(nc.Aliases))
			for _, alias := range nc.Aliases {
				aliases = append(aliases, strings.ToLower(alias))
			}
			t.Networks = append(t.Networks, Network{
				Name:     strings.ToLower(nc.Name),
				Aliases:  aliases,
				Decimals: nc.Decimals,
				EVM:      nc.EVM,
			})
		}

		c.index[t.Symbol] = len(c.tokens)
		c.tokens = append(c.tokens, t)
	}

	return c
}

// Lookup finds a token by exact, case-insensitive symbol.
func (c *Catalog) Lookup(symbol string) (Token, bool) {
	if c == nil {
		return Token{}, false
	}
	idx, ok := c.index[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Token{}, false
	}
	return c.tokens[idx], true
}

// Supported reports whether symbol is in the catalog.
func (c *Catalog) Supported(symbol string) bool {
	_, ok := c.Lookup(symbol)
	return ok
}

// Symbols returns every symbol in configuration order.
func (c *Catalog) Symbols() []string {
	symbols := make([]string, 0, len(c.tokens))
	for _, t := range c.tokens {
		symbols = append(symbols, t.Symbol)
	}
	return symbols
}
