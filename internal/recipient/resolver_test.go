package recipient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gigip2p-bot/internal/token"
	"github.com/Proton-105/gigip2p-bot/pkg/config"
)

const (
	tonFallback  = "UQCMbQomO3XD1FSt7pyfjqj2jBRzyg23myKDtCky_CedKpEH"
	tronFallback = "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf"
	evmFallback  = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

type stubRegistry struct {
	binding Binding
	err     error
	calls   int
}

func (s *stubRegistry) Lookup(ctx context.Context, token, network string) (Binding, error) {
	s.calls++
	return s.binding, s.err
}

func testCatalog() *token.Catalog {
	return token.NewCatalog(config.TradeConfig{
		Tokens: []config.TokenConfig{
			{Symbol: "TON", Decimals: 9, TagLabel: "memo"},
			{Symbol: "USDT", Decimals: 6, Networks: []config.NetworkConfig{
				{Name: "ton"},
				{Name: "tron", Aliases: []string{"trc20"}},
				{Name: "ethereum", Aliases: []string{"erc20"}, EVM: true},
			}},
			{Symbol: "ETH", Decimals: 18, EVM: true},
			{Symbol: "BTC", Decimals: 8},
		},
	})
}

func testRecipientConfig() config.RecipientConfig {
	return config.RecipientConfig{
		Fallback: []config.FallbackAddress{
			{Token: "TON", Address: tonFallback},
			{Token: "USDT", Network: "tron", Address: tronFallback},
			{Token: "USDT", Network: "ethereum", Address: evmFallback},
			{Token: "ETH", Address: evmFallback},
		},
		DefaultTags: map[string]string{"ton": "gigi-p2p"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolver_LiveLookup(t *testing.T) {
	registry := &stubRegistry{binding: Binding{Address: "EQlive", Tag: "live-tag"}}
	resolver := NewResolver(registry, testCatalog(), testRecipientConfig(), testLogger())

	b := resolver.Resolve(context.Background(), "ton", "")
	assert.True(t, b.Resolved())
	assert.Equal(t, "EQlive", b.Address)
	assert.Equal(t, "live-tag", b.Tag)
	assert.Equal(t, SourceLive, b.Source)
}

func TestResolver_FallbackOnError(t *testing.T) {
	testCases := []struct {
		name    string
		token   string
		network string
		address string
	}{
		{name: "token only", token: "TON", address: tonFallback},
		{name: "token and network", token: "USDT", network: "tron", address: tronFallback},
		{name: "evm network", token: "USDT", network: "ethereum", address: evmFallback},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			registry := &stubRegistry{err: errors.New("registry down")}
			resolver := NewResolver(registry, testCatalog(), testRecipientConfig(), testLogger())

			b := resolver.Resolve(context.Background(), tc.token, tc.network)
			require.True(t, b.Resolved())
			assert.Equal(t, tc.address, b.Address)
			assert.Equal(t, SourceFallback, b.Source)
			assert.Equal(t, tc.network, b.Network)
			assert.Equal(t, 1, registry.calls)
		})
	}
}

func TestResolver_DefaultsTag(t *testing.T) {
	registry := &stubRegistry{binding: Binding{Address: "EQlive"}}
	resolver := NewResolver(registry, testCatalog(), testRecipientConfig(), testLogger())

	b := resolver.Resolve(context.Background(), "TON", "")
	assert.Equal(t, "gigi-p2p", b.Tag)

	b = resolver.Resolve(context.Background(), "ETH", "")
	assert.Empty(t, b.Tag)
}

func TestResolver_RejectsInvalidEVMAddress(t *testing.T) {
	registry := &stubRegistry{binding: Binding{Address: "not-an-address"}}
	resolver := NewResolver(registry, testCatalog(), testRecipientConfig(), testLogger())

	b := resolver.Resolve(context.Background(), "ETH", "")
	assert.Equal(t, SourceFallback, b.Source)
	assert.Equal(t, evmFallback, b.Address)
}

func TestResolver_ChecksumsLiveEVMAddress(t *testing.T) {
	registry := &stubRegistry{binding: Binding{Address: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"}}
	resolver := NewResolver(registry, testCatalog(), testRecipientConfig(), testLogger())

	b := resolver.Resolve(context.Background(), "USDT", "ethereum")
	assert.Equal(t, SourceLive, b.Source)
	assert.Equal(t, evmFallback, b.Address)
}

func TestResolver_Unresolved(t *testing.T) {
	resolver := NewResolver(nil, testCatalog(), testRecipientConfig(), testLogger())

	b := resolver.Resolve(context.Background(), "BTC", "")
	assert.False(t, b.Resolved())
	assert.Equal(t, "BTC", b.Token)
}

func TestResolver_UpdateFallback(t *testing.T) {
	resolver := NewResolver(nil, testCatalog(), testRecipientConfig(), testLogger())

	cfg := testRecipientConfig()
	cfg.Fallback = append(cfg.Fallback, config.FallbackAddress{Token: "BTC", Address: "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"})
	resolver.UpdateFallback(cfg)

	b := resolver.Resolve(context.Background(), "BTC", "")
	assert.True(t, b.Resolved())
}

func TestHTTPRegistry_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "USDT", r.URL.Query().Get("token"))
		assert.Equal(t, "tron", r.URL.Query().Get("network"))
		_, _ = w.Write([]byte(`{"address":"TLive","tag":""}`))
	}))
	t.Cleanup(server.Close)

	registry := NewHTTPRegistry(server.URL, &http.Client{Timeout: time.Second})
	b, err := registry.Lookup(context.Background(), "USDT", "tron")
	require.NoError(t, err)
	assert.Equal(t, "TLive", b.Address)
}

func TestHTTPRegistry_MissingAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	registry := NewHTTPRegistry(server.URL, nil)
	_, err := registry.Lookup(context.Background(), "TON", "")
	assert.Error(t, err)
}
