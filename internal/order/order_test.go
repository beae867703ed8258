package order

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/gigip2p-bot/internal/errors"
	"github.com/Proton-105/gigip2p-bot/internal/quote"
	"github.com/Proton-105/gigip2p-bot/internal/recipient"
	"github.com/Proton-105/gigip2p-bot/internal/token"
	"github.com/Proton-105/gigip2p-bot/pkg/config"
)

func testCatalog() *token.Catalog {
	return token.NewCatalog(config.TradeConfig{
		Tokens: []config.TokenConfig{
			{Symbol: "TON", Decimals: 9, TagLabel: "memo"},
			{Symbol: "USDT", Decimals: 6, Networks: []config.NetworkConfig{
				{Name: "ton"},
				{Name: "tron", Aliases: []string{"trc20"}},
			}},
			{Symbol: "ETH", Decimals: 18, EVM: true},
		},
	})
}

func tonParams(action Action, amount float64) Params {
	return Params{
		UserID:    7,
		Action:    action,
		Token:     "ton",
		Amount:    amount,
		Fiat:      "usd",
		Quote:     quote.Quote{Symbol: "TON", Price: 5},
		Recipient: recipient.Binding{Token: "TON", Address: "UQaddr", Tag: "gigi-p2p"},
	}
}

var pricing = Pricing{Fee: 0.15}

func TestNew_SellSubtractsFee(t *testing.T) {
	o, err := New(testCatalog(), pricing, tonParams(Sell, 50), time.Now())
	require.NoError(t, err)

	assert.InDelta(t, 249.85, o.QuotedFiatValue, 1e-9)
	assert.Equal(t, "TON", o.Token)
	assert.Equal(t, "USD", o.Fiat)
	assert.Equal(t, "gigi-p2p", o.Tag)
}

func TestNew_BuyAddsFee(t *testing.T) {
	o, err := New(testCatalog(), pricing, tonParams(Buy, 100), time.Now())
	require.NoError(t, err)

	assert.InDelta(t, 500.15, o.QuotedFiatValue, 1e-9)
}

func TestNew_Rejects(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *Params)
		kind   apperrors.Kind
		err    error
	}{
		{name: "unsupported token", mutate: func(p *Params) { p.Token = "DOGE" }, kind: apperrors.KindInput},
		{name: "zero amount", mutate: func(p *Params) { p.Amount = 0 }, kind: apperrors.KindInput},
		{name: "negative amount", mutate: func(p *Params) { p.Amount = -1 }, kind: apperrors.KindInput},
		{name: "sell below fee", mutate: func(p *Params) { p.Action = Sell; p.Amount = 0.01 }, kind: apperrors.KindInput},
		{name: "missing quote", mutate: func(p *Params) { p.Quote = quote.Quote{} }, err: ErrIncomplete},
		{name: "quote for another token", mutate: func(p *Params) { p.Quote.Symbol = "ETH" }, err: ErrIncomplete},
		{name: "unresolved recipient", mutate: func(p *Params) { p.Recipient = recipient.Binding{Token: "TON"} }, err: ErrIncomplete},
		{name: "multi-network without network", mutate: func(p *Params) {
			p.Token = "USDT"
			p.Quote.Symbol = "USDT"
		}, kind: apperrors.KindInput},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p := tonParams(Buy, 10)
			tc.mutate(&p)

			o, err := New(testCatalog(), pricing, p, time.Now())
			require.Error(t, err)
			assert.Nil(t, o)

			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err))
				return
			}
			assert.Equal(t, tc.kind, apperrors.KindOf(err))
		})
	}
}

func TestNew_MultiNetworkAlias(t *testing.T) {
	p := tonParams(Buy, 10)
	p.Token = "USDT"
	p.Network = "TRC20"
	p.Quote = quote.Quote{Symbol: "USDT", Price: 1}

	o, err := New(testCatalog(), pricing, p, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "tron", o.Network)
	assert.InDelta(t, 10.15, o.QuotedFiatValue, 1e-9)
}

func TestPricing_ValueIsRoundedToCents(t *testing.T) {
	p := Pricing{Fee: 0.15}

	assert.Equal(t, 2.87, p.Value(Sell, 3, 1.005))
	assert.Equal(t, 0.17, p.Value(Buy, 0.1, 0.2))
	assert.Equal(t, 500.15, p.Value(Buy, 100, 5))
}

func TestOrder_HighValue(t *testing.T) {
	sell := &Order{Action: Sell, Amount: 150}
	buy := &Order{Action: Buy, Amount: 150}
	small := &Order{Action: Sell, Amount: 100}

	assert.True(t, sell.HighValue(100))
	assert.False(t, buy.HighValue(100))
	assert.False(t, small.HighValue(100))
}

func TestBaseUnits(t *testing.T) {
	testCases := []struct {
		name     string
		amount   float64
		decimals int
		want     string
	}{
		{name: "whole ton", amount: 50, decimals: 9, want: "50000000000"},
		{name: "fractional ton is exact", amount: 0.1, decimals: 9, want: "100000000"},
		{name: "usdt six decimals", amount: 12.345678, decimals: 6, want: "12345678"},
		{name: "truncates dust", amount: 1.0000001, decimals: 6, want: "1000000"},
		{name: "eth wei", amount: 1.5, decimals: 18, want: "1500000000000000000"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			units, err := BaseUnits(tc.amount, tc.decimals)
			require.NoError(t, err)
			assert.Equal(t, tc.want, units.Dec())
		})
	}
}

func TestSigningLinks_Build(t *testing.T) {
	links, err := NewSigningLinks("https://example.com/sign.html", testCatalog())
	require.NoError(t, err)

	o, err := New(testCatalog(), pricing, tonParams(Sell, 50), time.Now())
	require.NoError(t, err)

	raw, err := links.Build(o)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/sign.html", u.Path)
	assert.Equal(t, "50000000000", u.Query().Get("amount"))
	assert.Equal(t, "UQaddr", u.Query().Get("to"))
	assert.Equal(t, "7", u.Query().Get("user_id"))
	assert.Equal(t, "gigi-p2p", u.Query().Get("tag"))
	assert.Empty(t, u.Query().Get("network"))
}

func TestNewSigningLinks_RejectsRelative(t *testing.T) {
	_, err := NewSigningLinks("sign.html", testCatalog())
	assert.Error(t, err)
}
