package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gigip2p-bot/pkg/config"
)

func testCatalog() *Catalog {
	return NewCatalog(config.TradeConfig{
		Tokens: []config.TokenConfig{
			{Symbol: "ton", Decimals: 9, TagLabel: "memo"},
			{Symbol: "USDT", Decimals: 6, Networks: []config.NetworkConfig{
				{Name: "TON", Aliases: []string{"jetton"}},
				{Name: "tron", Aliases: []string{"TRC20", "trx"}},
				{Name: "ethereum", Aliases: []string{"erc20"}, EVM: true, Decimals: 6},
			}},
			{Symbol: "ETH", Decimals: 18, EVM: true},
		},
	})
}

func TestCatalog_Lookup(t *testing.T) {
	catalog := testCatalog()

	ton, ok := catalog.Lookup("Ton")
	require.True(t, ok)
	assert.Equal(t, "TON", ton.Symbol)
	assert.False(t, ton.MultiNetwork())
	assert.True(t, ton.HasTag())

	_, ok = catalog.Lookup("DOGE")
	assert.False(t, ok)

	assert.Equal(t, []string{"TON", "USDT", "ETH"}, catalog.Symbols())
}

func TestToken_Network(t *testing.T) {
	usdt, ok := testCatalog().Lookup("usdt")
	require.True(t, ok)
	assert.True(t, usdt.MultiNetwork())

	testCases := []struct {
		word string
		want string
		ok   bool
	}{
		{word: "tron", want: "tron", ok: true},
		{word: "TRC20", want: "tron", ok: true},
		{word: "jetton", want: "ton", ok: true},
		{word: "erc20", want: "ethereum", ok: true},
		{word: "solana", ok: false},
		{word: "", ok: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.word, func(t *testing.T) {
			network, ok := usdt.Network(tc.word)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, network.Name)
		})
	}

	assert.True(t, usdt.IsEVM("erc20"))
	assert.False(t, usdt.IsEVM("tron"))
	assert.Equal(t, 6, usdt.DecimalsOn("ethereum"))
	assert.Equal(t, 6, usdt.DecimalsOn("tron"))
}
