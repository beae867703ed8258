package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Proton-105/gigip2p-bot/internal/token"
	"github.com/Proton-105/gigip2p-bot/pkg/config"
)

func testExtractor(extra map[string][]string) *Extractor {
	catalog := token.NewCatalog(config.TradeConfig{
		Tokens: []config.TokenConfig{
			{Symbol: "TON", Decimals: 9},
			{Symbol: "USDT", Decimals: 6, Networks: []config.NetworkConfig{
				{Name: "ton", Aliases: []string{"jetton"}},
				{Name: "tron", Aliases: []string{"trc20", "trx"}},
				{Name: "ethereum", Aliases: []string{"erc20", "eth"}, EVM: true},
			}},
			{Symbol: "ETH", Decimals: 18, EVM: true},
			{Symbol: "BTC", Decimals: 8},
		},
	})
	return New(catalog, extra)
}

func TestExtractor_Intent(t *testing.T) {
	e := testExtractor(nil)

	testCases := []struct {
		text string
		want Intent
	}{
		{text: "Buy 100 TON", want: IntentBuy},
		{text: "/buy", want: IntentBuy},
		{text: "I want to sell", want: IntentSell},
		{text: "sell my balance", want: IntentSell},
		{text: "connect my wallet", want: IntentConnectWallet},
		{text: "show wallet", want: IntentConnectWallet},
		{text: "show me the money", want: IntentBalance},
		{text: "help", want: IntentHelp},
		{text: "what's the TON price?", want: IntentPrice},
		{text: "chart", want: IntentChart},
		{text: "Hello!", want: IntentGreeting},
		{text: "good morning", want: IntentGreeting},
		{text: "thanks a lot", want: IntentThanks},
		{text: "bye", want: IntentExit},
		{text: "who are you", want: IntentAbout},
		{text: "what time is it", want: IntentTime},
		{text: "cancel", want: IntentCancel},
		{text: "never mind", want: IntentCancel},
		{text: "lorem ipsum", want: IntentConversation},
		{text: "", want: IntentConversation},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Classify(tc.text))
		})
	}
}

func TestExtractor_PrecedenceIsFixed(t *testing.T) {
	e := testExtractor(nil)

	// Buy outranks Sell, Exit outranks Cancel.
	assert.Equal(t, IntentBuy, e.Classify("sell or buy"))
	assert.Equal(t, IntentExit, e.Classify("cancel and exit"))
	assert.Equal(t, IntentHelp, e.Classify("help, what is the price"))
}

func TestExtractor_ExtraSynonyms(t *testing.T) {
	e := testExtractor(map[string][]string{
		"buy":     {"cop"},
		"cancel":  {"Scrap That"},
		"unknown": {"ignored"},
	})

	assert.Equal(t, IntentBuy, e.Classify("cop 5 ton"))
	assert.Equal(t, IntentCancel, e.Classify("scrap that"))
	assert.Equal(t, IntentConversation, e.Classify("ignored"))
}

func TestExtractor_Entities(t *testing.T) {
	e := testExtractor(nil)

	testCases := []struct {
		name string
		text string
		want Entities
	}{
		{name: "single turn", text: "Sell 50 TON", want: Entities{Token: "TON", Amount: 50, HasAmount: true}},
		{name: "decimal amount", text: "buy 0.5 eth", want: Entities{Token: "ETH", Amount: 0.5, HasAmount: true}},
		{name: "grouped amount", text: "buy 1,250.75 usdt on tron", want: Entities{Token: "USDT", Network: "tron", Amount: 1250.75, HasAmount: true}},
		{name: "network alias", text: "sell 10 USDT trc20", want: Entities{Token: "USDT", Network: "tron", Amount: 10, HasAmount: true}},
		{name: "network word that is also a token", text: "buy 10 usdt ton", want: Entities{Token: "USDT", Network: "ton", Amount: 10, HasAmount: true}},
		{name: "eth alias on usdt", text: "buy 10 usdt eth", want: Entities{Token: "USDT", Network: "ethereum", Amount: 10, HasAmount: true}},
		{name: "network ignored for single network token", text: "buy 10 ton tron", want: Entities{Token: "TON", Amount: 10, HasAmount: true}},
		{name: "token only", text: "buy btc", want: Entities{Token: "BTC"}},
		{name: "negative is not an amount", text: "sell -5 ton", want: Entities{Token: "TON"}},
		{name: "zero is an amount", text: "0", want: Entities{Amount: 0, HasAmount: true}},
		{name: "unknown token", text: "buy 5 doge", want: Entities{Amount: 5, HasAmount: true}},
		{name: "trailing period", text: "buy 5 ton.", want: Entities{Token: "TON", Amount: 5, HasAmount: true}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, got := e.Extract(tc.text)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		word string
		want float64
		ok   bool
	}{
		{word: "50", want: 50, ok: true},
		{word: ".5", want: 0.5, ok: true},
		{word: "1e3", want: 1000, ok: true},
		{word: "1,000", want: 1000, ok: true},
		{word: "1,00", ok: false},
		{word: "-1", ok: false},
		{word: "+1", ok: false},
		{word: "nan", ok: false},
		{word: "inf", ok: false},
		{word: "0x10", ok: false},
		{word: "ton", ok: false},
		{word: "", ok: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.word, func(t *testing.T) {
			got, ok := ParseAmount(tc.word)
			assert.Equal(t, tc.ok, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestSentiment(t *testing.T) {
	assert.Equal(t, TonePositive, Sentiment("this bot is awesome"))
	assert.Equal(t, ToneNegative, Sentiment("so slow, terrible"))
	assert.Equal(t, ToneNeutral, Sentiment("good but slow"))
	assert.Equal(t, ToneNeutral, Sentiment("buy 5 ton"))
}
