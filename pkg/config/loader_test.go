package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigPath = "../../configs/test.yaml"

func TestLoadFile_ReadsTradeSettings(t *testing.T) {
	cfg, _, err := LoadFile(testConfigPath)
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Bot.Token)
	assert.InDelta(t, 0.15, cfg.Trade.Fee, 1e-9)
	assert.InDelta(t, 100, cfg.Trade.HighValueThreshold, 1e-9)
	assert.Equal(t, []string{"TON", "USDT", "ETH", "BTC"}, cfg.Trade.TokenSymbols())
	assert.Contains(t, cfg.Trade.Fiats, "NGN")
	assert.Equal(t, 60*time.Second, cfg.Quote.TTL)
	assert.Equal(t, 3, cfg.Quote.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Quote.RetryDelay)
	assert.Equal(t, 10, cfg.RateLimit.PerUser.Limit)

	window, err := cfg.RateLimit.RateWindow()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, window)

	require.Len(t, cfg.Trade.Tokens[1].Networks, 3)
	assert.Equal(t, "tron", cfg.Trade.Tokens[1].Networks[1].Name)
	assert.NotEmpty(t, cfg.Recipient.Fallback)
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("TRADE_FEE", "0.3")

	cfg, _, err := LoadFile(testConfigPath)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Bot.Token)
	assert.InDelta(t, 0.3, cfg.Trade.Fee, 1e-9)
}

func TestLoadFile_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	content := []byte(`
bot:
  token: ""
trade:
  fee: 0.15
  high_value_threshold: 100
  fiats: [USD]
  tokens:
    - symbol: TON
signing:
  base_url: "https://example.com/sign.html"
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	_, _, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Trade: TradeConfig{Fiats: []string{"NGN", "USD"}}}
	cfg.ApplyDefaults()

	assert.Equal(t, "NGN", cfg.Trade.DefaultFiat)
	assert.Equal(t, "open", cfg.RateLimit.FailurePolicy)
	assert.Equal(t, "60s", cfg.RateLimit.PerUser.Window)
	assert.Equal(t, 8*time.Second, cfg.Dialogue.TurnTimeout)
	assert.Equal(t, "USDT", cfg.Quote.QuoteAsset)
}
