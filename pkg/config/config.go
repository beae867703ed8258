package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds runtime configuration for the GigiP2P bot.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Bot       BotConfig       `mapstructure:"bot"`
	Server    ServerConfig    `mapstructure:"server"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Dialogue  DialogueConfig  `mapstructure:"dialogue"`
	Trade     TradeConfig     `mapstructure:"trade" validate:"required"`
	Quote     QuoteConfig     `mapstructure:"quote"`
	Recipient RecipientConfig `mapstructure:"recipient"`
	Signing   SigningConfig   `mapstructure:"signing"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Intents   IntentsConfig   `mapstructure:"intents"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token          string        `mapstructure:"token" validate:"required"`
	Mode           string        `mapstructure:"mode" validate:"omitempty,oneof=polling webhook"`
	Timeout        time.Duration `mapstructure:"timeout"`
	WebhookListen  string        `mapstructure:"webhook_listen"`
	OperatorChatID int64         `mapstructure:"operator_chat_id"`
}

// ServerConfig configures the metrics and health HTTP server.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// DatabaseConfig points at the optional Postgres order journal.
type DatabaseConfig struct {
	DSN           string `mapstructure:"dsn"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// RateLimitRule is a limit over a window expressed as a Go duration string.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit" validate:"gte=0"`
	Window string `mapstructure:"window"`
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend" validate:"omitempty,oneof=memory redis adaptive"`
	FailurePolicy   string        `mapstructure:"failure_policy" validate:"omitempty,oneof=open closed"`
	PerUser         RateLimitRule `mapstructure:"per_user"`
	Whitelist       []int64       `mapstructure:"whitelist"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DialogueConfig tunes the per-user conversation engine and its session store.
type DialogueConfig struct {
	TurnTimeout      time.Duration `mapstructure:"turn_timeout"`
	HistoryLimit     int           `mapstructure:"history_limit" validate:"gte=0"`
	Storage          string        `mapstructure:"storage" validate:"omitempty,oneof=memory redis"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	DistributedLocks bool          `mapstructure:"distributed_locks"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"`
}

// NetworkConfig describes one chain a token settles on.
type NetworkConfig struct {
	Name     string   `mapstructure:"name" validate:"required"`
	Aliases  []string `mapstructure:"aliases"`
	Decimals int      `mapstructure:"decimals" validate:"gte=0,lte=18"`
	EVM      bool     `mapstructure:"evm"`
}

// TokenConfig describes a tradable asset.
type TokenConfig struct {
	Symbol   string          `mapstructure:"symbol" validate:"required"`
	Decimals int             `mapstructure:"decimals" validate:"gte=0,lte=18"`
	EVM      bool            `mapstructure:"evm"`
	TagLabel string          `mapstructure:"tag_label"`
	Networks []NetworkConfig `mapstructure:"networks" validate:"dive"`
}

type TradeConfig struct {
	Tokens             []TokenConfig `mapstructure:"tokens" validate:"required,min=1,dive"`
	Fiats              []string      `mapstructure:"fiats" validate:"required,min=1"`
	DefaultFiat        string        `mapstructure:"default_fiat"`
	Fee                float64       `mapstructure:"fee" validate:"gte=0"`
	HighValueThreshold float64       `mapstructure:"high_value_threshold" validate:"gt=0"`
}

type QuoteConfig struct {
	SourceURL      string             `mapstructure:"source_url"`
	QuoteAsset     string             `mapstructure:"quote_asset"`
	TTL            time.Duration      `mapstructure:"ttl"`
	MaxAttempts    int                `mapstructure:"max_attempts" validate:"gte=0"`
	RetryDelay     time.Duration      `mapstructure:"retry_delay"`
	RequestTimeout time.Duration      `mapstructure:"request_timeout"`
	Pegged         map[string]float64 `mapstructure:"pegged"`
}

// FallbackAddress is one row of the static settlement address table.
type FallbackAddress struct {
	Token   string `mapstructure:"token" validate:"required"`
	Network string `mapstructure:"network"`
	Address string `mapstructure:"address" validate:"required"`
	Tag     string `mapstructure:"tag"`
}

type RecipientConfig struct {
	RegistryURL    string            `mapstructure:"registry_url"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	Fallback       []FallbackAddress `mapstructure:"fallback" validate:"dive"`
	DefaultTags    map[string]string `mapstructure:"default_tags"`
}

// SigningConfig configures links handed to the external wallet page.
type SigningConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	TonManifestURL string `mapstructure:"ton_manifest_url"`
	ChartURL       string `mapstructure:"chart_url"`
}

type JobsConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	Concurrency         int    `mapstructure:"concurrency"`
	QuoteWarmupSchedule string `mapstructure:"quote_warmup_schedule"`
}

// IntentsConfig extends the built-in synonym sets, keyed by lower-case intent name.
type IntentsConfig struct {
	Synonyms map[string][]string `mapstructure:"synonyms"`
}

// TokenSymbols returns the upper-cased symbols of every configured token.
func (t TradeConfig) TokenSymbols() []string {
	symbols := make([]string, 0, len(t.Tokens))
	for _, token := range t.Tokens {
		symbols = append(symbols, strings.ToUpper(token.Symbol))
	}
	return symbols
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Bot.Mode == "" {
		c.Bot.Mode = "polling"
	}
	if c.Bot.Timeout <= 0 {
		c.Bot.Timeout = 10 * time.Second
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.FailurePolicy == "" {
		c.RateLimit.FailurePolicy = "open"
	}
	if c.RateLimit.PerUser.Limit == 0 {
		c.RateLimit.PerUser.Limit = 10
	}
	if c.RateLimit.PerUser.Window == "" {
		c.RateLimit.PerUser.Window = "60s"
	}
	if c.Dialogue.TurnTimeout <= 0 {
		c.Dialogue.TurnTimeout = 8 * time.Second
	}
	if c.Dialogue.HistoryLimit == 0 {
		c.Dialogue.HistoryLimit = 20
	}
	if c.Dialogue.Storage == "" {
		c.Dialogue.Storage = "memory"
	}
	if c.Dialogue.SessionTTL <= 0 {
		c.Dialogue.SessionTTL = 24 * time.Hour
	}
	if c.Dialogue.LockTTL <= 0 {
		c.Dialogue.LockTTL = 10 * time.Second
	}
	if c.Trade.DefaultFiat == "" && len(c.Trade.Fiats) > 0 {
		c.Trade.DefaultFiat = c.Trade.Fiats[0]
	}
	if c.Quote.QuoteAsset == "" {
		c.Quote.QuoteAsset = "USDT"
	}
	if c.Quote.TTL <= 0 {
		c.Quote.TTL = 60 * time.Second
	}
	if c.Quote.MaxAttempts == 0 {
		c.Quote.MaxAttempts = 3
	}
	if c.Quote.RetryDelay <= 0 {
		c.Quote.RetryDelay = time.Second
	}
	if c.Quote.RequestTimeout <= 0 {
		c.Quote.RequestTimeout = 3 * time.Second
	}
	if c.Recipient.RequestTimeout <= 0 {
		c.Recipient.RequestTimeout = 3 * time.Second
	}
	if c.Jobs.Concurrency <= 0 {
		c.Jobs.Concurrency = 5
	}
}

// RateWindow parses the per-user rate limit window.
func (r RateLimitConfig) RateWindow() (time.Duration, error) {
	window, err := time.ParseDuration(r.PerUser.Window)
	if err != nil {
		return 0, fmt.Errorf("parse rate limit window %q: %w", r.PerUser.Window, err)
	}
	return window, nil
}
