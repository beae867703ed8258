// Package dialogue drives the per-user buy/sell conversation: one inbound message or button press
// is one turn, run under the user's session lock.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Proton-105/gigip2p-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/gigip2p-bot/internal/errors"
	"github.com/Proton-105/gigip2p-bot/internal/extract"
	"github.com/Proton-105/gigip2p-bot/internal/notify"
	"github.com/Proton-105/gigip2p-bot/internal/order"
	"github.com/Proton-105/gigip2p-bot/internal/quote"
	"github.com/Proton-105/gigip2p-bot/internal/ratelimit"
	"github.com/Proton-105/gigip2p-bot/internal/recipient"
	"github.com/Proton-105/gigip2p-bot/internal/state"
	"github.com/Proton-105/gigip2p-bot/internal/token"
	"github.com/Proton-105/gigip2p-bot/pkg/config"
	"github.com/Proton-105/gigip2p-bot/pkg/logger"
)

// Reply is what the transport sends back for one turn.
type Reply struct {
	Text   string
	Markup *keyboard.Markup
}

// Quoter prices a token.
type Quoter interface {
	GetPrice(ctx context.Context, symbol string) (quote.Quote, error)
}

// Resolver finds the settlement address for a token and network.
type Resolver interface {
	Resolve(ctx context.Context, symbol, network string) recipient.Binding
}

// LinkBuilder produces the wallet signing URL for an order.
type LinkBuilder interface {
	Build(o *order.Order) (string, error)
}

// Admitter gates turns per user.
type Admitter interface {
	Decide(ctx context.Context, userID int64) ratelimit.Decision
}

// OrderJournal records confirmed orders.
type OrderJournal interface {
	SaveOrder(ctx context.Context, o *order.Order) error
}

// Deps are the collaborators of an Engine. Admission, Operator, Journal and Errors are optional.
type Deps struct {
	Store      *state.Store
	Extractor  *extract.Extractor
	Catalog    *token.Catalog
	Quotes     Quoter
	Recipients Resolver
	Links      LinkBuilder
	Admission  Admitter
	Operator   notify.Operator
	Journal    OrderJournal
	Errors     *apperrors.Handler
}

// Settings are the tunables of the conversation.
type Settings struct {
	TurnTimeout        time.Duration
	NotifyTimeout      time.Duration
	HistoryLimit       int
	Fee                float64
	HighValueThreshold float64
	Fiats              []string
	DefaultFiat        string
	TonManifestURL     string
	ChartURL           string
	QuickAmounts       []float64
}

// SettingsFromConfig maps the loaded configuration onto Settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		TurnTimeout:        cfg.Dialogue.TurnTimeout,
		HistoryLimit:       cfg.Dialogue.HistoryLimit,
		Fee:                cfg.Trade.Fee,
		HighValueThreshold: cfg.Trade.HighValueThreshold,
		Fiats:              cfg.Trade.Fiats,
		DefaultFiat:        cfg.Trade.DefaultFiat,
		TonManifestURL:     cfg.Signing.TonManifestURL,
		ChartURL:           cfg.Signing.ChartURL,
	}
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator replaces the order id generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// Engine runs dialogue turns.
type Engine struct {
	deps     Deps
	settings Settings
	pricing  order.Pricing
	log      *slog.Logger
	now      func() time.Time
	newID    func() string

	notifications sync.WaitGroup
}

// New validates deps and fills default settings.
func New(deps Deps, settings Settings, log *slog.Logger, opts ...Option) (*Engine, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("dialogue: session store is required")
	case deps.Extractor == nil:
		return nil, errors.New("dialogue: extractor is required")
	case deps.Catalog == nil:
		return nil, errors.New("dialogue: token catalog is required")
	case deps.Quotes == nil:
		return nil, errors.New("dialogue: quote service is required")
	case deps.Recipients == nil:
		return nil, errors.New("dialogue: recipient resolver is required")
	case deps.Links == nil:
		return nil, errors.New("dialogue: signing links are required")
	}

	if log == nil {
		log = slog.Default()
	}
	if deps.Operator == nil {
		deps.Operator = notify.NewLogNotifier(log)
	}
	if deps.Errors == nil {
		deps.Errors = apperrors.NewHandler(log, false)
	}

	if settings.TurnTimeout <= 0 {
		settings.TurnTimeout = 8 * time.Second
	}
	if settings.NotifyTimeout <= 0 {
		settings.NotifyTimeout = 10 * time.Second
	}
	if settings.HistoryLimit <= 0 {
		settings.HistoryLimit = 20
	}
	if settings.DefaultFiat == "" && len(settings.Fiats) > 0 {
		settings.DefaultFiat = settings.Fiats[0]
	}
	if len(settings.QuickAmounts) == 0 {
		settings.QuickAmounts = []float64{10, 50, 100, 500}
	}

	e := &Engine{
		deps:     deps,
		settings: settings,
		pricing:  order.Pricing{Fee: settings.Fee},
		log:      log,
		now:      time.Now,
		newID:    newOrderID,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// HandleTurn processes one free-text message.
func (e *Engine) HandleTurn(ctx context.Context, userID int64, text string) (*Reply, error) {
	return e.run(ctx, userID, turnText, func(ctx context.Context, s *state.UserSession) (*Reply, error) {
		return e.step(ctx, s, text)
	})
}

// HandleCallback processes one button press. data is the raw callback payload.
func (e *Engine) HandleCallback(ctx context.Context, userID int64, data string) (*Reply, error) {
	unique, payload, err := keyboard.DecodeCallback(data)
	if err != nil {
		turnsTotal.WithLabelValues(turnCallback, outcomeInvalid).Inc()
		return &Reply{Text: replyStaleButton}, nil
	}

	return e.run(ctx, userID, turnCallback, func(ctx context.Context, s *state.UserSession) (*Reply, error) {
		return e.press(ctx, s, unique, payload)
	})
}

// Wait blocks until queued operator notifications have finished.
func (e *Engine) Wait() {
	e.notifications.Wait()
}

type turnFunc func(ctx context.Context, s *state.UserSession) (*Reply, error)

func (e *Engine) run(ctx context.Context, userID int64, kind string, fn turnFunc) (*Reply, error) {
	start := time.Now()
	ctx, correlationID := logger.WithCorrelationID(ctx)
	log := e.log.With(slog.String("correlation_id", correlationID), slog.Int64("user_id", userID))

	ctx, cancel := context.WithTimeout(ctx, e.settings.TurnTimeout)
	defer cancel()

	outcome := outcomeOK
	defer func() {
		turnsTotal.WithLabelValues(kind, outcome).Inc()
		turnDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if e.deps.Admission != nil {
		decision := e.deps.Admission.Decide(ctx, userID)
		if !decision.Allowed {
			outcome = outcomeRateLimited
			log.Info("turn rejected by rate limiter", slog.Duration("retry_after", decision.RetryAfter))
			return &Reply{Text: apperrors.NewRateLimitError(retrySeconds(decision.RetryAfter)).UserMessage}, nil
		}
	}

	var reply *Reply
	err := e.deps.Store.WithSession(ctx, userID, func(s *state.UserSession) error {
		r, err := fn(ctx, s)
		if err != nil {
			return err
		}
		reply = r
		return nil
	})

	switch {
	case err == nil:
		log.Debug("turn handled", slog.Duration("elapsed", time.Since(start)))
		return reply, nil
	case apperrors.KindOf(err) == apperrors.KindSessionCorruption:
		outcome = outcomeReset
		message, _ := e.deps.Errors.Handle(ctx, err)
		return &Reply{Text: message, Markup: keyboard.MainMenu()}, nil
	default:
		outcome = outcomeError
		return nil, fmt.Errorf("dialogue turn for user %d: %w", userID, err)
	}
}

func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
