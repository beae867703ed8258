// Package bot is the Telegram transport: it turns updates into dialogue turns and replies back.
package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gigip2p-bot/internal/bot/handlers"
	errors "github.com/Proton-105/gigip2p-bot/internal/errors"
	"github.com/Proton-105/gigip2p-bot/internal/idempotency"
	"github.com/Proton-105/gigip2p-bot/internal/middleware"
	"github.com/Proton-105/gigip2p-bot/pkg/config"
)

// Bot wraps telebot.Bot with the router that feeds the dialogue engine.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	router     *Router
	errHandler *errors.Handler
	guard      idempotency.Guard
}

// Options carries the optional collaborators of New.
type Options struct {
	// Guard drops redelivered updates; nil disables deduplication.
	Guard idempotency.Guard
	// Errors reports handler failures; nil uses a handler without Sentry.
	Errors *errors.Handler
	// Offline skips the getMe call, for tests.
	Offline bool
}

// New builds a telegram bot instance configured according to the application settings.
// Updates are not handled until Mount is called.
func New(cfg config.BotConfig, log *slog.Logger, opts Options) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token:   cfg.Token,
		Offline: opts.Offline,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.WebhookListen,
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	errHandler := opts.Errors
	if errHandler == nil {
		errHandler = errors.NewHandler(log, false)
	}

	b := &Bot{
		telebot:    tb,
		log:        log,
		router:     NewRouter(log),
		errHandler: errHandler,
		guard:      opts.Guard,
	}

	return b, nil
}

// Mount routes every update to conv.
func (b *Bot) Mount(conv handlers.Conversation) error {
	if conv == nil {
		return fmt.Errorf("mount bot: conversation is nil")
	}

	b.setupRouter(conv, b.guard)
	b.registerTelebotHandlers()
	return nil
}

// Start registers the command menu and runs the telegram bot event loop. It blocks until Stop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	if err := b.telebot.SetCommands(menuCommands); err != nil {
		b.log.Warn("failed to register command menu", slog.Any("error", err))
	}

	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Router exposes the update router.
func (b *Bot) Router() *Router {
	return b.router
}

func (b *Bot) setupRouter(conv handlers.Conversation, guard idempotency.Guard) {
	// Idempotency sits inside error handling so it still sees the turn's error and can release
	// the claim.
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(middleware.Idempotency(guard, b.log))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics)

	for command, action := range commandActions {
		b.router.RegisterCommand(command, handlers.NewCommandHandler(conv, action, b.log))
	}
	b.router.RegisterCallback("", handlers.NewCallbackHandler(conv, b.log))
	b.router.SetDefault(handlers.NewTextHandler(conv, b.log))
}

func (b *Bot) registerTelebotHandlers() {
	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}
