package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/gigip2p-bot/internal/bot"
	"github.com/Proton-105/gigip2p-bot/internal/database"
	"github.com/Proton-105/gigip2p-bot/internal/dialogue"
	apperrors "github.com/Proton-105/gigip2p-bot/internal/errors"
	"github.com/Proton-105/gigip2p-bot/internal/extract"
	"github.com/Proton-105/gigip2p-bot/internal/health"
	"github.com/Proton-105/gigip2p-bot/internal/idempotency"
	"github.com/Proton-105/gigip2p-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/gigip2p-bot/internal/jobs/handlers"
	"github.com/Proton-105/gigip2p-bot/internal/lifecycle"
	"github.com/Proton-105/gigip2p-bot/internal/middleware"
	"github.com/Proton-105/gigip2p-bot/internal/notify"
	"github.com/Proton-105/gigip2p-bot/internal/order"
	"github.com/Proton-105/gigip2p-bot/internal/quote"
	"github.com/Proton-105/gigip2p-bot/internal/ratelimit"
	"github.com/Proton-105/gigip2p-bot/internal/recipient"
	"github.com/Proton-105/gigip2p-bot/internal/repository"
	"github.com/Proton-105/gigip2p-bot/internal/state"
	"github.com/Proton-105/gigip2p-bot/internal/token"
	"github.com/Proton-105/gigip2p-bot/pkg/config"
	"github.com/Proton-105/gigip2p-bot/pkg/graceful"
	"github.com/Proton-105/gigip2p-bot/pkg/logger"
	"github.com/Proton-105/gigip2p-bot/pkg/metrics"
	redisclient "github.com/Proton-105/gigip2p-bot/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gigip2p bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, watcher, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)
	log.Info("starting gigip2p bot", slog.String("mode", cfg.Bot.Mode), slog.String("storage", cfg.Dialogue.Storage))

	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log)
	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	var rdb *goredis.Client
	if cfg.Redis.Enabled {
		rdb, err = redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		shutdown.Register("redis", func(context.Context) error { return rdb.Close() })
		checker.AddCheck("redis", health.NewRedisChecker(rdb))
	}

	var journal dialogue.OrderJournal
	if cfg.Database.DSN != "" {
		db, err := database.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		shutdown.Register("postgres", func(context.Context) error { return db.Close() })
		checker.AddCheck("postgres", health.NewDBChecker(db))

		if err := database.NewMigrator(db, log).ApplyDir(ctx, cfg.Database.MigrationsDir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		journal = repository.NewOrderRepository(db, log)
	}

	catalog := token.NewCatalog(cfg.Trade)

	quoteCache, err := quote.NewBigCache(ctx, cfg.Quote.TTL, log)
	if err != nil {
		return err
	}
	shutdown.Register("quote cache", func(context.Context) error { return quoteCache.Close() })

	quotes := quote.NewService(
		quote.NewHTTPSource(cfg.Quote.SourceURL, cfg.Quote.QuoteAsset, cfg.Quote.RequestTimeout),
		quoteCache,
		log,
		quote.WithTTL(cfg.Quote.TTL),
		quote.WithPegged(cfg.Quote.Pegged),
		quote.WithRetryPolicy(apperrors.RetryPolicy{
			MaxAttempts: cfg.Quote.MaxAttempts,
			Delay:       cfg.Quote.RetryDelay,
			Multiplier:  1,
		}),
	)

	var registry recipient.Registry
	if cfg.Recipient.RegistryURL != "" {
		registry = recipient.NewHTTPRegistry(cfg.Recipient.RegistryURL, &http.Client{Timeout: cfg.Recipient.RequestTimeout})
	}
	resolver := recipient.NewResolver(registry, catalog, cfg.Recipient, log)

	links, err := order.NewSigningLinks(cfg.Signing.BaseURL, catalog)
	if err != nil {
		return fmt.Errorf("signing links: %w", err)
	}

	admission, err := buildAdmission(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}

	store := buildStore(ctx, cfg, rdb, log)
	go metrics.NewStateCollector(store, 0).Run(ctx)

	telegram, err := bot.New(cfg.Bot, log, bot.Options{
		Guard:  buildGuard(ctx, rdb, log),
		Errors: errHandler,
	})
	if err != nil {
		return err
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(telegram.Telebot()))

	operator, err := buildOperator(cfg, rdb, telegram, quotes, catalog, shutdown, log)
	if err != nil {
		return err
	}

	deps := dialogue.Deps{
		Store:      store,
		Extractor:  extract.New(catalog, cfg.Intents.Synonyms),
		Catalog:    catalog,
		Quotes:     quotes,
		Recipients: resolver,
		Links:      links,
		Operator:   operator,
		Journal:    journal,
		Errors:     errHandler,
	}
	if admission != nil {
		deps.Admission = admission
	}

	engine, err := dialogue.New(deps, dialogue.SettingsFromConfig(cfg), log)
	if err != nil {
		return err
	}
	if err := telegram.Mount(engine); err != nil {
		return err
	}

	config.Watch(watcher, log, func(next *config.Config) {
		resolver.UpdateFallback(next.Recipient)
	})

	probes := lifecycle.NewProbes(checker, log)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	probes.Register(mux)
	ops := graceful.NewServer(log, cfg.Server.Port, middleware.New(log)(mux), cfg.Server.ShutdownTimeout)

	opsDone := make(chan error, 1)
	go func() { opsDone <- ops.ListenAndServe(ctx) }()
	go telegram.Start()

	shutdown.RegisterPhase(lifecycle.PhaseIngress, "telegram", func(context.Context) error {
		telegram.Stop()
		return nil
	})
	shutdown.RegisterPhase(lifecycle.PhaseDrain, "operator notifications", func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			engine.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	log.Info("gigip2p bot started")

	select {
	case <-ctx.Done():
	case err := <-opsDone:
		if err != nil {
			log.Error("ops server stopped", slog.Any("error", err))
		}
	}

	log.Info("gigip2p bot shutting down")
	probes.Drain()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}

func buildAdmission(ctx context.Context, cfg *config.Config, rdb *goredis.Client, log *slog.Logger) (*ratelimit.Admission, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	window, err := cfg.RateLimit.RateWindow()
	if err != nil {
		return nil, err
	}

	memory := ratelimit.NewMemoryLimiter(log)
	go memory.RunCleanup(ctx, cfg.RateLimit.CleanupInterval, window)

	var limiter ratelimit.Limiter = memory
	switch cfg.RateLimit.Backend {
	case "redis", "adaptive":
		if rdb == nil {
			log.Warn("rate limit backend needs redis, using memory", slog.String("backend", cfg.RateLimit.Backend))
			break
		}
		redisLimiter := ratelimit.NewRedisLimiter(rdb, log)
		go ratelimit.NewCleaner(rdb, log, cfg.RateLimit.CleanupInterval, window).Run(ctx)

		limiter = redisLimiter
		if cfg.RateLimit.Backend == "adaptive" {
			limiter = ratelimit.NewAdaptiveLimiter(redisLimiter, memory, log)
		}
	}

	return ratelimit.NewAdmission(limiter, ratelimit.NewRules(cfg.RateLimit), log), nil
}

func buildStore(ctx context.Context, cfg *config.Config, rdb *goredis.Client, log *slog.Logger) *state.Store {
	var (
		storage state.Storage
		opts    []state.StoreOption
	)

	if cfg.Dialogue.Storage == "redis" && rdb != nil {
		storage = state.NewRedisStorage(rdb, log, cfg.Dialogue.SessionTTL)
	} else {
		if cfg.Dialogue.Storage == "redis" {
			log.Warn("session storage needs redis, using memory")
		}
		storage = state.NewMemoryStorage()
		go state.NewCleaner(storage, log, cfg.Dialogue.SessionTTL, cfg.Dialogue.CleanupInterval).Run(ctx)
	}

	if cfg.Dialogue.DistributedLocks {
		opts = append(opts, state.WithDistributedLock(rdb, cfg.Dialogue.LockTTL))
	}

	return state.NewStore(storage, log, opts...)
}

func buildGuard(ctx context.Context, rdb *goredis.Client, log *slog.Logger) idempotency.Guard {
	if rdb != nil {
		return idempotency.NewGuard(idempotency.NewRedisStore(rdb, log), 0, log)
	}

	store := idempotency.NewMemoryStore()
	go idempotency.NewCleaner(store, log, 0).Run(ctx)
	return idempotency.NewGuard(store, 0, log)
}

// buildOperator picks how high-value alerts reach the operator chat: through the job queue when
// Redis and jobs are enabled, straight to Telegram otherwise, or only to the log without a chat id.
func buildOperator(
	cfg *config.Config,
	rdb *goredis.Client,
	telegram *bot.Bot,
	quotes *quote.Service,
	catalog *token.Catalog,
	shutdown *lifecycle.Shutdown,
	log *slog.Logger,
) (notify.Operator, error) {
	var direct notify.Operator = notify.NewLogNotifier(log)
	if cfg.Bot.OperatorChatID != 0 {
		tn, err := notify.NewTelegramNotifier(telegram.Telebot(), cfg.Bot.OperatorChatID)
		if err != nil {
			return nil, err
		}
		direct = tn
	} else {
		log.Warn("operator chat id not configured, high-value alerts go to the log only")
	}

	if !cfg.Jobs.Enabled {
		return direct, nil
	}
	if rdb == nil {
		log.Warn("jobs need redis, delivering operator alerts inline")
		return direct, nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	manager := jobs.NewManager(redisOpt, log)
	shutdown.Register("jobs client", func(context.Context) error { return manager.Close() })

	worker := jobs.NewWorker(redisOpt, cfg.Jobs.Concurrency, log)
	worker.RegisterHandler(jobs.TaskTypeOperatorNotify, jobhandlers.NewOperatorNotifyHandler(direct, log))
	worker.RegisterHandler(jobs.TaskTypeQuoteWarmup, jobhandlers.NewQuoteWarmupHandler(quotes, log))
	if err := worker.Run(); err != nil {
		return nil, fmt.Errorf("start jobs worker: %w", err)
	}
	shutdown.RegisterPhase(lifecycle.PhaseDrain, "jobs worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})

	scheduler := jobs.NewScheduler(redisOpt, cfg.Jobs.QuoteWarmupSchedule, catalog.Symbols(), log)
	if err := scheduler.RegisterTasks(); err != nil {
		return nil, fmt.Errorf("register scheduled jobs: %w", err)
	}
	go scheduler.Run()
	shutdown.RegisterPhase(lifecycle.PhaseIngress, "jobs scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})

	return jobs.NewOperatorQueue(manager), nil
}
