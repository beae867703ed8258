package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	spec           string
	symbols        []string
	log            *slog.Logger
}

// NewScheduler schedules the quote warm-up for symbols with a cron spec such as "@every 45s".
func NewScheduler(redisOpt asynq.RedisConnOpt, spec string, symbols []string, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		spec:           spec,
		symbols:        symbols,
		log:            log,
	}
}

func (s *scheduler) RegisterTasks() error {
	if s.spec == "" {
		s.log.InfoContext(context.Background(), "scheduler: quote warm-up disabled")
		return nil
	}

	task, err := NewQuoteWarmupTask(s.symbols)
	if err != nil {
		return err
	}

	if _, err := s.asynqScheduler.Register(s.spec, task); err != nil {
		return err
	}

	s.log.InfoContext(context.Background(), "scheduler: registered quote warm-up task", slog.String("spec", s.spec))
	return nil
}

func (s *scheduler) Run() {
	s.log.InfoContext(context.Background(), "scheduler: starting")

	go func() {
		if err := s.asynqScheduler.Run(); err != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", "error", err)
		}
	}()
}

func (s *scheduler) Shutdown() {
	s.log.InfoContext(context.Background(), "scheduler: shutting down")
	s.asynqScheduler.Shutdown()
}
