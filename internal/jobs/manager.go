package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/gigip2p-bot/internal/notify"
)

// Manager describes the minimal queue operations needed by the application.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type manager struct {
	client *asynq.Client
	log    *slog.Logger
}

// NewManager builds a Manager backed by an asynq client.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		client: asynq.NewClient(redisOpt),
		log:    log,
	}
}

func (m *manager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		m.log.ErrorContext(ctx, "jobs: enqueue failed", slog.String("task_type", task.Type()), slog.Any("error", err))
		return nil, err
	}

	m.log.DebugContext(ctx, "jobs: task enqueued", slog.String("task_type", task.Type()), slog.String("task_id", info.ID))
	return info, nil
}

func (m *manager) Close() error {
	return m.client.Close()
}

// OperatorQueue hands alerts to the worker, which retries delivery on its own schedule.
type OperatorQueue struct {
	manager Manager
}

var _ notify.Operator = (*OperatorQueue)(nil)

func NewOperatorQueue(manager Manager) *OperatorQueue {
	return &OperatorQueue{manager: manager}
}

func (q *OperatorQueue) NotifyOperator(ctx context.Context, alert notify.Alert) error {
	task, err := NewOperatorNotifyTask(alert)
	if err != nil {
		return fmt.Errorf("build operator task: %w", err)
	}

	if _, err := q.manager.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueue operator task: %w", err)
	}
	return nil
}
