package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/gigip2p-bot/internal/notify"
)

const (
	TaskTypeOperatorNotify = "operator:notify"
	TaskTypeQuoteWarmup    = "quote:warmup"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues is the weighted queue set served by the worker.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

type OperatorNotifyPayload struct {
	Alert notify.Alert `json:"alert"`
}

type QuoteWarmupPayload struct {
	Symbols []string `json:"symbols"`
}

func NewOperatorNotifyTask(alert notify.Alert) (*asynq.Task, error) {
	payload, err := json.Marshal(OperatorNotifyPayload{Alert: alert})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeOperatorNotify, payload, asynq.Queue(QueueCritical), asynq.MaxRetry(5)), nil
}

func NewQuoteWarmupTask(symbols []string) (*asynq.Task, error) {
	payload, err := json.Marshal(QuoteWarmupPayload{Symbols: symbols})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeQuoteWarmup, payload, asynq.Queue(QueueLow), asynq.MaxRetry(0)), nil
}
