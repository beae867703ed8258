package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gigip2p-bot/internal/notify"
)

func TestOperatorQueue_EnqueuesTask(t *testing.T) {
	mr := miniredis.RunT(t)
	redisOpt := asynq.RedisClientOpt{Addr: mr.Addr()}

	manager := NewManager(redisOpt, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = manager.Close() })

	queue := NewOperatorQueue(manager)
	require.NoError(t, queue.NotifyOperator(context.Background(), notify.Alert{UserID: 9, Token: "TON", Amount: 150}))

	inspector := asynq.NewInspector(redisOpt)
	t.Cleanup(func() { _ = inspector.Close() })

	tasks, err := inspector.ListPendingTasks(QueueCritical)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskTypeOperatorNotify, tasks[0].Type)

	var payload OperatorNotifyPayload
	require.NoError(t, json.Unmarshal(tasks[0].Payload, &payload))
	assert.Equal(t, int64(9), payload.Alert.UserID)
}
