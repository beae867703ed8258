package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gigip2p-bot/internal/state"
)

type staticSessions struct {
	sessions []*state.UserSession
	err      error
}

func (s staticSessions) All(context.Context) ([]*state.UserSession, error) {
	return s.sessions, s.err
}

func TestStateCollectorCountsSessionsPerState(t *testing.T) {
	collector := NewStateCollector(staticSessions{sessions: []*state.UserSession{
		{UserID: 1, State: state.StateIdle},
		{UserID: 2, State: state.StateConfirming},
		{UserID: 3, State: state.StateConfirming},
	}}, 0)

	require.NoError(t, collector.collect(context.Background()))

	assert.Equal(t, 3.0, testutil.ToFloat64(activeSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(sessionsByState.WithLabelValues(string(state.StateConfirming))))
	assert.Equal(t, 0.0, testutil.ToFloat64(sessionsByState.WithLabelValues(string(state.StateAwaitingToken))))
}

func TestStateCollectorPropagatesStoreErrors(t *testing.T) {
	collector := NewStateCollector(staticSessions{err: errors.New("down")}, 0)
	assert.Error(t, collector.collect(context.Background()))
}

func TestRecordCommandDefaultsLabels(t *testing.T) {
	before := testutil.ToFloat64(botCommandsTotal.WithLabelValues("unknown", "unknown"))
	RecordCommand("", "", 0)
	assert.Equal(t, before+1, testutil.ToFloat64(botCommandsTotal.WithLabelValues("unknown", "unknown")))
}
