package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gigip2p-bot/internal/health"
)

func TestShutdown_RunsEveryHookAndJoinsErrors(t *testing.T) {
	s := NewShutdown(nil)

	var ran atomic.Int32
	s.Register("engine", func(context.Context) error {
		ran.Add(1)
		return nil
	})
	s.Register("redis", func(context.Context) error {
		ran.Add(1)
		return errors.New("already closed")
	})
	s.Register("nil", nil)

	err := s.Execute(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: already closed")
	assert.Equal(t, int32(2), ran.Load())
}

func TestProbes_ReadinessFollowsChecksAndDrain(t *testing.T) {
	var failing atomic.Bool
	checker := health.NewChecker(nil)
	checker.AddCheck("redis", health.CheckFunc(func(context.Context) error {
		if failing.Load() {
			return errors.New("down")
		}
		return nil
	}))

	probes := NewProbes(checker, nil)
	mux := http.NewServeMux()
	probes.Register(mux)

	get := func(path string) int {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/readyz"))

	failing.Store(true)
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
	assert.Equal(t, http.StatusOK, get("/healthz"))

	failing.Store(false)
	probes.Drain()
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
}

func TestShutdown_PhasesRunInOrder(t *testing.T) {
	s := NewShutdown(nil)

	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	s.Register("close redis", record("close redis"))
	s.RegisterPhase(PhaseDrain, "wait notifications", record("wait notifications"))
	s.RegisterPhase(PhaseIngress, "stop bot", record("stop bot"))

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"stop bot", "wait notifications", "close redis"}, order)
}
