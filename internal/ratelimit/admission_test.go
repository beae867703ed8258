package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Proton-105/gigip2p-bot/pkg/config"
)

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, errors.New("connection refused")
}

func testRules(policy string) *Rules {
	return NewRules(config.RateLimitConfig{
		Enabled:       true,
		FailurePolicy: policy,
		PerUser:       config.RateLimitRule{Limit: 10, Window: "60s"},
		Whitelist:     []int64{42},
	})
}

func TestAdmission_TenTurnsThenReject(t *testing.T) {
	clock := newFakeClock()
	limiter := NewMemoryLimiter(testLogger(), WithClock(clock.Now))
	admission := NewAdmission(limiter, testRules("open"), testLogger(), WithAdmissionClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		assert.True(t, admission.Admit(ctx, 7), "turn %d", i+1)
	}

	decision := admission.Decide(ctx, 7)
	assert.False(t, decision.Allowed)
	assert.False(t, decision.Degraded)
	assert.Equal(t, time.Minute, decision.RetryAfter)

	assert.True(t, admission.Admit(ctx, 8), "other users are unaffected")

	clock.Advance(time.Minute + time.Second)
	assert.True(t, admission.Admit(ctx, 7))
}

func TestAdmission_Whitelist(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	admission := NewAdmission(limiter, testRules("open"), testLogger())

	for i := 0; i < 20; i++ {
		assert.True(t, admission.Admit(context.Background(), 42))
	}
}

func TestAdmission_FailurePolicy(t *testing.T) {
	testCases := []struct {
		name    string
		rules   *Rules
		opts    []AdmissionOption
		allowed bool
	}{
		{name: "fail open from config", rules: testRules("open"), allowed: true},
		{name: "fail closed from config", rules: testRules("closed"), allowed: false},
		{name: "option overrides config", rules: testRules("open"), opts: []AdmissionOption{WithFailurePolicy(FailClosed)}, allowed: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			admission := NewAdmission(failingLimiter{}, tc.rules, testLogger(), tc.opts...)
			decision := admission.Decide(context.Background(), 7)
			assert.Equal(t, tc.allowed, decision.Allowed)
			assert.True(t, decision.Degraded)
		})
	}
}

func TestAdmission_Disabled(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{Enabled: false})
	admission := NewAdmission(failingLimiter{}, rules, testLogger(), WithFailurePolicy(FailClosed))

	assert.True(t, admission.Admit(context.Background(), 7))
}

func TestAdaptiveLimiter_FallsBackToMemory(t *testing.T) {
	fallback := NewMemoryLimiter(testLogger())
	limiter := NewAdaptiveLimiter(failingLimiter{}, fallback, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := limiter.Check(ctx, "user:1", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "user:1", 10, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, result.Allowed)
}
