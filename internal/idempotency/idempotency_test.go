package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, nil), mr
}

func TestGuardRunsOncePerKey(t *testing.T) {
	store, _ := newRedisStore(t)
	g := NewGuard(store, time.Hour, nil)

	calls := 0
	op := func(context.Context) error {
		calls++
		return nil
	}

	require.NoError(t, g.Once(context.Background(), "msg:1:10", op))
	err := g.Once(context.Background(), "msg:1:10", op)
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, g.Once(context.Background(), "msg:1:11", op))

	assert.Equal(t, 2, calls)
}

func TestGuardReleasesKeyOnFailure(t *testing.T) {
	g := NewGuard(NewMemoryStore(), time.Hour, nil)
	boom := errors.New("boom")

	err := g.Once(context.Background(), "cb:7", func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	calls := 0
	require.NoError(t, g.Once(context.Background(), "cb:7", func(context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestGuardReleasesKeyOnPanic(t *testing.T) {
	g := NewGuard(NewMemoryStore(), time.Hour, nil)

	require.Panics(t, func() {
		_ = g.Once(context.Background(), "msg:1:3", func(context.Context) error { panic("boom") })
	})

	calls := 0
	require.NoError(t, g.Once(context.Background(), "msg:1:3", func(context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestGuardFailsOpenWhenRedisIsDown(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()
	g := NewGuard(store, time.Hour, nil)

	calls := 0
	require.NoError(t, g.Once(context.Background(), "msg:1:1", func(context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestRedisStoreClaimExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = store.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStorePrune(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = store.Claim(ctx, "old", time.Minute)
	_, _ = store.Claim(ctx, "new", time.Hour)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, store.Prune(ctx))

	ok, _ := store.Claim(ctx, "old", time.Minute)
	assert.True(t, ok)
	ok, _ = store.Claim(ctx, "new", time.Minute)
	assert.False(t, ok)
}

func TestGenerateKeyIsDeterministic(t *testing.T) {
	assert.Equal(t, GenerateKey("cb", 1), GenerateKey("cb", 1))
	assert.NotEqual(t, GenerateKey("cb", 1), GenerateKey("cb", 2))
}
