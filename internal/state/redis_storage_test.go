package state

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gigip2p-bot/internal/order"
)

func TestRedisStorage_SaveAndGet(t *testing.T) {
	_, client := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger(), time.Hour)

	ctx := context.Background()
	session := &UserSession{
		UserID:  123,
		State:   StateAwaitingAmount,
		Action:  order.Sell,
		Slots:   Slots{Token: "USDT", Network: "tron"},
		History: []string{"sell"},
		Fiat:    "NGN",
	}

	require.NoError(t, storage.SaveSession(ctx, session))

	result, err := storage.GetSession(ctx, session.UserID)
	require.NoError(t, err)
	assert.Equal(t, session.State, result.State)
	assert.Equal(t, session.Action, result.Action)
	assert.Equal(t, session.Slots, result.Slots)
	assert.Equal(t, session.History, result.History)
	assert.Equal(t, "NGN", result.Fiat)
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	_, client := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger(), time.Hour)

	session, err := storage.GetSession(context.Background(), 999)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_CorruptPayload(t *testing.T) {
	mr, client := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger(), time.Hour)

	require.NoError(t, mr.Set(sessionKey(5), "{not json"))

	_, err := storage.GetSession(context.Background(), 5)
	assert.ErrorIs(t, err, ErrSessionCorrupt)
}

func TestRedisStorage_ClearAndList(t *testing.T) {
	mr, client := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	require.NoError(t, storage.SaveSession(ctx, NewSession(1)))
	require.NoError(t, storage.SaveSession(ctx, NewSession(2)))
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(1)))

	all, err := storage.GetAllSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, storage.ClearSession(ctx, 1))

	_, err = storage.GetSession(ctx, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_ListSkipsLockKeys(t *testing.T) {
	mr, client := setupTestRedis(t)
	var buf bytes.Buffer
	storage := NewRedisStorage(client, slog.New(slog.NewTextHandler(&buf, nil)), time.Hour)
	ctx := context.Background()

	require.NoError(t, storage.SaveSession(ctx, NewSession(2)))
	require.NoError(t, mr.Set(fmt.Sprintf(userLockKeyPattern, 2), "owner"))

	all, err := storage.GetAllSessions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].UserID)
	assert.NotContains(t, buf.String(), "failed to decode session")
}
