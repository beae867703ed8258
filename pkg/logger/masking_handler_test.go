package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskingHandler_MasksSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewTextHandler(&buf, nil)))

	log.With(slog.String("bot_token", "123:abc")).Info("starting",
		slog.String("password", "hunter2"),
		slog.Group("redis", slog.String("secret", "s3"), slog.String("addr", "localhost:6379")),
		slog.String("user", "alice"),
	)

	out := buf.String()
	assert.NotContains(t, out, "123:abc")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3")
	assert.Contains(t, out, "localhost:6379")
	assert.Contains(t, out, "user=alice")
}

func TestFanoutHandler_RespectsLevels(t *testing.T) {
	var infoBuf, errorBuf bytes.Buffer
	handler := NewFanoutHandler(
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(handler)

	log.Info("turn handled")
	log.Error("quote unavailable")

	assert.Contains(t, infoBuf.String(), "turn handled")
	assert.Contains(t, infoBuf.String(), "quote unavailable")
	assert.NotContains(t, errorBuf.String(), "turn handled")
	assert.Contains(t, errorBuf.String(), "quote unavailable")
}

func TestWithCorrelationID_ReusesExisting(t *testing.T) {
	ctx, first := WithCorrelationID(context.Background())
	assert.NotEmpty(t, first)

	_, second := WithCorrelationID(ctx)
	assert.Equal(t, first, second)
	assert.Equal(t, first, CorrelationIDFromContext(ctx))
}
