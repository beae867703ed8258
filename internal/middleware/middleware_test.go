package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gigip2p-bot/internal/idempotency"
	"github.com/Proton-105/gigip2p-bot/pkg/logger"
)

type fakeContext struct {
	telebot.Context
	text     string
	message  *telebot.Message
	callback *telebot.Callback
}

func (f *fakeContext) Text() string                { return f.text }
func (f *fakeContext) Message() *telebot.Message   { return f.message }
func (f *fakeContext) Callback() *telebot.Callback { return f.callback }

func TestUpdateKey(t *testing.T) {
	chat := &telebot.Chat{ID: 5}

	assert.Equal(t, "cb:abc", UpdateKey(&fakeContext{callback: &telebot.Callback{ID: "abc"}}))
	assert.Equal(t, "cb-msg:5:9", UpdateKey(&fakeContext{callback: &telebot.Callback{Message: &telebot.Message{ID: 9, Chat: chat}}}))
	assert.Equal(t, "msg:5:12", UpdateKey(&fakeContext{message: &telebot.Message{ID: 12, Chat: chat}}))
	assert.Empty(t, UpdateKey(&fakeContext{}))
	assert.Empty(t, UpdateKey(nil))
}

func TestCommandLabel(t *testing.T) {
	assert.Equal(t, "/buy", commandLabel(&fakeContext{text: "/buy@gigi_bot 10 TON"}))
	assert.Equal(t, "text", commandLabel(&fakeContext{text: "sell 50 ton"}))
	assert.Equal(t, "callback:token", commandLabel(&fakeContext{callback: &telebot.Callback{Data: "\ftoken:TON"}}))
	assert.Equal(t, "callback", commandLabel(&fakeContext{callback: &telebot.Callback{Data: ""}}))
	assert.Equal(t, "unknown", commandLabel(&fakeContext{}))
}

func TestIdempotency_SkipsRedeliveredUpdate(t *testing.T) {
	guard := idempotency.NewGuard(idempotency.NewMemoryStore(), time.Hour, nil)

	calls := 0
	handler := Idempotency(guard, nil)(func(telebot.Context) error {
		calls++
		return nil
	})

	c := &fakeContext{message: &telebot.Message{ID: 1, Chat: &telebot.Chat{ID: 1}}}
	require.NoError(t, handler(c))
	require.NoError(t, handler(c))

	assert.Equal(t, 1, calls)
}

func TestIdempotency_PassesHandlerErrors(t *testing.T) {
	guard := idempotency.NewGuard(idempotency.NewMemoryStore(), time.Hour, nil)
	boom := errors.New("boom")

	handler := Idempotency(guard, nil)(func(telebot.Context) error { return boom })

	err := handler(&fakeContext{message: &telebot.Message{ID: 1, Chat: &telebot.Chat{ID: 1}}})
	assert.ErrorIs(t, err, boom)
}

func TestMetrics_PassesThroughResult(t *testing.T) {
	boom := errors.New("boom")
	handler := Metrics(func(telebot.Context) error { return boom })

	assert.ErrorIs(t, handler(&fakeContext{text: "/start"}), boom)
}

func TestHTTPLogging_KeepsStatusAndAddsCorrelationID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	New(nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(context.Background()))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, seen)
}
