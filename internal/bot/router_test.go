package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gigip2p-bot/internal/bot/keyboard"
	"github.com/Proton-105/gigip2p-bot/internal/dialogue"
	"github.com/Proton-105/gigip2p-bot/internal/idempotency"
	"github.com/Proton-105/gigip2p-bot/pkg/config"
)

type fakeContext struct {
	telebot.Context
	sender   *telebot.User
	text     string
	message  *telebot.Message
	callback *telebot.Callback
	sent     []interface{}
}

func (f *fakeContext) Sender() *telebot.User       { return f.sender }
func (f *fakeContext) Text() string                { return f.text }
func (f *fakeContext) Message() *telebot.Message   { return f.message }
func (f *fakeContext) Callback() *telebot.Callback { return f.callback }

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeContext) Respond(...*telebot.CallbackResponse) error { return nil }

type scriptedConversation struct {
	turns     []string
	callbacks []string
	err       error
	panics    bool
	// failFirst and panicFirst break that many turns before behaving
	failFirst  int
	panicFirst int
}

func (s *scriptedConversation) HandleTurn(_ context.Context, _ int64, text string) (*dialogue.Reply, error) {
	if s.panics {
		panic("engine exploded")
	}
	if s.panicFirst > 0 {
		s.panicFirst--
		panic("engine exploded")
	}
	s.turns = append(s.turns, text)
	if s.err != nil {
		return nil, s.err
	}
	if s.failFirst > 0 {
		s.failFirst--
		return nil, errors.New("storage down")
	}
	return &dialogue.Reply{Text: "turn:" + text}, nil
}

func (s *scriptedConversation) HandleCallback(_ context.Context, _ int64, data string) (*dialogue.Reply, error) {
	s.callbacks = append(s.callbacks, data)
	return &dialogue.Reply{Text: "press:" + data}, nil
}

func newTestBot(t *testing.T, conv *scriptedConversation, guard idempotency.Guard) *Bot {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := New(config.BotConfig{Token: "123:test", Timeout: time.Second}, log, Options{Offline: true, Guard: guard})
	require.NoError(t, err)
	require.NoError(t, b.Mount(conv))
	return b
}

func message(id int, text string) *fakeContext {
	return &fakeContext{
		sender:  &telebot.User{ID: 42},
		text:    text,
		message: &telebot.Message{ID: id, Text: text, Chat: &telebot.Chat{ID: 42}},
	}
}

func TestRoute_CommandsMapToButtons(t *testing.T) {
	cases := map[string]string{
		"/start":             keyboard.ActionStart,
		"/help":              keyboard.ActionHelp,
		"/buy":               keyboard.ActionBuy,
		"/sell@gigi_bot":     keyboard.ActionSell,
		"/fiat":              keyboard.ActionChooseFiat,
		"/connect_wallet":    keyboard.ActionConnectWallet,
		"/CANCEL extra args": keyboard.ActionCancel,
	}

	for text, action := range cases {
		t.Run(text, func(t *testing.T) {
			conv := &scriptedConversation{}
			b := newTestBot(t, conv, nil)

			require.NoError(t, b.Router().Route(message(1, text)))
			assert.Equal(t, []string{action}, conv.callbacks)
			assert.Empty(t, conv.turns)
		})
	}
}

func TestRoute_TextAndUnknownCommandsGoToEngine(t *testing.T) {
	conv := &scriptedConversation{}
	b := newTestBot(t, conv, nil)

	c := message(1, "buy 5 ton")
	require.NoError(t, b.Router().Route(c))
	require.NoError(t, b.Router().Route(message(2, "/portfolio")))

	assert.Equal(t, []string{"buy 5 ton", "/portfolio"}, conv.turns)
	assert.Equal(t, []interface{}{"turn:buy 5 ton"}, c.sent)
}

func TestRoute_CallbacksGoToEngine(t *testing.T) {
	conv := &scriptedConversation{}
	b := newTestBot(t, conv, nil)

	c := &fakeContext{sender: &telebot.User{ID: 42}, callback: &telebot.Callback{ID: "cb1", Data: "\fnetwork:tron"}}
	require.NoError(t, b.Router().Route(c))

	assert.Equal(t, []string{"\fnetwork:tron"}, conv.callbacks)
}

func TestRoute_DuplicateUpdatesAreSkipped(t *testing.T) {
	conv := &scriptedConversation{}
	guard := idempotency.NewGuard(idempotency.NewMemoryStore(), time.Hour, nil)
	b := newTestBot(t, conv, guard)

	require.NoError(t, b.Router().Route(message(10, "hi")))
	require.NoError(t, b.Router().Route(message(10, "hi")))
	require.NoError(t, b.Router().Route(message(11, "hi")))

	assert.Len(t, conv.turns, 2)
}

func TestRoute_FailedTurnRunsAgainOnRedelivery(t *testing.T) {
	conv := &scriptedConversation{failFirst: 1}
	guard := idempotency.NewGuard(idempotency.NewMemoryStore(), time.Hour, nil)
	b := newTestBot(t, conv, guard)

	first := message(10, "buy 5 ton")
	require.NoError(t, b.Router().Route(first))
	require.Len(t, first.sent, 1)

	again := message(10, "buy 5 ton")
	require.NoError(t, b.Router().Route(again))

	assert.Len(t, conv.turns, 2)
	assert.Equal(t, []interface{}{"turn:buy 5 ton"}, again.sent)

	require.NoError(t, b.Router().Route(message(10, "buy 5 ton")))
	assert.Len(t, conv.turns, 2)
}

func TestRoute_PanickedTurnRunsAgainOnRedelivery(t *testing.T) {
	conv := &scriptedConversation{panicFirst: 1}
	guard := idempotency.NewGuard(idempotency.NewMemoryStore(), time.Hour, nil)
	b := newTestBot(t, conv, guard)

	require.NoError(t, b.Router().Route(message(10, "hi")))
	assert.Empty(t, conv.turns)

	again := message(10, "hi")
	require.NoError(t, b.Router().Route(again))
	assert.Equal(t, []string{"hi"}, conv.turns)
	assert.Equal(t, []interface{}{"turn:hi"}, again.sent)
}

func TestRoute_EngineErrorBecomesUserMessage(t *testing.T) {
	conv := &scriptedConversation{err: errors.New("storage down")}
	b := newTestBot(t, conv, nil)

	c := message(1, "hi")
	require.NoError(t, b.Router().Route(c))

	require.Len(t, c.sent, 1)
	assert.NotEmpty(t, c.sent[0])
}

func TestRoute_PanicIsRecovered(t *testing.T) {
	conv := &scriptedConversation{panics: true}
	b := newTestBot(t, conv, nil)

	c := message(1, "hi")
	require.NotPanics(t, func() {
		assert.NoError(t, b.Router().Route(c))
	})
	assert.Equal(t, []interface{}{genericErrorMessage}, c.sent)
}

func TestMount_RequiresConversation(t *testing.T) {
	b, err := New(config.BotConfig{Token: "123:test"}, nil, Options{Offline: true})
	require.NoError(t, err)
	assert.Error(t, b.Mount(nil))
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/buy", commandName("/buy@gigi_bot 10 TON"))
	assert.Equal(t, "/start", commandName("/Start"))
	assert.Equal(t, "", commandName("   "))
}
