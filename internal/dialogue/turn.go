package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Proton-105/gigip2p-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/gigip2p-bot/internal/errors"
	"github.com/Proton-105/gigip2p-bot/internal/extract"
	"github.com/Proton-105/gigip2p-bot/internal/notify"
	"github.com/Proton-105/gigip2p-bot/internal/order"
	"github.com/Proton-105/gigip2p-bot/internal/quote"
	"github.com/Proton-105/gigip2p-bot/internal/state"
	"github.com/Proton-105/gigip2p-bot/internal/token"
)

func newOrderID() string {
	return uuid.NewString()
}

// step handles free text. Cancel and exit win in every state, the slot states parse their slot,
// and idle dispatches on the classified intent.
func (e *Engine) step(ctx context.Context, s *state.UserSession, text string) (*Reply, error) {
	intent, ent := e.deps.Extractor.Extract(text)
	tone := extract.Sentiment(text)
	s.Remember(string(intent), e.settings.HistoryLimit)

	switch intent {
	case extract.IntentCancel:
		return e.cancel(s), nil
	case extract.IntentExit:
		s.Reset()
		return &Reply{Text: pick(goodbyeReplies, tone)}, nil
	}

	switch s.State {
	case state.StateAwaitingToken:
		return e.onToken(ctx, s, text, ent)
	case state.StateAwaitingNetwork:
		return e.onNetwork(ctx, s, text, ent)
	case state.StateAwaitingAmount:
		return e.onAmount(ctx, s, ent)
	case state.StateConfirming:
		return e.confirm(ctx, s)
	}

	return e.onIdle(ctx, s, intent, ent, tone)
}

// press handles a button. Buttons from an earlier step of the flow are answered, not applied.
func (e *Engine) press(ctx context.Context, s *state.UserSession, unique, payload string) (*Reply, error) {
	switch unique {
	case keyboard.ActionStart:
		return &Reply{Text: pick(greetingReplies, extract.ToneNeutral), Markup: keyboard.MainMenu()}, nil
	case keyboard.ActionHelp:
		return &Reply{Text: replyHelp, Markup: keyboard.MainMenu()}, nil
	case keyboard.ActionCancel:
		return e.cancel(s), nil
	case keyboard.ActionBuy, keyboard.ActionSell:
		if s.State != state.StateIdle {
			return &Reply{Text: replyBusy, Markup: keyboard.CancelButton()}, nil
		}
		action, _ := order.ParseAction(unique)
		return e.start(ctx, s, action, extract.Entities{})
	case keyboard.ActionToken:
		if s.State != state.StateAwaitingToken {
			return &Reply{Text: replyStaleButton}, nil
		}
		return e.onToken(ctx, s, payload, e.deps.Extractor.Entities(payload))
	case keyboard.ActionNetwork:
		if s.State != state.StateAwaitingNetwork {
			return &Reply{Text: replyStaleButton}, nil
		}
		return e.onNetwork(ctx, s, payload, extract.Entities{})
	case keyboard.ActionAmount:
		if s.State != state.StateAwaitingAmount {
			return &Reply{Text: replyStaleButton}, nil
		}
		return e.onAmount(ctx, s, e.deps.Extractor.Entities(payload))
	case keyboard.ActionConfirm:
		if s.State != state.StateConfirming {
			return &Reply{Text: replyStaleButton}, nil
		}
		return e.confirm(ctx, s)
	case keyboard.ActionChooseFiat:
		return &Reply{Text: replyChooseFiat, Markup: keyboard.FiatMenu(e.settings.Fiats, e.fiat(s))}, nil
	case keyboard.ActionFiat:
		return e.setFiat(s, payload), nil
	case keyboard.ActionConnectWallet:
		return e.connectWallet(), nil
	case keyboard.ActionWallet:
		return walletComingSoon(payload), nil
	default:
		return &Reply{Text: replyStaleButton}, nil
	}
}

func (e *Engine) onIdle(ctx context.Context, s *state.UserSession, intent extract.Intent, ent extract.Entities, tone extract.Tone) (*Reply, error) {
	switch intent {
	case extract.IntentBuy:
		return e.start(ctx, s, order.Buy, ent)
	case extract.IntentSell:
		return e.start(ctx, s, order.Sell, ent)
	case extract.IntentConnectWallet:
		return e.connectWallet(), nil
	case extract.IntentBalance:
		return &Reply{Text: replyBalance, Markup: e.connectWallet().Markup}, nil
	case extract.IntentHelp:
		return &Reply{Text: replyHelp, Markup: keyboard.MainMenu()}, nil
	case extract.IntentPrice:
		return e.price(ctx, ent), nil
	case extract.IntentChart:
		return e.chart(ent), nil
	case extract.IntentGreeting:
		return &Reply{Text: pick(greetingReplies, tone), Markup: keyboard.MainMenu()}, nil
	case extract.IntentThanks:
		return &Reply{Text: pick(thanksReplies, tone)}, nil
	case extract.IntentAbout:
		return &Reply{Text: replyAbout}, nil
	case extract.IntentTime:
		return &Reply{Text: fmt.Sprintf("🕒 It is %s UTC.", e.now().UTC().Format("Mon, 02 Jan 2006 15:04"))}, nil
	}

	reply := &Reply{Text: pick(fallbackReplies, tone)}
	if repeatedFallback(s.History) {
		reply.Text += "\n\n" + replyHelpHint
		reply.Markup = keyboard.MainMenu()
	}
	return reply, nil
}

// start opens a buy or sell flow with whatever the first message already carried.
func (e *Engine) start(ctx context.Context, s *state.UserSession, action order.Action, ent extract.Entities) (*Reply, error) {
	s.Reset()
	s.Action = action

	if ent.Token != "" {
		s.Slots.Token = ent.Token
		s.Slots.Network = ent.Network
	}
	if ent.HasAmount && ent.Amount > 0 {
		s.Slots.Amount = ent.Amount
	}

	return e.advance(ctx, s)
}

// advance moves to the first unfilled slot, or prices the order when every slot is filled.
func (e *Engine) advance(ctx context.Context, s *state.UserSession) (*Reply, error) {
	if s.Slots.Token == "" {
		s.State = state.StateAwaitingToken
		return &Reply{
			Text:   fmt.Sprintf("Which token would you like to %s? Choose one of: %s.", s.Action, strings.Join(e.deps.Catalog.Symbols(), ", ")),
			Markup: keyboard.TokenMenu(e.deps.Catalog.Symbols()),
		}, nil
	}

	t, ok := e.deps.Catalog.Lookup(s.Slots.Token)
	if !ok {
		return nil, apperrors.NewSessionCorruptionError(fmt.Sprintf("session token %q is not in the catalog", s.Slots.Token))
	}

	if t.MultiNetwork() && s.Slots.Network == "" {
		s.State = state.StateAwaitingNetwork
		return networkPrompt(t), nil
	}

	if s.Slots.Amount <= 0 {
		s.State = state.StateAwaitingAmount
		return e.amountPrompt(s, t), nil
	}

	return e.prepare(ctx, s, t)
}

func (e *Engine) onToken(ctx context.Context, s *state.UserSession, text string, ent extract.Entities) (*Reply, error) {
	if ent.Token == "" {
		return &Reply{
			Text:   fmt.Sprintf("❌ %s is not a supported token. Choose one of: %s.", unknownWord(text), strings.Join(e.deps.Catalog.Symbols(), ", ")),
			Markup: keyboard.TokenMenu(e.deps.Catalog.Symbols()),
		}, nil
	}

	s.Slots.Token = ent.Token
	s.Slots.Network = ent.Network
	if ent.HasAmount && ent.Amount > 0 {
		s.Slots.Amount = ent.Amount
	}

	return e.advance(ctx, s)
}

func (e *Engine) onNetwork(ctx context.Context, s *state.UserSession, text string, ent extract.Entities) (*Reply, error) {
	t, ok := e.deps.Catalog.Lookup(s.Slots.Token)
	if !ok || !t.MultiNetwork() {
		return nil, apperrors.NewSessionCorruptionError(fmt.Sprintf("awaiting a network for %q", s.Slots.Token))
	}

	network := extract.FindNetwork(t, extract.Tokenize(text), -1)
	if network == "" {
		reply := networkPrompt(t)
		reply.Text = fmt.Sprintf("❌ %s is not a %s network. %s", unknownWord(text), t.Symbol, reply.Text)
		return reply, nil
	}

	s.Slots.Network = network
	if ent.HasAmount && ent.Amount > 0 && s.Slots.Amount <= 0 {
		s.Slots.Amount = ent.Amount
	}

	return e.advance(ctx, s)
}

func (e *Engine) onAmount(ctx context.Context, s *state.UserSession, ent extract.Entities) (*Reply, error) {
	t, ok := e.deps.Catalog.Lookup(s.Slots.Token)
	if !ok {
		return nil, apperrors.NewSessionCorruptionError(fmt.Sprintf("awaiting an amount for %q", s.Slots.Token))
	}

	if !ent.HasAmount || ent.Amount <= 0 {
		reply := e.amountPrompt(s, t)
		reply.Text = "❌ The amount must be a positive number. " + reply.Text
		return reply, nil
	}

	s.Slots.Amount = ent.Amount
	return e.prepare(ctx, s, t)
}

// prepare fetches a quote and a recipient and builds the order. Any failure leaves the user in
// AwaitingAmount so that sending the amount again retries.
func (e *Engine) prepare(ctx context.Context, s *state.UserSession, t token.Token) (*Reply, error) {
	s.State = state.StateAwaitingAmount
	s.Pending = nil

	q, err := e.quote(ctx, t.Symbol)
	if err != nil {
		e.log.WarnContext(ctx, "quote failed", slog.String("token", t.Symbol), slog.Any("error", err))
		return &Reply{
			Text:   fmt.Sprintf("⚠️ I couldn't get a price for %s right now. Send the amount again to retry.", t.Symbol),
			Markup: keyboard.CancelButton(),
		}, nil
	}

	binding := e.deps.Recipients.Resolve(ctx, t.Symbol, s.Slots.Network)

	o, err := order.New(e.deps.Catalog, e.pricing, order.Params{
		UserID:    s.UserID,
		Action:    s.Action,
		Token:     t.Symbol,
		Network:   s.Slots.Network,
		Amount:    s.Slots.Amount,
		Fiat:      e.fiat(s),
		Quote:     q,
		Recipient: binding,
	}, e.now().UTC())
	switch {
	case err == nil:
	case errors.Is(err, order.ErrIncomplete):
		e.log.WarnContext(ctx, "no settlement address", slog.String("token", t.Symbol), slog.String("network", s.Slots.Network))
		return &Reply{
			Text:   fmt.Sprintf("⚠️ %s settlement is unavailable right now. Send the amount again to retry.", t.Symbol),
			Markup: keyboard.CancelButton(),
		}, nil
	case apperrors.KindOf(err) == apperrors.KindInput:
		s.Slots.Amount = 0
		return &Reply{Text: "❌ " + apperrors.UserMessageOf(err, "Please enter a different amount."), Markup: keyboard.CancelButton()}, nil
	default:
		return nil, err
	}

	o.ID = e.newID()
	link, err := e.deps.Links.Build(o)
	if err != nil {
		e.log.WarnContext(ctx, "signing link failed", slog.String("order_id", o.ID), slog.Any("error", err))
		s.Slots.Amount = 0
		return &Reply{Text: "❌ That amount is too large. Please enter a smaller amount.", Markup: keyboard.CancelButton()}, nil
	}
	o.SigningURL = link

	s.Pending = o
	s.State = state.StateConfirming
	ordersPreparedTotal.WithLabelValues(string(o.Action), o.Token).Inc()

	return &Reply{Text: summary(o, t), Markup: keyboard.ConfirmButtons(o.SigningURL)}, nil
}

// confirm completes the pending order. Any reply confirms; only cancel and exit back out.
func (e *Engine) confirm(ctx context.Context, s *state.UserSession) (*Reply, error) {
	o := s.Pending
	if o == nil {
		return nil, apperrors.NewSessionCorruptionError("confirming without a pending order")
	}

	if e.deps.Journal != nil {
		if err := e.deps.Journal.SaveOrder(ctx, o); err != nil {
			e.log.ErrorContext(ctx, "failed to journal order", slog.String("order_id", o.ID), slog.Any("error", err))
		}
	}

	if o.HighValue(e.settings.HighValueThreshold) {
		e.notifyOperator(ctx, o)
	}

	ordersConfirmedTotal.WithLabelValues(string(o.Action), o.Token).Inc()
	s.Reset()

	return &Reply{Text: completion(o), Markup: keyboard.LinkButton("✍️ Sign in Wallet", o.SigningURL)}, nil
}

// notifyOperator alerts the operator off the turn goroutine. Failures are only logged.
func (e *Engine) notifyOperator(ctx context.Context, o *order.Order) {
	alert := notify.Alert{
		UserID:    o.UserID,
		Action:    string(o.Action),
		Token:     o.Token,
		Network:   o.Network,
		Amount:    o.Amount,
		FiatValue: o.QuotedFiatValue,
		Fiat:      o.Fiat,
		OrderID:   o.ID,
		At:        e.now().UTC(),
	}

	e.notifications.Add(1)
	go func() {
		defer e.notifications.Done()

		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.settings.NotifyTimeout)
		defer cancel()

		if err := e.deps.Operator.NotifyOperator(notifyCtx, alert); err != nil {
			operatorNotificationsTotal.WithLabelValues("error").Inc()
			e.log.WarnContext(notifyCtx, "operator notification failed", slog.String("order_id", alert.OrderID), slog.Any("error", err))
			return
		}
		operatorNotificationsTotal.WithLabelValues("sent").Inc()
	}()
}

func (e *Engine) cancel(s *state.UserSession) *Reply {
	active := s.State != state.StateIdle
	s.Reset()
	if !active {
		return &Reply{Text: replyNothingToCancel, Markup: keyboard.MainMenu()}
	}
	return &Reply{Text: replyCancelled, Markup: keyboard.MainMenu()}
}

// quote runs the price lookup under a deadline that leaves a quarter of the turn budget for
// resolving the recipient and answering.
func (e *Engine) quote(ctx context.Context, symbol string) (quote.Quote, error) {
	if deadline, ok := ctx.Deadline(); ok {
		reserve := e.settings.TurnTimeout / 4
		if remaining := time.Until(deadline); remaining < 2*reserve {
			reserve = remaining / 2
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline.Add(-reserve))
		defer cancel()
	}

	return e.deps.Quotes.GetPrice(ctx, symbol)
}

func (e *Engine) price(ctx context.Context, ent extract.Entities) *Reply {
	if ent.Token == "" {
		return &Reply{Text: fmt.Sprintf("Which token? Try \"price TON\". Supported: %s.", strings.Join(e.deps.Catalog.Symbols(), ", "))}
	}

	q, err := e.quote(ctx, ent.Token)
	if err != nil {
		e.log.WarnContext(ctx, "quote failed", slog.String("token", ent.Token), slog.Any("error", err))
		return &Reply{Text: fmt.Sprintf("⚠️ I couldn't get a price for %s right now. Please try again shortly.", ent.Token)}
	}

	return &Reply{Text: fmt.Sprintf("💹 1 %s = $%s", q.Symbol, formatPrice(q.Price))}
}

func (e *Engine) chart(ent extract.Entities) *Reply {
	symbol := ent.Token
	if symbol == "" {
		symbol = "TON"
	}
	if e.settings.ChartURL == "" {
		return &Reply{Text: "📈 Charts are not available right now."}
	}

	link := e.settings.ChartURL
	if strings.Contains(link, "%s") {
		link = fmt.Sprintf(link, symbol)
	}
	return &Reply{Text: fmt.Sprintf("📈 %s chart:", symbol), Markup: keyboard.LinkButton("Open chart", link)}
}

func (e *Engine) connectWallet() *Reply {
	return &Reply{Text: replyConnectWallet, Markup: keyboard.ConnectWallet(tonConnectLink(e.settings.TonManifestURL))}
}

func (e *Engine) setFiat(s *state.UserSession, fiat string) *Reply {
	for _, f := range e.settings.Fiats {
		if strings.EqualFold(f, fiat) {
			s.Fiat = f
			return &Reply{Text: fmt.Sprintf("✅ Fiat set to %s", f)}
		}
	}
	return &Reply{Text: replyChooseFiat, Markup: keyboard.FiatMenu(e.settings.Fiats, e.fiat(s))}
}

func (e *Engine) fiat(s *state.UserSession) string {
	if s.Fiat != "" {
		return s.Fiat
	}
	return e.settings.DefaultFiat
}

func (e *Engine) amountPrompt(s *state.UserSession, t token.Token) *Reply {
	target := t.Symbol
	if s.Slots.Network != "" {
		target = fmt.Sprintf("%s on %s", t.Symbol, s.Slots.Network)
	}
	return &Reply{
		Text:   fmt.Sprintf("How much %s would you like to %s?", target, s.Action),
		Markup: keyboard.AmountButtons(e.settings.QuickAmounts),
	}
}

func networkPrompt(t token.Token) *Reply {
	return &Reply{
		Text:   fmt.Sprintf("Which network for %s? Choose one of: %s.", t.Symbol, strings.Join(t.NetworkNames(), ", ")),
		Markup: keyboard.NetworkMenu(t.NetworkNames()),
	}
}

// repeatedFallback reports whether the last two turns were both unrecognised.
func repeatedFallback(history []string) bool {
	n := len(history)
	return n >= 2 &&
		history[n-1] == string(extract.IntentConversation) &&
		history[n-2] == string(extract.IntentConversation)
}

func unknownWord(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "That"
	}
	if r := []rune(text); len(r) > 24 {
		return fmt.Sprintf("%q", string(r[:24])+"…")
	}
	return fmt.Sprintf("%q", text)
}
