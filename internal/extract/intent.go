// Package extract classifies free text into an intent and pulls out trade entities.
package extract

import (
	"strings"

	"github.com/Proton-105/gigip2p-bot/internal/token"
)

// Intent is what the user wants.
type Intent string

const (
	IntentBuy           Intent = "buy"
	IntentSell          Intent = "sell"
	IntentConnectWallet Intent = "connect_wallet"
	IntentBalance       Intent = "balance"
	IntentHelp          Intent = "help"
	IntentPrice         Intent = "price"
	IntentChart         Intent = "chart"
	IntentGreeting      Intent = "greeting"
	IntentThanks        Intent = "thanks"
	IntentExit          Intent = "exit"
	IntentAbout         Intent = "about"
	IntentTime          Intent = "time"
	IntentCancel        Intent = "cancel"
	// IntentConversation is the fallback when nothing matches.
	IntentConversation Intent = "conversation"
)

// Precedence is the order in which intents are tried. The first match wins, and several
// synonym sets overlap ("show" is a Balance word), so reordering changes behaviour.
var Precedence = []Intent{
	IntentBuy,
	IntentSell,
	IntentConnectWallet,
	IntentBalance,
	IntentHelp,
	IntentPrice,
	IntentChart,
	IntentGreeting,
	IntentThanks,
	IntentExit,
	IntentAbout,
	IntentTime,
	IntentCancel,
}

// DefaultSynonyms are the built-in words per intent. Entries with a space match as phrases.
var DefaultSynonyms = map[Intent][]string{
	IntentBuy:           {"buy", "purchase", "acquire", "onramp"},
	IntentSell:          {"sell", "offramp", "cashout", "cash out", "liquidate"},
	IntentConnectWallet: {"connect", "wallet", "connect_wallet", "tonconnect", "metamask", "phantom", "link wallet"},
	IntentBalance:       {"balance", "show", "holdings", "portfolio", "funds"},
	IntentHelp:          {"help", "start", "menu", "commands"},
	IntentPrice:         {"price", "rate", "quote", "worth", "cost", "value"},
	IntentChart:         {"chart", "graph", "trend", "candles"},
	IntentGreeting:      {"hi", "hello", "hey", "gm", "howdy", "yo", "good morning"},
	IntentThanks:        {"thanks", "thank", "thx", "ty", "appreciate"},
	IntentExit:          {"exit", "quit", "bye", "goodbye", "stop"},
	IntentAbout:         {"about", "who", "gigi", "info"},
	IntentTime:          {"time", "date", "clock", "today"},
	IntentCancel:        {"cancel", "abort", "nevermind", "never mind", "reset"},
}

// ParseIntent maps a name such as "connect_wallet" to an Intent.
func ParseIntent(name string) (Intent, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, intent := range Precedence {
		if string(intent) == name {
			return intent, true
		}
	}
	if name == string(IntentConversation) {
		return IntentConversation, true
	}
	return "", false
}

// Entities are the trade parameters found in a message.
type Entities struct {
	Token     string
	Network   string
	Amount    float64
	HasAmount bool
}

type rule struct {
	intent Intent
	match  func(words []string, joined string) bool
}

// Extractor evaluates ordered rules against tokenized text.
type Extractor struct {
	rules   []rule
	catalog *token.Catalog
}

// New builds an extractor from the default synonyms plus extra words per intent name.
// Unknown intent names in extra are ignored.
func New(catalog *token.Catalog, extra map[string][]string) *Extractor {
	sets := make(map[Intent][]string, len(DefaultSynonyms))
	for intent, words := range DefaultSynonyms {
		sets[intent] = append([]string(nil), words...)
	}
	for name, words := range extra {
		intent, ok := ParseIntent(name)
		if !ok || intent == IntentConversation {
			continue
		}
		for _, w := range words {
			sets[intent] = append(sets[intent], strings.ToLower(strings.TrimSpace(w)))
		}
	}

	e := &Extractor{catalog: catalog}
	for _, intent := range Precedence {
		e.rules = append(e.rules, rule{intent: intent, match: synonymMatcher(sets[intent])})
	}

	return e
}

func synonymMatcher(synonyms []string) func(words []string, joined string) bool {
	single := make(map[string]struct{}, len(synonyms))
	var phrases []string
	for _, s := range synonyms {
		if s == "" {
			continue
		}
		if strings.Contains(s, " ") {
			phrases = append(phrases, " "+s+" ")
			continue
		}
		single[s] = struct{}{}
	}

	return func(words []string, joined string) bool {
		for _, w := range words {
			if _, ok := single[w]; ok {
				return true
			}
		}
		for _, p := range phrases {
			if strings.Contains(joined, p) {
				return true
			}
		}
		return false
	}
}

// Extract returns the first matching intent in precedence order, or IntentConversation,
// together with any entities in the text.
func (e *Extractor) Extract(text string) (Intent, Entities) {
	words := Tokenize(text)
	return e.classify(words), e.entities(words)
}

// Classify returns only the intent.
func (e *Extractor) Classify(text string) Intent {
	return e.classify(Tokenize(text))
}

// Entities returns only the entities.
func (e *Extractor) Entities(text string) Entities {
	return e.entities(Tokenize(text))
}

func (e *Extractor) classify(words []string) Intent {
	joined := " " + strings.Join(words, " ") + " "
	for _, r := range e.rules {
		if r.match(words, joined) {
			return r.intent
		}
	}
	return IntentConversation
}

func (e *Extractor) entities(words []string) Entities {
	var ent Entities

	tokenIdx := -1
	for i, w := range words {
		if t, ok := e.catalog.Lookup(w); ok {
			ent.Token = t.Symbol
			tokenIdx = i
			break
		}
	}

	for _, w := range words {
		if amount, ok := ParseAmount(w); ok {
			ent.Amount = amount
			ent.HasAmount = true
			break
		}
	}

	if tokenIdx >= 0 {
		t, _ := e.catalog.Lookup(ent.Token)
		if t.MultiNetwork() {
			ent.Network = FindNetwork(t, words, tokenIdx)
		}
	}

	return ent
}

// FindNetwork returns the first word naming one of t's networks, skipping the word at skip.
func FindNetwork(t token.Token, words []string, skip int) string {
	for i, w := range words {
		if i == skip {
			continue
		}
		if n, ok := t.Network(w); ok {
			return n.Name
		}
	}
	return ""
}
