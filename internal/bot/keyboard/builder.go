package keyboard

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Callback handler names.
const (
	ActionStart         = "start"
	ActionHelp          = "help"
	ActionBuy           = "buy"
	ActionSell          = "sell"
	ActionConnectWallet = "connect_wallet"
	ActionChooseFiat    = "choose_fiat"
	ActionFiat          = "fiat"
	ActionToken         = "token"
	ActionNetwork       = "network"
	ActionAmount        = "amount"
	ActionConfirm       = "confirm"
	ActionCancel        = "cancel"
	ActionWallet        = "wallet"
)

// Wallet options offered besides TON Connect.
const (
	WalletEVM    = "evm"
	WalletSolana = "solana"
)

// MainMenu builds the start menu.
func MainMenu() *Markup {
	return NewMarkup().
		AddRow(Button{Label: "🔗 Connect Wallet", Unique: ActionConnectWallet}).
		AddRow(
			Button{Label: "💰 Buy", Unique: ActionBuy},
			Button{Label: "💸 Sell", Unique: ActionSell},
		).
		AddRow(Button{Label: "🌐 Choose Fiat", Unique: ActionChooseFiat})
}

// ConnectWallet offers TON Connect as a link plus the EVM and Solana wallets.
func ConnectWallet(tonConnectURL string) *Markup {
	m := NewMarkup()
	if tonConnectURL != "" {
		m.AddRow(Button{Label: "🔗 TON Wallet", URL: tonConnectURL})
	}
	return m.
		AddRow(Button{Label: "🦊 MetaMask (EVM)", Unique: ActionWallet, Data: WalletEVM}).
		AddRow(Button{Label: "🌈 Phantom (Solana)", Unique: ActionWallet, Data: WalletSolana})
}

// FiatMenu lists the fiat currencies, four per row.
func FiatMenu(fiats []string, current string) *Markup {
	return grid(fiats, 4, func(fiat string) Button {
		label := fiat
		if strings.EqualFold(fiat, current) {
			label = "✅ " + fiat
		}
		return Button{Label: label, Unique: ActionFiat, Data: fiat}
	})
}

// TokenMenu lists the supported tokens plus a cancel button.
func TokenMenu(symbols []string) *Markup {
	m := grid(symbols, 4, func(symbol string) Button {
		return Button{Label: symbol, Unique: ActionToken, Data: symbol}
	})
	return m.AddRow(cancelButton())
}

// NetworkMenu lists the networks of a multi-network token.
func NetworkMenu(networks []string) *Markup {
	m := grid(networks, 3, func(network string) Button {
		return Button{Label: Capitalize(network), Unique: ActionNetwork, Data: network}
	})
	return m.AddRow(cancelButton())
}

// AmountButtons offers quick amounts.
func AmountButtons(values []float64) *Markup {
	labels := make([]string, 0, len(values))
	for _, v := range values {
		labels = append(labels, strconv.FormatFloat(v, 'f', -1, 64))
	}
	m := grid(labels, 4, func(label string) Button {
		return Button{Label: label, Unique: ActionAmount, Data: label}
	})
	return m.AddRow(cancelButton())
}

// ConfirmButtons offers the signing link, a confirm button and a cancel button.
func ConfirmButtons(signingURL string) *Markup {
	m := NewMarkup()
	if signingURL != "" {
		m.AddRow(Button{Label: "✍️ Sign in Wallet", URL: signingURL})
	}
	return m.AddRow(
		Button{Label: "Confirm ✅", Unique: ActionConfirm},
		cancelButton(),
	)
}

// CancelButton builds a single cancel button.
func CancelButton() *Markup {
	return NewMarkup().AddRow(cancelButton())
}

// LinkButton wraps a single URL.
func LinkButton(label, url string) *Markup {
	return NewMarkup().AddRow(Button{Label: label, URL: url})
}

func cancelButton() Button {
	return Button{Label: "Cancel ❌", Unique: ActionCancel}
}

func grid(items []string, perRow int, build func(string) Button) *Markup {
	m := NewMarkup()
	row := make([]Button, 0, perRow)
	for _, item := range items {
		if item == "" {
			continue
		}
		row = append(row, build(item))
		if len(row) == perRow {
			m.AddRow(row...)
			row = row[:0]
		}
	}
	m.AddRow(row...)
	return m
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
