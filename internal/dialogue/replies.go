package dialogue

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Proton-105/gigip2p-bot/internal/bot/keyboard"
	"github.com/Proton-105/gigip2p-bot/internal/extract"
	"github.com/Proton-105/gigip2p-bot/internal/order"
	"github.com/Proton-105/gigip2p-bot/internal/token"
)

const (
	replyHelp = "📖 Help Menu\n\n" +
		"/start - Restart\n" +
		"/connect_wallet - Link wallet\n" +
		"/buy - Buy crypto\n" +
		"/sell - Sell crypto\n" +
		"/fiat - Choose fiat currency\n" +
		"/cancel - Cancel the current order\n\n" +
		"Or just type it: \"Buy 100 TON\", \"Sell 50 USDT on tron\", \"price ETH\"."
	replyHelpHint        = "Try \"Buy 50 TON\" or \"Sell 10 USDT\", or use the menu below."
	replyAbout           = "🤖 GigiP2Bot is your crypto-to-fiat buddy. I quote a price, prepare the transfer and hand it to your wallet to sign. I never hold your keys."
	replyBalance         = "👛 Connect a wallet to see your balance there."
	replyConnectWallet   = "🔐 Choose your wallet to connect:"
	replyChooseFiat      = "🌍 Choose your local fiat currency:"
	replyCancelled       = "❎ Order cancelled. What would you like to do next?"
	replyNothingToCancel = "There is nothing to cancel. What would you like to do?"
	replyBusy            = "You already have an order in progress. Finish it or cancel it first."
	replyStaleButton     = "That button has expired. Type /start to see the menu."
)

var (
	greetingReplies = map[extract.Tone]string{
		extract.TonePositive: "👋 Great to see you! I'm GigiP2Bot, your crypto-to-fiat buddy. Ready to trade?",
		extract.ToneNegative: "👋 Hi. Sorry if things have been rough. Tell me what you need and I'll help.",
		extract.ToneNeutral:  "👋 Welcome to GigiP2Bot! I'm your crypto-to-fiat buddy 🤖💸\n\nConnect your wallet and let's go!",
	}
	thanksReplies = map[extract.Tone]string{
		extract.TonePositive: "🙌 Happy to help! Anything else?",
		extract.ToneNegative: "Thanks for sticking with me. Let me know how I can do better.",
		extract.ToneNeutral:  "You're welcome!",
	}
	goodbyeReplies = map[extract.Tone]string{
		extract.TonePositive: "👋 Bye for now, happy trading!",
		extract.ToneNegative: "👋 Sorry it didn't work out this time. I'm here whenever you need me.",
		extract.ToneNeutral:  "👋 Goodbye! Type /start whenever you want to trade again.",
	}
	fallbackReplies = map[extract.Tone]string{
		extract.TonePositive: "😊 Glad you're here! I didn't catch that though. Try: \"Buy 50 TON\" or \"Sell 10 USDT\".",
		extract.ToneNegative: "😔 Sorry, I didn't understand. Try: \"Buy 50 TON\" or \"Sell 10 USDT\".",
		extract.ToneNeutral:  "❓ I didn't understand. Try: \"Buy 50 TON\" or \"Sell 10 USDT\".",
	}
)

func pick(replies map[extract.Tone]string, tone extract.Tone) string {
	if text, ok := replies[tone]; ok {
		return text
	}
	return replies[extract.ToneNeutral]
}

func walletComingSoon(wallet string) *Reply {
	switch wallet {
	case keyboard.WalletEVM:
		return &Reply{Text: "🦊 Please open MetaMask to connect. Feature coming soon."}
	case keyboard.WalletSolana:
		return &Reply{Text: "🌈 Please open Phantom Wallet to connect. Feature coming soon."}
	default:
		return &Reply{Text: replyStaleButton}
	}
}

// tonConnectLink opens Telegram's wallet with the TON Connect manifest.
func tonConnectLink(manifestURL string) string {
	if manifestURL == "" {
		return ""
	}
	return "https://t.me/wallet/start?startapp=tonconnect-v2&manifestUrl=" + url.QueryEscape(manifestURL)
}

func summary(o *order.Order, t token.Token) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📋 %s %s %s\n", o.Action.Title(), formatAmount(o.Amount), o.Token)
	if o.Network != "" {
		fmt.Fprintf(&b, "Network: %s\n", o.Network)
	}
	fmt.Fprintf(&b, "Price: $%s per %s\n", formatPrice(o.Price), o.Token)
	fmt.Fprintf(&b, "Fee: $%.2f\n", o.Fee)
	if o.Action == order.Sell {
		fmt.Fprintf(&b, "You receive: $%.2f", o.QuotedFiatValue)
	} else {
		fmt.Fprintf(&b, "You pay: $%.2f", o.QuotedFiatValue)
	}
	if o.Fiat != "" && o.Fiat != "USD" {
		fmt.Fprintf(&b, " (settled in %s)", o.Fiat)
	}
	fmt.Fprintf(&b, "\nRecipient: %s\n", o.Recipient)
	if o.Tag != "" {
		label := t.TagLabel
		if label == "" {
			label = "tag"
		}
		fmt.Fprintf(&b, "%s: %s\n", keyboard.Capitalize(label), o.Tag)
	}
	b.WriteString("\nSign the transfer in your wallet, then reply with anything to confirm or tap Cancel.")

	return b.String()
}

func completion(o *order.Order) string {
	verb := "selling"
	if o.Action == order.Buy {
		verb = "buying"
	}
	return fmt.Sprintf("✅ Order confirmed: %s %s %s for $%.2f. Use the link below if you haven't signed yet.",
		verb, formatAmount(o.Amount), o.Token, o.QuotedFiatValue)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPrice(v float64) string {
	if v >= 1 {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
