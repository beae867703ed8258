package bot

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gigip2p-bot/internal/bot/keyboard"
)

// Command constants for Telegram bot commands.
const (
	CommandStart         = "/start"
	CommandHelp          = "/help"
	CommandBuy           = "/buy"
	CommandSell          = "/sell"
	CommandFiat          = "/fiat"
	CommandConnectWallet = "/connect_wallet"
	CommandCancel        = "/cancel"
)

// commandActions maps each command to the button it is equivalent to.
var commandActions = map[string]string{
	CommandStart:         keyboard.ActionStart,
	CommandHelp:          keyboard.ActionHelp,
	CommandBuy:           keyboard.ActionBuy,
	CommandSell:          keyboard.ActionSell,
	CommandFiat:          keyboard.ActionChooseFiat,
	CommandConnectWallet: keyboard.ActionConnectWallet,
	CommandCancel:        keyboard.ActionCancel,
}

// menuCommands is what the client shows in the command menu.
var menuCommands = []telebot.Command{
	{Text: "start", Description: "Restart"},
	{Text: "connect_wallet", Description: "Link wallet"},
	{Text: "buy", Description: "Buy crypto"},
	{Text: "sell", Description: "Sell crypto"},
	{Text: "fiat", Description: "Choose fiat currency"},
	{Text: "cancel", Description: "Cancel the current order"},
	{Text: "help", Description: "Show help"},
}
