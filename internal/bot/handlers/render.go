package handlers

import (
	"fmt"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gigip2p-bot/internal/bot/keyboard"
)

// Render converts transport-neutral markup into an inline keyboard. Nil or empty markup renders to nil.
func Render(m *keyboard.Markup) (*telebot.ReplyMarkup, error) {
	if m.Empty() {
		return nil, nil
	}

	rows := make([][]telebot.InlineButton, 0, len(m.Rows))
	for _, row := range m.Rows {
		buttons := make([]telebot.InlineButton, 0, len(row))
		for _, btn := range row {
			if btn.URL != "" {
				buttons = append(buttons, telebot.InlineButton{Text: btn.Label, URL: btn.URL})
				continue
			}

			data, err := btn.CallbackData()
			if err != nil {
				return nil, fmt.Errorf("render button %q: %w", btn.Label, err)
			}
			buttons = append(buttons, telebot.InlineButton{Text: btn.Label, Data: data})
		}
		rows = append(rows, buttons)
	}

	return &telebot.ReplyMarkup{InlineKeyboard: rows}, nil
}
