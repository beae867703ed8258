package notify

import (
	"context"
	"errors"
	"fmt"

	telebot "gopkg.in/telebot.v3"
)

// Sender is the part of telebot.Bot the notifier needs.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramNotifier posts alerts into the operator chat.
type TelegramNotifier struct {
	sender Sender
	chat   telebot.ChatID
}

var _ Operator = (*TelegramNotifier)(nil)

func NewTelegramNotifier(sender Sender, chatID int64) (*TelegramNotifier, error) {
	if sender == nil {
		return nil, errors.New("telegram sender is nil")
	}
	if chatID == 0 {
		return nil, errors.New("operator chat id is not configured")
	}
	return &TelegramNotifier{sender: sender, chat: telebot.ChatID(chatID)}, nil
}

func (n *TelegramNotifier) NotifyOperator(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := n.sender.Send(n.chat, alert.Text(), &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
		return fmt.Errorf("send operator alert: %w", err)
	}
	return nil
}
