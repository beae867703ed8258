package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gigip2p-bot/internal/bot/keyboard"
	"github.com/Proton-105/gigip2p-bot/internal/dialogue"
)

// Conversation is the dialogue engine as the transport sees it.
type Conversation interface {
	HandleTurn(ctx context.Context, userID int64, text string) (*dialogue.Reply, error)
	HandleCallback(ctx context.Context, userID int64, data string) (*dialogue.Reply, error)
}

// NewTextHandler feeds free text into the conversation.
func NewTextHandler(conv Conversation, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			log.Warn("text handler invoked without sender")
			return nil
		}

		reply, err := conv.HandleTurn(context.Background(), c.Sender().ID, c.Text())
		if err != nil {
			return err
		}
		return Send(c, reply)
	}
}

// NewCallbackHandler feeds a button press into the conversation.
func NewCallbackHandler(conv Conversation, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || c.Callback() == nil {
			log.Warn("callback handler invoked without sender")
			return nil
		}

		// stop the client spinner before the turn runs
		if err := c.Respond(); err != nil {
			log.Debug("failed to answer callback", slog.Any("error", err))
		}

		reply, err := conv.HandleCallback(context.Background(), c.Sender().ID, c.Callback().Data)
		if err != nil {
			return err
		}
		return Send(c, reply)
	}
}

// NewCommandHandler runs a slash command as the equivalent button press, so commands and
// buttons share one code path.
func NewCommandHandler(conv Conversation, action string, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			log.Warn("command handler invoked without sender", slog.String("action", action))
			return nil
		}

		data, err := keyboard.EncodeCallback(action, "")
		if err != nil {
			return err
		}

		reply, err := conv.HandleCallback(context.Background(), c.Sender().ID, data)
		if err != nil {
			return err
		}
		return Send(c, reply)
	}
}

// Send delivers a reply with its keyboard, if any.
func Send(c telebot.Context, reply *dialogue.Reply) error {
	if reply == nil || reply.Text == "" {
		return nil
	}

	markup, err := Render(reply.Markup)
	if err != nil {
		return err
	}
	if markup == nil {
		return c.Send(reply.Text, &telebot.SendOptions{DisableWebPagePreview: true})
	}
	return c.Send(reply.Text, &telebot.SendOptions{DisableWebPagePreview: true, ReplyMarkup: markup})
}
