package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/gigip2p-bot/internal/bot/handlers"
	"github.com/Proton-105/gigip2p-bot/internal/bot/keyboard"
	"github.com/Proton-105/gigip2p-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(commandLabel(c), status, time.Since(start))

		return err
	}
}

// commandLabel keeps label cardinality bounded: free text is reported as "text", callbacks by
// their handler name, commands by name without arguments or bot suffix.
func commandLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil {
		unique, _, err := keyboard.DecodeCallback(cb.Data)
		if err != nil {
			return "callback"
		}
		return "callback:" + unique
	}

	text := strings.TrimSpace(c.Text())
	if strings.HasPrefix(text, "/") {
		command := strings.Fields(text)[0]
		if at := strings.Index(command, "@"); at > 0 {
			command = command[:at]
		}
		return command
	}
	if text != "" {
		return "text"
	}

	return "unknown"
}
