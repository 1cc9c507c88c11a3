package middleware

import (
	"testing"

	"github.com/m3rciful/reviewbot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func TestMessageMetricsCountsSends(t *testing.T) {
	c := teletest.Text(1, "hi")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		if err := c.Send("one"); err != nil {
			return err
		}
		return c.Send("two", &tele.ReplyMarkup{})
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	msgs, kb := GetCounters(c)
	if msgs != 2 || !kb {
		t.Fatalf("messages=%d kb=%v", msgs, kb)
	}
}
