package middleware

import (
	"testing"
	"time"

	"github.com/m3rciful/reviewbot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
)

func TestUpdateKind(t *testing.T) {
	if k := UpdateKind(teletest.Text(1, "/start").Update()); k != "command" {
		t.Fatalf("kind = %q", k)
	}
	if k := UpdateKind(teletest.Text(1, "hi").Update()); k != "message" {
		t.Fatalf("kind = %q", k)
	}
	if k := UpdateKind(teletest.Photo(1, "f", "").Update()); k != "message" {
		t.Fatalf("kind = %q", k)
	}
	if k := UpdateKind(tele.Update{}); k != "other" {
		t.Fatalf("kind = %q", k)
	}
}

func TestRateLimitBlocksBurstAndHonoursExclusions(t *testing.T) {
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"command": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	passed := 0
	h := mw(func(tele.Context) error { passed++; return nil })

	_ = h(teletest.Text(5, "first"))
	_ = h(teletest.Text(5, "second"))
	_ = h(teletest.Text(5, "/cancel"))
	_ = h(teletest.Text(6, "other user"))

	if passed != 3 {
		t.Fatalf("passed = %d, want 3", passed)
	}
	if limited != 1 {
		t.Fatalf("limited = %d, want 1", limited)
	}
}
