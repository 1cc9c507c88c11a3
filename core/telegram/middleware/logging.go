package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/reviewbot/core/logger"
	tghelpers "github.com/m3rciful/reviewbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// The logger runs both globally and per route, so receipts are deduplicated
// by update id for a short window.
var receipts = &seenSet{ttl: 10 * time.Second, at: make(map[int]time.Time)}

type seenSet struct {
	mu  sync.Mutex
	ttl time.Duration
	at  map[int]time.Time
}

// firstSighting records id and reports whether it was new.
func (s *seenSet) firstSighting(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.at {
		if now.Sub(t) > s.ttl {
			delete(s.at, k)
		}
	}
	if _, dup := s.at[id]; dup {
		return false
	}
	s.at[id] = now
	return true
}

// LoggerMiddleware assigns the request id, caches the request context and
// writes a sampled update.received line once per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := c.Get("rid").(string); !ok {
			var chatID, userID int64
			if ch := c.Chat(); ch != nil {
				chatID = ch.ID
			}
			if u := c.Sender(); u != nil {
				userID = u.ID
			}
			c.Set("rid", logger.BuildRID(c.Update().ID, chatID, userID))
		}
		ctx := tghelpers.BuildContext(c)

		upd := c.Update()
		if logger.ShouldSampleDebug() && receipts.firstSighting(upd.ID, time.Now()) {
			logger.Debug(ctx, "tg", "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if ch := c.Chat(); ch != nil {
		attrs = append(attrs, slog.String("chat_type", string(ch.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}
	if m := c.Message(); m != nil {
		attrs = append(attrs, slog.Bool("has_photo", m.Photo != nil))
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
	}
	return attrs
}
