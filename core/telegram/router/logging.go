package router

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/reviewbot/core/logger"
	tghelpers "github.com/m3rciful/reviewbot/core/telegram/helpers"
	"github.com/m3rciful/reviewbot/core/telegram/middleware"
	"github.com/m3rciful/reviewbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// observe runs fn as handler name and writes one handler.handled line.
func observe(c tele.Context, name string, fn tele.HandlerFunc) error {
	began := time.Now()
	tghelpers.WithHandler(c, name)
	err := fn(c)

	status := "ok"
	if err != nil {
		status = "fail"
	}
	summarize(c, name, status, time.Since(began), err)
	return err
}

// skipped records an update that no handler accepted.
func skipped(c tele.Context, name string) {
	summarize(c, name, "skip", 0, nil)
}

func summarize(c tele.Context, name, status string, took time.Duration, err error) {
	ctx := tghelpers.WithHandler(c, name)
	sent, kb := middleware.GetCounters(c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcomeOf(status)),
		slog.Int("messages", sent),
		slog.Bool("kb", kb),
		slog.Duration("duration", took),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(logger.RedactSecrets(err.Error()), 256)),
			slog.String("err_kind", string(netutil.Classify(err))),
		)
	}
	logger.Info(ctx, "tg", "handler.handled", attrs...)
}

func outcomeOf(status string) string {
	if status == "fail" {
		return "fail"
	}
	return "ok"
}

// normalizeHandlerName turns "/My Cmd" into "my_cmd".
func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
