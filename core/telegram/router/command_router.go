package router

import (
	"log/slog"

	"github.com/m3rciful/reviewbot/core/logger"
	tg "github.com/m3rciful/reviewbot/core/telegram"
	"github.com/m3rciful/reviewbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command to its slash endpoint.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for key, def := range cmds {
		name, run := normalizeHandlerName(key), def.Handler
		routes = append(routes, tg.Route{
			Endpoint: key,
			Handler: wrap(func(c tele.Context) error {
				return observe(c, name, run)
			}),
		})
	}
	logger.Info(logger.Background(), "tg.wire", "commands.bound", slog.Int("commands", len(cmds)))
	return routes
}

func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}
