// Package bot wires configuration, stores and handlers into a runnable
// Telegram feedback bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/reviewbot/core/logger"
	coretelegram "github.com/m3rciful/reviewbot/core/telegram"
	"github.com/m3rciful/reviewbot/core/telegram/router"
	"github.com/m3rciful/reviewbot/core/telegram/state"
	"github.com/m3rciful/reviewbot/internal/config"
	"github.com/m3rciful/reviewbot/internal/feedback"
	"github.com/m3rciful/reviewbot/internal/ops"
	"github.com/m3rciful/reviewbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

const shutdownTimeout = 5 * time.Second

// App owns every long-lived component of the bot.
type App struct {
	cfg *config.Config
	bot *tele.Bot
	db  *sqlx.DB

	redis      *redis.Client
	store      state.Store
	dispatcher *state.Dispatcher
	handlers   *Handlers
	ops        *ops.Server
	checks     map[string]ops.Check
}

// New builds the application. db may be nil unless the journal backend is
// selected.
func New(ctx context.Context, cfg *config.Config, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config provided")
	}
	bot, err := coretelegram.NewBot(&cfg.Config)
	if err != nil {
		return nil, err
	}
	return assemble(ctx, cfg, bot, db)
}

func assemble(ctx context.Context, cfg *config.Config, bot *tele.Bot, db *sqlx.DB) (*App, error) {
	app := &App{cfg: cfg, bot: bot, db: db, checks: make(map[string]ops.Check)}

	store, err := app.buildSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	app.store = store

	writer, err := app.buildWriter(ctx)
	if err != nil {
		app.closeRedis()
		return nil, err
	}
	photos, err := app.buildPhotoResolver(ctx)
	if err != nil {
		app.closeRedis()
		return nil, err
	}

	tracker := session.NewTracker(store, cfg.Establishments)
	recorder := feedback.NewRecorder(tracker, writer, photos, feedback.Options{
		Location:    cfg.Feedback.Location(),
		PhotoPolicy: cfg.Feedback.PhotoPolicy,
	})
	app.handlers = NewHandlers(tracker, recorder, cfg.Messages, cfg.Feedback.MenuColumns)
	app.dispatcher = state.NewDispatcher(store)
	app.handlers.RegisterPhases(app.dispatcher)

	logger.Info(ctx, "app", "app.assembled",
		slog.String("status", "ok"),
		slog.Int("establishments", len(cfg.Establishments)),
		slog.String("store", cfg.Store.Backend),
		slog.String("session", cfg.Session.Backend),
		slog.String("photo_policy", cfg.Feedback.PhotoPolicy),
	)
	return app, nil
}

// Handlers exposes the conversation handlers.
func (a *App) Handlers() *Handlers { return a.handlers }

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.handlers.RegisterCommands(reg)

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.MessageRoutes(a.dispatcher, reg, router.MessageOptions{
		UnknownCommand:  a.handlers.UnknownCommand,
		UnknownDocument: a.handlers.Document,
	})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Bot:         a.bot,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, a.handlers.RateLimited),
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, rt coretelegram.Runtime) error {
	opts := ops.Options{Listen: a.cfg.Ops.Listen, Checks: a.checks}
	if rt.Dispatcher != nil {
		opts.SendErrors = rt.Dispatcher.ErrorCount
	}
	a.ops = ops.New(opts)
	return a.ops.Start(ctx)
}

func (a *App) stop(_ context.Context, _ coretelegram.Runtime) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if a.ops != nil {
		if err := a.ops.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ops shutdown: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
		a.db = nil
	}
	return errors.Join(errs...)
}

func (a *App) closeRedis() {
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
}
