package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/reviewbot/core/logger"
	tghelpers "github.com/m3rciful/reviewbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Dispatcher routes an update to the handler registered for the sender's
// current state. Unlike a package-level table it is owned by one bot.
type Dispatcher struct {
	store Store

	mu       sync.RWMutex
	handlers map[State]tele.HandlerFunc
	fallback tele.HandlerFunc
}

// NewDispatcher creates a dispatcher reading states from store.
func NewDispatcher(store Store) *Dispatcher {
	return &Dispatcher{
		store:    store,
		handlers: make(map[State]tele.HandlerFunc),
	}
}

// Register associates a state with its handler.
func (d *Dispatcher) Register(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[st] = h
}

// SetFallback sets the handler used when no state handler matches or the
// store cannot be read.
func (d *Dispatcher) SetFallback(h tele.HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallback = h
}

// Store exposes the underlying session store.
func (d *Dispatcher) Store() Store {
	return d.store
}

// Current returns the sender's state; unknown users are idle.
func (d *Dispatcher) Current(ctx context.Context, userID int64) (State, error) {
	s, err := d.store.Load(ctx, userID)
	if err != nil {
		return StateIdle, err
	}
	if s.State == "" {
		return StateIdle, nil
	}
	return s.State, nil
}

// Handle executes the handler registered for the sender's current state.
func (d *Dispatcher) Handle(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	current, err := d.Current(ctx, sender.ID)
	if err != nil {
		logger.Error(ctx, "tg", "fsm.load_failed",
			slog.Int64("user_id", sender.ID),
			slog.String("err", err.Error()),
		)
		return d.runFallback(c)
	}
	logger.Debug(ctx, "tg", "fsm.dispatch",
		slog.String("status", "ok"),
		slog.Int64("user_id", sender.ID),
		slog.String("phase", string(current)),
	)

	d.mu.RLock()
	handler, ok := d.handlers[current]
	d.mu.RUnlock()
	if ok {
		return handler(c)
	}
	return d.runFallback(c)
}

func (d *Dispatcher) runFallback(c tele.Context) error {
	d.mu.RLock()
	fb := d.fallback
	d.mu.RUnlock()
	if fb == nil {
		return nil
	}
	return fb(c)
}
