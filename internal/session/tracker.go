// Package session tracks each user's place in the feedback conversation.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/reviewbot/core/logger"
	"github.com/m3rciful/reviewbot/core/telegram/state"
)

const (
	// PhaseIdle means no conversation is in progress.
	PhaseIdle = state.StateIdle
	// PhaseAwaitingEstablishment waits for a menu choice.
	PhaseAwaitingEstablishment state.State = "awaiting_establishment"
	// PhaseAwaitingFeedback waits for text and/or a photo.
	PhaseAwaitingFeedback state.State = "awaiting_feedback"

	keyEstablishment = "establishment"
	component        = "service.sessions"
)

// Selection is the outcome of matching user text against the menu.
type Selection struct {
	Matched       bool
	Establishment string
}

// Tracker owns the per-user conversation phase and chosen establishment.
// It holds no state of its own; everything lives in the injected store.
type Tracker struct {
	store state.Store
	menu  []string
	index map[string]struct{}
}

// NewTracker builds a tracker over store for the ordered establishment menu.
func NewTracker(store state.Store, establishments []string) *Tracker {
	menu := append([]string(nil), establishments...)
	index := make(map[string]struct{}, len(menu))
	for _, name := range menu {
		index[name] = struct{}{}
	}
	return &Tracker{store: store, menu: menu, index: index}
}

// Establishments returns a copy of the menu in configured order.
func (t *Tracker) Establishments() []string {
	return append([]string(nil), t.menu...)
}

// IsEstablishment reports whether text names a menu entry exactly.
func (t *Tracker) IsEstablishment(text string) bool {
	_, ok := t.index[text]
	return ok
}

// Start resets the user's session to awaiting_establishment and returns the menu.
func (t *Tracker) Start(ctx context.Context, userID int64) ([]string, error) {
	current, err := t.Phase(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, err := transition(ctx, current, eventStart)
	if err != nil {
		return nil, err
	}
	if err := t.store.Save(ctx, userID, state.NewSession(next)); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	logger.Info(ctx, component, "session.start",
		slog.Int64("user_id", userID),
		slog.String("from", string(current)),
		slog.String("phase", string(next)),
	)
	return t.Establishments(), nil
}

// SelectEstablishment stores text as the user's establishment when it matches
// the menu exactly and advances to awaiting_feedback. A miss leaves the
// session untouched so the caller can re-prompt.
func (t *Tracker) SelectEstablishment(ctx context.Context, userID int64, text string) (Selection, error) {
	if !t.IsEstablishment(text) {
		logger.Debug(ctx, component, "session.select",
			slog.String("outcome", "reprompt"),
			slog.Int64("user_id", userID),
		)
		return Selection{}, nil
	}
	sess, err := t.store.Load(ctx, userID)
	if err != nil {
		return Selection{}, fmt.Errorf("load session: %w", err)
	}
	current := phaseOf(sess)
	next, err := transition(ctx, current, eventSelect)
	if err != nil {
		return Selection{}, err
	}
	sess.State = next
	if err := t.store.Save(ctx, userID, sess.With(keyEstablishment, text)); err != nil {
		return Selection{}, fmt.Errorf("save selection: %w", err)
	}
	logger.Info(logger.WithEstablishment(ctx, text), component, "session.select",
		slog.String("outcome", "ok"),
		slog.Int64("user_id", userID),
		slog.String("from", string(current)),
		slog.String("phase", string(next)),
	)
	return Selection{Matched: true, Establishment: text}, nil
}

// Establishment returns the selected establishment for a user awaiting feedback.
func (t *Tracker) Establishment(ctx context.Context, userID int64) (string, bool, error) {
	sess, err := t.store.Load(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("load session: %w", err)
	}
	if phaseOf(sess) != PhaseAwaitingFeedback {
		return "", false, nil
	}
	name, ok := sess.Value(keyEstablishment)
	if !ok || name == "" {
		return "", false, nil
	}
	return name, true, nil
}

// Finish clears the session after a recording attempt, successful or not.
func (t *Tracker) Finish(ctx context.Context, userID int64) error {
	current, err := t.Phase(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := transition(ctx, current, eventSubmit); err != nil {
		logger.Warn(ctx, component, "session.finish",
			slog.String("status", "skip"),
			slog.Int64("user_id", userID),
			slog.String("phase", string(current)),
		)
	}
	return t.clear(ctx, userID, "session.finish")
}

// Cancel drops the session from any phase.
func (t *Tracker) Cancel(ctx context.Context, userID int64) error {
	current, err := t.Phase(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := transition(ctx, current, eventCancel); err != nil {
		return err
	}
	return t.clear(ctx, userID, "session.cancel")
}

// Phase returns the user's current phase; unknown users are idle.
func (t *Tracker) Phase(ctx context.Context, userID int64) (state.State, error) {
	sess, err := t.store.Load(ctx, userID)
	if err != nil {
		return PhaseIdle, fmt.Errorf("load session: %w", err)
	}
	return phaseOf(sess), nil
}

func (t *Tracker) clear(ctx context.Context, userID int64, event string) error {
	if err := t.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	logger.Info(ctx, component, event,
		slog.Int64("user_id", userID),
		slog.String("phase", string(PhaseIdle)),
	)
	return nil
}

func phaseOf(s state.Session) state.State {
	if s.State == "" {
		return PhaseIdle
	}
	return s.State
}
