package state

import (
	"context"
	"errors"
	"time"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// ErrStoreUnavailable wraps backend failures of a session store.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Session stores conversation state and small string values for a user.
type Session struct {
	State     State             `json:"state"`
	Data      map[string]string `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewSession returns an empty session in the given state.
func NewSession(st State) Session {
	return Session{State: st, Data: make(map[string]string)}
}

// Value returns a stored value by key.
func (s Session) Value(key string) (string, bool) {
	if s.Data == nil {
		return "", false
	}
	v, ok := s.Data[key]
	return v, ok
}

// With returns a copy of the session carrying key=value.
func (s Session) With(key, value string) Session {
	s = s.clone()
	s.Data[key] = value
	return s
}

func (s Session) clone() Session {
	data := make(map[string]string, len(s.Data)+1)
	for k, v := range s.Data {
		data[k] = v
	}
	s.Data = data
	return s
}

// Active reports whether the session is in any state other than idle.
func (s Session) Active() bool {
	return s.State != "" && s.State != StateIdle
}

// Store persists sessions keyed by Telegram user ID.
// Load never fails for unknown users; it returns an idle session instead.
type Store interface {
	Load(ctx context.Context, userID int64) (Session, error)
	Save(ctx context.Context, userID int64, s Session) error
	Delete(ctx context.Context, userID int64) error
}
