package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures RedisStore.
type RedisOptions struct {
	// KeyPrefix namespaces session keys; default "reviewbot".
	KeyPrefix string
	// TTL expires abandoned sessions; zero keeps them until deleted.
	TTL time.Duration
}

// RedisStore persists sessions as JSON values so they survive restarts and
// can be shared between webhook replicas.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(client redis.Cmdable, opts RedisOptions) *RedisStore {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "reviewbot"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: opts.TTL}
}

// Key returns the Redis key holding the user's session.
func (r *RedisStore) Key(userID int64) string {
	return fmt.Sprintf("%s:session:%d", r.prefix, userID)
}

// Load fetches and decodes the session; a missing key yields an idle session.
func (r *RedisStore) Load(ctx context.Context, userID int64) (Session, error) {
	raw, err := r.client.Get(ctx, r.Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSession(StateIdle), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: get: %v", ErrStoreUnavailable, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %d: %w", userID, err)
	}
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	return s, nil
}

// Save encodes and stores the session, refreshing its TTL.
func (r *RedisStore) Save(ctx context.Context, userID int64, s Session) error {
	s.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", userID, err)
	}
	if err := r.client.Set(ctx, r.Key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Delete removes the user's session key.
func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.Key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: del: %v", ErrStoreUnavailable, err)
	}
	return nil
}
