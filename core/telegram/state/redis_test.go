package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis implements the three commands RedisStore uses; any other call
// panics on the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = string(value.([]byte))
	f.ttl[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	st := NewRedisStore(client, RedisOptions{KeyPrefix: "test", TTL: time.Hour})

	if err := st.Save(ctx, 42, NewSession("awaiting_feedback").With("establishment", "Good Company")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if client.ttl["test:session:42"] != time.Hour {
		t.Fatalf("ttl = %v", client.ttl["test:session:42"])
	}

	s, err := st.Load(ctx, 42)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v, _ := s.Value("establishment"); s.State != "awaiting_feedback" || v != "Good Company" {
		t.Fatalf("session = %+v", s)
	}
	if s.UpdatedAt.IsZero() {
		t.Fatal("updated_at not stamped")
	}

	if err := st.Delete(ctx, 42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s, _ := st.Load(ctx, 42); s.State != StateIdle {
		t.Fatalf("state after delete = %q", s.State)
	}
}

func TestRedisStoreKey(t *testing.T) {
	if got := NewRedisStore(newFakeRedis(), RedisOptions{}).Key(7); got != "reviewbot:session:7" {
		t.Fatalf("key = %q", got)
	}
	if got := NewRedisStore(newFakeRedis(), RedisOptions{KeyPrefix: "staging"}).Key(7); got != "staging:session:7" {
		t.Fatalf("key = %q", got)
	}
}

func TestRedisStoreWrapsBackendErrors(t *testing.T) {
	client := newFakeRedis()
	client.err = errors.New("connection reset")
	st := NewRedisStore(client, RedisOptions{})

	if _, err := st.Load(context.Background(), 1); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("load err = %v", err)
	}
	if err := st.Save(context.Background(), 1, NewSession(StateIdle)); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("save err = %v", err)
	}
	if err := st.Delete(context.Background(), 1); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("delete err = %v", err)
	}
}

func TestRedisStoreRejectsCorruptValue(t *testing.T) {
	client := newFakeRedis()
	client.data["reviewbot:session:3"] = "{not json"
	st := NewRedisStore(client, RedisOptions{})
	if _, err := st.Load(context.Background(), 3); err == nil || errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v", err)
	}
}
