package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned by Load for unknown or expired ids.
var ErrSessionNotFound = errors.New("session not found")

// Store keeps session states by id.  Entries expire after a period of
// inactivity; an expired draft is simply gone.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, st State) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps states as JSON under "<prefix>:<id>".
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a Redis backed store.  ttl <= 0 defaults to 30 minutes.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string { return s.prefix + ":" + id }

// Load reads and decodes the state stored for id.
func (s *RedisStore) Load(ctx context.Context, id string) (State, error) {
	bs, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, ErrSessionNotFound
		}
		return State{}, fmt.Errorf("load session: %w", err)
	}
	var st State
	if err := json.Unmarshal(bs, &st); err != nil {
		return State{}, fmt.Errorf("decode session: %w", err)
	}
	return st, nil
}

// Save stores st for id and refreshes its expiry.
func (s *RedisStore) Save(ctx context.Context, id string, st State) error {
	bs, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(id), bs, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete forgets id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}

type memEntry struct {
	state   State
	expires time.Time
}

// MemoryStore keeps states in process.  It is used when Redis is not
// reachable at startup.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memEntry
}

// NewMemoryStore returns an in-process store.  ttl <= 0 defaults to 30 minutes.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStore{ttl: ttl, now: time.Now, items: make(map[string]memEntry)}
}

// Load returns a copy of the state for id.
func (s *MemoryStore) Load(_ context.Context, id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok || !s.now().Before(e.expires) {
		delete(s.items, id)
		return State{}, ErrSessionNotFound
	}
	return cloneState(e.state), nil
}

// Save stores a copy of st and sweeps expired entries.
func (s *MemoryStore) Save(_ context.Context, id string, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.items {
		if !now.Before(e.expires) {
			delete(s.items, k)
		}
	}
	s.items[id] = memEntry{state: cloneState(st), expires: now.Add(s.ttl)}
	return nil
}

// Delete forgets id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// cloneState copies the maps and target so stored states never alias
// a caller's state.
func cloneState(st State) State {
	out := st
	if st.Target != nil {
		t := *st.Target
		out.Target = &t
	}
	out.Errors = maps.Clone(st.Errors)
	out.Touched = maps.Clone(st.Touched)
	return out
}
