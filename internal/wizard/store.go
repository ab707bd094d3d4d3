package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDraftNotFound is returned when a draft id does not exist or its TTL
// has elapsed. Handlers translate this into a 404.
var ErrDraftNotFound = errors.New("draft not found")

// Store persists drafts between wizard requests. Implementations must
// bound every draft's lifetime so abandoned flows clean themselves up.
type Store interface {
	Save(ctx context.Context, d *Draft) error
	Get(ctx context.Context, id string) (*Draft, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps drafts as JSON under "draft:<id>" with a TTL. Saving
// refreshes the TTL, so an active flow never expires mid-use.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore returns a Store backed by the given Redis client.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func draftKey(id string) string { return "draft:" + id }

func (s *RedisStore) Save(ctx context.Context, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, draftKey(d.ID), raw, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Draft, error) {
	raw, err := s.rdb.Get(ctx, draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, draftKey(id)).Err()
}

// MemoryStore is the fallback when Redis is unreachable at startup. It
// honours the same TTL semantics, evicting lazily on access.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	drafts map[string]memoryEntry
}

type memoryEntry struct {
	draft   Draft
	expires time.Time
}

// NewMemoryStore returns an in-process Store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, drafts: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Save(_ context.Context, d *Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.ID] = memoryEntry{draft: *d, expires: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.drafts[id]
	if !ok || time.Now().After(e.expires) {
		delete(s.drafts, id)
		return nil, ErrDraftNotFound
	}
	d := e.draft
	return &d, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}
