package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bitfantasy/whp/internal/whp/importer"
)

const defaultSessionTTL = 2 * time.Hour

// SessionOptions configures import session storage.
type SessionOptions struct {
	TTL    time.Duration
	Prefix string
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.TTL <= 0 {
		o.TTL = defaultSessionTTL
	}
	if o.Prefix == "" {
		o.Prefix = "whp:import:"
	}
	return o
}

// SessionStore keeps one import pipeline snapshot per browser session.
// Load returns ErrNotFound for an unknown or expired session.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*importer.Snapshot, error)
	Save(ctx context.Context, sessionID string, snap importer.Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

// MemorySessionStore keeps snapshots in process. Expired entries are swept
// on access.
type MemorySessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// NewMemorySessionStore creates an in-process store.
func NewMemorySessionStore(opts SessionOptions) *MemorySessionStore {
	opts = opts.withDefaults()
	return &MemorySessionStore{
		ttl:     opts.TTL,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemorySessionStore) Load(_ context.Context, sessionID string) (*importer.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	e, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	var snap importer.Snapshot
	if err := json.Unmarshal(e.data, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &snap, nil
}

func (s *MemorySessionStore) Save(_ context.Context, sessionID string, snap importer.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[sessionID] = memoryEntry{data: data, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

func (s *MemorySessionStore) sweep() {
	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, id)
		}
	}
}

// RedisSessionStore keeps snapshots as JSON strings with a TTL.
type RedisSessionStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSessionStore creates a redis-backed store.
func NewRedisSessionStore(rdb *redis.Client, opts SessionOptions) *RedisSessionStore {
	opts = opts.withDefaults()
	return &RedisSessionStore{rdb: rdb, ttl: opts.TTL, prefix: opts.Prefix}
}

func (s *RedisSessionStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) (*importer.Snapshot, error) {
	data, err := s.rdb.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	var snap importer.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &snap, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, sessionID string, snap importer.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	if err := s.rdb.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, s.key(sessionID)).Err()
}
