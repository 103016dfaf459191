package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultStagingTTL bounds how long a pending upload survives between requests.
const DefaultStagingTTL = 30 * time.Minute

// ErrStagedFileMissing is returned when a staged file expired or never existed.
var ErrStagedFileMissing = errors.New("media: staged file not found")

// StagingStore holds pending upload bytes until the form is submitted.
type StagingStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, ids ...string) error
}

// MemoryStagingStore keeps staged files in process memory.
type MemoryStagingStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	files map[string]stagedFile
}

type stagedFile struct {
	data    []byte
	expires time.Time
}

// NewMemoryStagingStore constructs an in-memory store with ttl (DefaultStagingTTL when <= 0).
func NewMemoryStagingStore(ttl time.Duration) *MemoryStagingStore {
	if ttl <= 0 {
		ttl = DefaultStagingTTL
	}
	return &MemoryStagingStore{ttl: ttl, now: time.Now, files: make(map[string]stagedFile)}
}

// Put stores a copy of data and returns its id.
func (s *MemoryStagingStore) Put(_ context.Context, data []byte) (string, error) {
	id := ulid.Make().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.files[id] = stagedFile{data: append([]byte(nil), data...), expires: s.now().Add(s.ttl)}
	return id, nil
}

// Get returns the staged bytes.
func (s *MemoryStagingStore) Get(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[strings.TrimSpace(id)]
	if !ok || s.now().After(f.expires) {
		return nil, fmt.Errorf("%w: %s", ErrStagedFileMissing, id)
	}
	return append([]byte(nil), f.data...), nil
}

// Delete drops staged files; unknown ids are ignored.
func (s *MemoryStagingStore) Delete(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.files, strings.TrimSpace(id))
	}
	return nil
}

func (s *MemoryStagingStore) sweepLocked() {
	now := s.now()
	for id, f := range s.files {
		if now.After(f.expires) {
			delete(s.files, id)
		}
	}
}

// RedisStagingStore keeps staged files in Redis with an expiry, so any replica can finish the
// submission.
type RedisStagingStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStagingStore constructs a Redis-backed store.
func NewRedisStagingStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) (*RedisStagingStore, error) {
	if rdb == nil {
		return nil, errors.New("media: redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultStagingTTL
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "catalog-admin:staging:"
	}
	return &RedisStagingStore{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

// Put stores data under a new id.
func (s *RedisStagingStore) Put(ctx context.Context, data []byte) (string, error) {
	id := ulid.Make().String()
	if err := s.rdb.Set(ctx, s.prefix+id, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("media: stage file: %w", err)
	}
	return id, nil
}

// Get returns the staged bytes.
func (s *RedisStagingStore) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.prefix+strings.TrimSpace(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrStagedFileMissing, id)
	}
	if err != nil {
		return nil, fmt.Errorf("media: load staged file %s: %w", id, err)
	}
	return data, nil
}

// Delete drops staged files.
func (s *RedisStagingStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			keys = append(keys, s.prefix+id)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("media: delete staged files: %w", err)
	}
	return nil
}
