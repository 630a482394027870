package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/howard-nolan/hive/internal/learn"
)

// historyCapacity bounds the in-memory ledger and the Redis list so the
// ledger stays a rolling window of recent decisions rather than growing
// without bound.
const historyCapacity = 1000

// Store persists the routing-history ledger used by the learning
// subsystem's self-evaluation report. Callers that don't need persistence
// across restarts can use MemoryStore; RedisStore backs it with Redis so
// the ledger survives a process restart.
type Store interface {
	Record(ctx context.Context, entry learn.RoutingHistoryEntry) error
	Recent(ctx context.Context, n int) ([]learn.RoutingHistoryEntry, error)
}

// MemoryStore is a process-local ring buffer of recent routing decisions.
type MemoryStore struct {
	mu      sync.Mutex
	entries []learn.RoutingHistoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends entry, trimming the oldest entry once historyCapacity is
// exceeded.
func (s *MemoryStore) Record(_ context.Context, entry learn.RoutingHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if len(s.entries) > historyCapacity {
		s.entries = s.entries[len(s.entries)-historyCapacity:]
	}
	return nil
}

// Recent returns up to n of the most recently recorded entries, newest
// last.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]learn.RoutingHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]learn.RoutingHistoryEntry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out, nil
}

// RedisStore persists the routing-history ledger in a Redis list, so a
// node's routing history survives a restart. Backed by miniredis in
// tests, a real Redis instance in production.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore wraps an existing redis.Client. key is the list key the
// ledger is stored under, e.g. "hive:routing_history".
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Record appends entry to the Redis list and trims it to historyCapacity.
func (s *RedisStore) Record(ctx context.Context, entry learn.RoutingHistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling routing history entry: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, -historyCapacity, -1)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("recording routing history: %w", err)
	}
	return nil
}

// Recent returns up to n of the most recently recorded entries, newest
// last.
func (s *RedisStore) Recent(ctx context.Context, n int) ([]learn.RoutingHistoryEntry, error) {
	length, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading routing history length: %w", err)
	}
	if n <= 0 || int64(n) > length {
		n = int(length)
	}
	if n == 0 {
		return nil, nil
	}

	raw, err := s.client.LRange(ctx, s.key, int64(n)*-1, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading routing history: %w", err)
	}

	out := make([]learn.RoutingHistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry learn.RoutingHistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
