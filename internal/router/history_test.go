package router

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/howard-nolan/hive/internal/learn"
)

func TestMemoryStoreRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Record(ctx, learn.RoutingHistoryEntry{TaskType: "code", ModelID: "gpt-4o"}))
	require.NoError(t, store.Record(ctx, learn.RoutingHistoryEntry{TaskType: "chat", ModelID: "claude-haiku-4-5-20251001"}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "gpt-4o", recent[0].ModelID)
	require.Equal(t, "claude-haiku-4-5-20251001", recent[1].ModelID)
}

func TestMemoryStoreTrimsToCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < historyCapacity+10; i++ {
		require.NoError(t, store.Record(ctx, learn.RoutingHistoryEntry{ModelID: "m"}))
	}

	recent, err := store.Recent(ctx, historyCapacity+10)
	require.NoError(t, err)
	require.Len(t, recent, historyCapacity)
}

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, "hive:routing_history_test")
}

func TestRedisStoreRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	require.NoError(t, store.Record(ctx, learn.RoutingHistoryEntry{TaskType: "code", ModelID: "gpt-4o"}))
	require.NoError(t, store.Record(ctx, learn.RoutingHistoryEntry{TaskType: "chat", ModelID: "gemini-2.5-flash"}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "gpt-4o", recent[0].ModelID)
	require.Equal(t, "gemini-2.5-flash", recent[1].ModelID)
}

func TestRedisStoreEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, recent)
}
