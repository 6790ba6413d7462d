package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "votedeck/pkg/platform/audit"
	"votedeck/pkg/platform/audit/store/memory"
	"votedeck/pkg/requestcontext"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionVoteSubmitted})
	require.NoError(t, err)

	events, err := pub.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionVoteSubmitted, events[0].Action)
}

func TestPublisher_EnrichesFromContext(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientIP(ctx, "203.0.113.9")
	ctx = requestcontext.WithDevice(ctx, "Firefox 140 / Linux")

	require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionAdminLogin, Actor: "root"}))

	events, err := pub.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-42", events[0].RequestID)
	assert.Equal(t, "203.0.113.9", events[0].ClientIP)
	assert.Equal(t, "Firefox 140 / Linux", events[0].Device)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionVoteSubmitted})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()
}
