package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	author := domain.Identity{UserID: "alice@example.com", Name: "Alice"}
	msg, err := store.Append(ctx, "roomA", author, false, "hi")
	require.NoError(t, err)

	assert.NotZero(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, "roomA", msg.Room)
	assert.Equal(t, "alice@example.com", msg.SenderID)
	assert.Equal(t, "Alice", msg.Sender)
	assert.Equal(t, "hi", msg.Content)

	second, err := store.Append(ctx, "roomA", author, false, "again")
	require.NoError(t, err)
	assert.Greater(t, second.ID, msg.ID, "ids must increase with insertion order")
}

func TestReadOldestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	author := domain.Identity{UserID: "u1", Name: "alice"}

	for i := 1; i <= 5; i++ {
		_, err := store.Append(ctx, "roomA", author, false, fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	msgs, err := store.Read(ctx, "roomA", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("msg-%d", i+1), m.Content)
	}
}

func TestReadLimitReturnsNewest(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	author := domain.Identity{UserID: "u1", Name: "alice"}

	for i := 1; i <= 5; i++ {
		_, err := store.Append(ctx, "roomA", author, false, fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	msgs, err := store.Read(ctx, "roomA", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	// Newest two, still oldest-first.
	assert.Equal(t, "msg-4", msgs[0].Content)
	assert.Equal(t, "msg-5", msgs[1].Content)
}

func TestReadEmptyRoom(t *testing.T) {
	store := setupStore(t)
	msgs, err := store.Read(context.Background(), "nowhere", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRoomsAreIsolated(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	author := domain.Identity{UserID: "u1", Name: "alice"}

	_, err := store.Append(ctx, "roomA", author, false, "in A")
	require.NoError(t, err)
	_, err = store.Append(ctx, "roomB", author, false, "in B")
	require.NoError(t, err)

	msgs, err := store.Read(ctx, "roomA", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "in A", msgs[0].Content)
}

func TestBotFlagPersists(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	bot := domain.Identity{UserID: "gemini-bot@example.com", Name: "Gemini Bot"}
	_, err := store.Append(ctx, "roomA", bot, true, "generated reply")
	require.NoError(t, err)

	msgs, err := store.Read(ctx, "roomA", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Bot)
}
