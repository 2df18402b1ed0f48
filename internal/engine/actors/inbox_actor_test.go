package actors

import (
	"context"
	"testing"
	"time"

	"idea-pond/internal/models"
	"idea-pond/internal/profiles"
	"idea-pond/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnInboxActor(t *testing.T, store ConversationStore) (*actor.ActorSystem, *actor.PID) {
	t.Helper()

	resolver := profiles.NewResolver(&staticProfileStore{profiles: map[string]*models.Profile{
		"u2": {ID: "u2", Username: "bob", DisplayName: "Bob"},
	}})

	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewInboxActor(store, resolver, utils.NewMetricsCollector())
	})
	return system, system.Root.Spawn(props)
}

func seedConversation(t *testing.T, store *memConversationStore, id string, participants []string, senderID string, sentAt time.Time) {
	t.Helper()
	ctx := context.Background()
	_, err := store.EnsureConversation(ctx, id, participants, "")
	require.NoError(t, err)
	require.NoError(t, store.RecordMessageSent(ctx, id, senderID, "hello", sentAt))
}

func TestListInbox(t *testing.T) {
	store := newMemConversationStore()
	base := time.Now().UTC()
	seedConversation(t, store, "u1_u2", []string{"u1", "u2"}, "u2", base)
	seedConversation(t, store, "u1_u3", []string{"u1", "u3"}, "u1", base.Add(time.Minute))

	system, pid := spawnInboxActor(t, store)

	future := system.Root.RequestFuture(pid, &ListInboxMsg{UserID: "u1"}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)

	entries, ok := result.([]*InboxEntry)
	require.True(t, ok, "expected inbox entries, got %T: %v", result, result)
	require.Len(t, entries, 2)

	// Ordered by lastMessageAt descending
	assert.Equal(t, "u1_u3", entries[0].Conversation.ID)
	assert.Equal(t, "u1_u2", entries[1].Conversation.ID)

	// u1 sent the last message in u1_u3, so only u1_u2 is unread
	assert.False(t, entries[0].Unread)
	assert.True(t, entries[1].Unread)

	// Known peer gets the real identity, unknown peer the placeholder
	assert.Equal(t, "Unknown user", entries[0].Peer.DisplayName)
	assert.Equal(t, "Bob", entries[1].Peer.DisplayName)
}

func TestUnreadCount(t *testing.T) {
	store := newMemConversationStore()
	base := time.Now().UTC()
	seedConversation(t, store, "u1_u2", []string{"u1", "u2"}, "u2", base)
	seedConversation(t, store, "u1_u3", []string{"u1", "u3"}, "u3", base.Add(time.Second))
	seedConversation(t, store, "u1_u4", []string{"u1", "u4"}, "u1", base.Add(2*time.Second))

	system, pid := spawnInboxActor(t, store)

	future := system.Root.RequestFuture(pid, &UnreadCountMsg{UserID: "u1"}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	assert.Equal(t, 2, result)

	// Marking one read drops the count
	require.NoError(t, store.MarkRead(context.Background(), "u1_u2", "u1", base.Add(models.ReadCursorSkew)))

	future = system.Root.RequestFuture(pid, &UnreadCountMsg{UserID: "u1"}, 5*time.Second)
	result, err = future.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, result)
}

func TestListInboxEmpty(t *testing.T) {
	store := newMemConversationStore()
	system, pid := spawnInboxActor(t, store)

	future := system.Root.RequestFuture(pid, &ListInboxMsg{UserID: "loner"}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)

	entries, ok := result.([]*InboxEntry)
	require.True(t, ok)
	assert.Empty(t, entries)
}
