package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveConversationID(t *testing.T) {
	assert.Equal(t, "u1_u2", DeriveConversationID("u2", "u1"))
	assert.Equal(t, "u1_u2", DeriveConversationID("u1", "u2"))

	// Commutative for arbitrary pairs
	pairs := [][2]string{
		{"alice", "bob"},
		{"zed", "aaron"},
		{"a", "ab"},
		{"42", "7"},
	}
	for _, p := range pairs {
		assert.Equal(t, DeriveConversationID(p[0], p[1]), DeriveConversationID(p[1], p[0]))
	}
}

func TestIsUnread(t *testing.T) {
	sentAt := time.Unix(1000, 0)
	c := &Conversation{
		ID:                  "u1_u2",
		ParticipantIDs:      []string{"u1", "u2"},
		LastMessageText:     "hello",
		LastMessageAt:       sentAt,
		LastMessageSenderID: "u1",
		LastReadAt: map[string]time.Time{
			"u1": sentAt.Add(ReadCursorSkew),
		},
	}

	// The sender is always caught up on their own message
	assert.False(t, c.IsUnread("u1"))

	// The recipient has no read cursor yet: unread
	assert.True(t, c.IsUnread("u2"))

	// Cursor behind the last message: still unread
	c.LastReadAt["u2"] = sentAt.Add(-time.Second)
	assert.True(t, c.IsUnread("u2"))

	// Cursor at or past the last message: read
	c.LastReadAt["u2"] = sentAt
	assert.False(t, c.IsUnread("u2"))
	c.LastReadAt["u2"] = c.ReadThrough()
	assert.False(t, c.IsUnread("u2"))
}

func TestIsUnreadEmptyConversation(t *testing.T) {
	c := &Conversation{
		ID:             "u1_u2",
		ParticipantIDs: []string{"u1", "u2"},
	}

	// No message yet: nothing to be unread about
	assert.False(t, c.IsUnread("u1"))
	assert.False(t, c.IsUnread("u2"))
}

func TestReadThrough(t *testing.T) {
	sentAt := time.Unix(1000, 0)
	c := &Conversation{LastMessageAt: sentAt}

	// The cursor target is stamped strictly past the message's own timestamp
	assert.Equal(t, sentAt.Add(100*time.Millisecond), c.ReadThrough())
	assert.True(t, c.ReadThrough().After(c.LastMessageAt))
}

func TestPeerOf(t *testing.T) {
	c := &Conversation{ParticipantIDs: []string{"u1", "u2"}}

	assert.Equal(t, "u2", c.PeerOf("u1"))
	assert.Equal(t, "u1", c.PeerOf("u2"))
	assert.True(t, c.HasParticipant("u1"))
	assert.False(t, c.HasParticipant("u3"))
}
