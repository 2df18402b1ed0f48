package actors

import (
	"context"
	"time"

	"idea-pond/internal/models"
)

// ConversationStore is the Conversation Directory: one summary record per
// conversation. Implemented by database.MongoDB; tests use in-memory fakes.
type ConversationStore interface {
	EnsureConversation(ctx context.Context, id string, participantIDs []string, topicID string) (*models.Conversation, error)
	RecordMessageSent(ctx context.Context, conversationID, senderID, text string, sentAt time.Time) error
	MarkRead(ctx context.Context, conversationID, participantID string, through time.Time) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversationsFor(ctx context.Context, userID string) ([]*models.Conversation, error)
}

// MessageStore is the append-only Message Log.
type MessageStore interface {
	AppendMessage(ctx context.Context, conversationID, senderID, text string) (*models.Message, error)
	ListMessagesSince(ctx context.Context, conversationID string, after time.Time) ([]*models.Message, error)
}

// Pusher delivers event payloads to a user's live connections. Implemented by
// the websocket hub; delivery is best-effort.
type Pusher interface {
	PushToUser(userID string, payload []byte)
}
