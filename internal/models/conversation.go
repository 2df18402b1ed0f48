package models

import (
	"strings"
	"time"
)

// ConversationIDSeparator joins the two sorted participant ids into the
// canonical conversation id.
const ConversationIDSeparator = "_"

// ReadCursorSkew is the fixed buffer added to lastMessageAt when a client
// stamps its read cursor. The summary write can lag the message append by a
// small, variable amount; stamping the cursor strictly past the message's own
// timestamp keeps a sender from seeing their own message flip back to unread.
// The 100ms value is a heuristic, not a proof against arbitrary clock skew.
const ReadCursorSkew = 100 * time.Millisecond

// Conversation is the durable summary record for a two-party message thread.
// Identity, participants, topic and createdAt are immutable after creation;
// the lastMessage* fields are updated only by the send path and LastReadAt
// entries advance monotonically per participant.
type Conversation struct {
	ID                  string               `json:"id"`
	ParticipantIDs      []string             `json:"participantIds"`
	TopicID             string               `json:"topicId,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	LastMessageText     string               `json:"lastMessageText,omitempty"`
	LastMessageAt       time.Time            `json:"lastMessageAt,omitempty"`
	LastMessageSenderID string               `json:"lastMessageSenderId,omitempty"`
	LastReadAt          map[string]time.Time `json:"lastReadAt,omitempty"`
}

// DeriveConversationID maps a pair of participant ids to the canonical
// conversation id. Pure: sorts the two ids lexicographically and joins them,
// so DeriveConversationID(a, b) == DeriveConversationID(b, a). Any client can
// compute the same id a reconnecting peer will compute, so no allocation
// service or lookup table is needed.
func DeriveConversationID(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + ConversationIDSeparator + b
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.ParticipantIDs {
		if p == userID {
			return true
		}
	}
	return false
}

// PeerOf returns the other participant's id, or "" when userID is not a
// participant.
func (c *Conversation) PeerOf(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.ParticipantIDs {
		if p != userID {
			return p
		}
	}
	return ""
}

// IsUnread reports whether the conversation holds unread content for the
// given participant: the last message was sent by someone else and the
// participant's read cursor is behind it. An absent cursor means the
// participant has never read anything, which counts as behind. A participant
// is always caught up on their own outgoing messages.
func (c *Conversation) IsUnread(participantID string) bool {
	if c.LastMessageAt.IsZero() {
		return false
	}
	if c.LastMessageSenderID == participantID {
		return false
	}
	readAt, ok := c.LastReadAt[participantID]
	if !ok {
		return true
	}
	return readAt.Before(c.LastMessageAt)
}

// ReadThrough computes the instant a caught-up client should advance its read
// cursor to: lastMessageAt plus a fixed skew rather than the raw wall clock.
// Using now() risks a cursor that is less than a lastMessageAt written moments
// later by the same send operation.
func (c *Conversation) ReadThrough() time.Time {
	return c.LastMessageAt.Add(ReadCursorSkew)
}
