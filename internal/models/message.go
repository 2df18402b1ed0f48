package models

import "time"

// Message is a single direct message. Immutable once created; this subsystem
// has no update or delete operation for messages. CreatedAt is server-assigned
// and strictly increasing within a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}
