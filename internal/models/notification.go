package models

import "time"

// Notification event types. Direct messages key the throttle by conversation
// id; top-level comments key by idea id and replies by comment thread id.
const (
	EventDirectMessage = "direct_message"
	EventNewComment    = "new_comment"
	EventCommentReply  = "comment_reply"
)

// DebounceRecord tracks when each recipient was last notified for a given
// throttling key. LastSenderName and EventType are kept for observability
// only; they play no part in the throttling decision.
type DebounceRecord struct {
	Key            string               `json:"key"`
	LastNotifiedAt map[string]time.Time `json:"lastNotifiedAt"`
	LastSenderName string               `json:"lastSenderName,omitempty"`
	EventType      string               `json:"eventType,omitempty"`
}
