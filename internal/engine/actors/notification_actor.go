package actors

import (
	"context"
	"log/slog"
	"time"

	"idea-pond/internal/models"
	"idea-pond/internal/notifications"
	"idea-pond/internal/profiles"

	"github.com/asynkron/protoactor-go/actor"
)

// Message types for NotificationActor. All are fire-and-forget: no Respond,
// and a slow or failed dispatch never blocks or fails message delivery.
type (
	NotifyDirectMessageMsg struct {
		ConversationID string    `json:"conversationId"`
		SenderID       string    `json:"senderId"`
		RecipientID    string    `json:"recipientId"`
		Text           string    `json:"text"`
		SentAt         time.Time `json:"sentAt"`
	}

	// NotifyCommentMsg covers the two comment-shaped events: a new top-level
	// comment on an idea (ThreadID empty, throttled per idea) and a reply in
	// a comment thread (throttled per thread).
	NotifyCommentMsg struct {
		IdeaID      string    `json:"ideaId"`
		ThreadID    string    `json:"threadId,omitempty"`
		SenderID    string    `json:"senderId"`
		RecipientID string    `json:"recipientId"`
		Text        string    `json:"text"`
		PostedAt    time.Time `json:"postedAt"`
	}
)

// NotificationActor decides whether notification-worthy events fire an
// outbound dispatch, consulting the throttle's cool-down window per
// (key, recipient) pair.
type NotificationActor struct {
	throttle   *notifications.Throttle
	dispatcher *notifications.Dispatcher
	resolver   *profiles.Resolver
	metrics    *metricsRecorder
	timeout    time.Duration
}

// metricsRecorder narrows utils.MetricsCollector to what this actor needs,
// so tests can count outcomes without a collector.
type metricsRecorder struct {
	record func(outcome string)
}

func NewNotificationActor(throttle *notifications.Throttle, dispatcher *notifications.Dispatcher, resolver *profiles.Resolver, recordOutcome func(outcome string)) actor.Actor {
	if recordOutcome == nil {
		recordOutcome = func(string) {}
	}
	return &NotificationActor{
		throttle:   throttle,
		dispatcher: dispatcher,
		resolver:   resolver,
		metrics:    &metricsRecorder{record: recordOutcome},
		timeout:    15 * time.Second,
	}
}

func (a *NotificationActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *NotifyDirectMessageMsg:
		a.notify(msg.ConversationID, msg.SenderID, msg.RecipientID, models.EventDirectMessage, &notifications.DispatchRequest{
			RecipientID:      msg.RecipientID,
			MessageText:      msg.Text,
			ConversationID:   msg.ConversationID,
			NotificationType: models.EventDirectMessage,
		}, msg.SentAt)

	case *NotifyCommentMsg:
		key := msg.IdeaID
		eventType := models.EventNewComment
		if msg.ThreadID != "" {
			key = msg.ThreadID
			eventType = models.EventCommentReply
		}
		a.notify(key, msg.SenderID, msg.RecipientID, eventType, &notifications.DispatchRequest{
			RecipientID:      msg.RecipientID,
			CommentText:      msg.Text,
			IdeaID:           msg.IdeaID,
			NotificationType: eventType,
		}, msg.PostedAt)
	}
}

func (a *NotificationActor) notify(key, senderID, recipientID, eventType string, req *notifications.DispatchRequest, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	ok, err := a.throttle.ShouldNotify(ctx, key, senderID, recipientID, at)
	if err != nil {
		// Best-effort: a broken throttle store mutes notifications rather
		// than spamming recipients or failing the send path.
		slog.Error("throttle check failed, skipping notification",
			"key", key, "recipient", recipientID, "error", err)
		a.metrics.record("failed")
		return
	}
	if !ok {
		slog.Debug("notification throttled", "key", key, "recipient", recipientID, "type", eventType)
		a.metrics.record("skipped")
		return
	}

	senderName := a.resolver.Resolve(ctx, senderID).DisplayName
	req.SenderName = senderName

	skipped, err := a.dispatcher.Dispatch(ctx, req)
	if err != nil {
		// Logged only; never propagated to the sender-facing flow.
		slog.Error("notification dispatch failed",
			"key", key, "recipient", recipientID, "type", eventType, "error", err)
		a.metrics.record("failed")
		return
	}
	if skipped {
		a.metrics.record("skipped")
		return
	}

	if err := a.throttle.RecordNotified(ctx, key, recipientID, senderName, eventType, at); err != nil {
		slog.Warn("failed to record notification cursor", "key", key, "recipient", recipientID, "error", err)
	}
	a.metrics.record("dispatched")
}
