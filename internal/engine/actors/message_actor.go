package actors

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"idea-pond/internal/models"
	"idea-pond/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Message types for MessageActor
type (
	// SendMessageMsg runs the full send path: ensure the conversation,
	// append to the log, merge the summary record, then fan out.
	SendMessageMsg struct {
		SenderID    string `json:"senderId"`
		RecipientID string `json:"recipientId"`
		TopicID     string `json:"topicId,omitempty"`
		Text        string `json:"text"`
	}

	GetMessagesMsg struct {
		ConversationID string    `json:"conversationId"`
		CallerID       string    `json:"callerId"`
		After          time.Time `json:"after"`
	}
)

// Wire events pushed to live websocket subscribers.
type (
	MessageEvent struct {
		Type    string          `json:"type"`
		Message *models.Message `json:"message"`
	}

	ConversationEvent struct {
		Type         string               `json:"type"`
		Conversation *models.Conversation `json:"conversation"`
	}
)

const (
	EventTypeMessageNew          = "message.new"
	EventTypeConversationUpdated = "conversation.updated"
)

// MessageActor orchestrates the message send path. The log append and the
// summary merge are two independent writes issued sequentially, not a
// transaction: a brief window exists where the message is visible in the log
// before the summary reflects it. Read-state computation never scans the log,
// so the window only delays the unread flag, never corrupts it.
type MessageActor struct {
	conversations ConversationStore
	messages      MessageStore
	hub           Pusher
	notifier      *actor.PID
	metrics       *utils.MetricsCollector
	timeout       time.Duration
}

func NewMessageActor(conversations ConversationStore, messages MessageStore, hub Pusher, notifier *actor.PID, metrics *utils.MetricsCollector) actor.Actor {
	return &MessageActor{
		conversations: conversations,
		messages:      messages,
		hub:           hub,
		notifier:      notifier,
		metrics:       metrics,
		timeout:       5 * time.Second,
	}
}

func (a *MessageActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *SendMessageMsg:
		a.handleSend(context, msg)
	case *GetMessagesMsg:
		a.handleGetMessages(context, msg)
	}
}

func (a *MessageActor) handleSend(actorCtx actor.Context, msg *SendMessageMsg) {
	startTime := time.Now()

	// Empty text is rejected before any write happens.
	if strings.TrimSpace(msg.Text) == "" {
		actorCtx.Respond(utils.NewValidationError("message text must not be empty"))
		return
	}
	if msg.SenderID == "" || msg.RecipientID == "" || msg.SenderID == msg.RecipientID {
		actorCtx.Respond(utils.NewValidationError("message needs two distinct participants"))
		return
	}

	conversationID := models.DeriveConversationID(msg.SenderID, msg.RecipientID)

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	conversation, err := a.conversations.EnsureConversation(ctx, conversationID,
		[]string{msg.SenderID, msg.RecipientID}, msg.TopicID)
	if err != nil {
		actorCtx.Respond(utils.NewTransientIOError("ensure conversation", err))
		return
	}
	if !conversation.HasParticipant(msg.SenderID) {
		actorCtx.Respond(utils.NewAccessDeniedError(msg.SenderID, conversationID))
		return
	}

	message, err := a.messages.AppendMessage(ctx, conversationID, msg.SenderID, msg.Text)
	if err != nil {
		actorCtx.Respond(utils.NewTransientIOError("append message", err))
		return
	}

	if err := a.conversations.RecordMessageSent(ctx, conversationID, msg.SenderID, message.Text, message.CreatedAt); err != nil {
		// The message is already durable in the log; the summary will catch
		// up on the next send. Surface the failure anyway so the client can
		// resync.
		actorCtx.Respond(utils.NewTransientIOError("update conversation summary", err))
		return
	}

	// Notification decision is fire-and-forget relative to the send path.
	actorCtx.Send(a.notifier, &NotifyDirectMessageMsg{
		ConversationID: conversationID,
		SenderID:       msg.SenderID,
		RecipientID:    msg.RecipientID,
		Text:           message.Text,
		SentAt:         message.CreatedAt,
	})

	a.pushEvents(ctx, conversationID, message)

	a.metrics.AddOperationLatency("send_message", time.Since(startTime))
	actorCtx.Respond(message)
}

// pushEvents fans the confirmed message and the refreshed summary out to both
// participants' live connections, sender included: the sender's client uses
// the confirmed event to reconcile its optimistic local echo.
func (a *MessageActor) pushEvents(ctx context.Context, conversationID string, message *models.Message) {
	conversation, err := a.conversations.GetConversation(ctx, conversationID)
	if err != nil || conversation == nil {
		slog.Warn("could not load summary for push", "conversation", conversationID, "error", err)
		return
	}

	messagePayload, err := json.Marshal(&MessageEvent{Type: EventTypeMessageNew, Message: message})
	if err != nil {
		return
	}
	summaryPayload, err := json.Marshal(&ConversationEvent{Type: EventTypeConversationUpdated, Conversation: conversation})
	if err != nil {
		return
	}

	for _, participant := range conversation.ParticipantIDs {
		a.hub.PushToUser(participant, messagePayload)
		a.hub.PushToUser(participant, summaryPayload)
	}
}

func (a *MessageActor) handleGetMessages(actorCtx actor.Context, msg *GetMessagesMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	conversation, err := a.conversations.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		actorCtx.Respond(utils.NewTransientIOError("get messages", err))
		return
	}
	if conversation == nil {
		actorCtx.Respond(utils.NewAppError(utils.ErrNotFound, "conversation not found: "+msg.ConversationID, nil))
		return
	}
	if !conversation.HasParticipant(msg.CallerID) {
		actorCtx.Respond(utils.NewAccessDeniedError(msg.CallerID, msg.ConversationID))
		return
	}

	messages, err := a.messages.ListMessagesSince(ctx, msg.ConversationID, msg.After)
	if err != nil {
		actorCtx.Respond(utils.NewTransientIOError("list messages", err))
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	actorCtx.Respond(messages)
}
