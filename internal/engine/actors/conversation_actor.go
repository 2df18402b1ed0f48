package actors

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"idea-pond/internal/models"
	"idea-pond/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Message types for ConversationActor
type (
	// EnsureConversationMsg opens (or lazily creates) the summary record for
	// the caller and peer. Safe to send every time a conversation view opens.
	EnsureConversationMsg struct {
		CallerID string `json:"callerId"`
		PeerID   string `json:"peerId"`
		TopicID  string `json:"topicId,omitempty"`
	}

	GetConversationMsg struct {
		ConversationID string `json:"conversationId"`
		CallerID       string `json:"callerId"`
	}

	// MarkReadMsg advances the caller's read cursor to max(current, Through).
	MarkReadMsg struct {
		ConversationID string    `json:"conversationId"`
		CallerID       string    `json:"callerId"`
		Through        time.Time `json:"through"`
	}
)

// ConversationActor manages Conversation Directory operations
type ConversationActor struct {
	store   ConversationStore
	hub     Pusher
	metrics *utils.MetricsCollector
	timeout time.Duration
}

func NewConversationActor(store ConversationStore, hub Pusher, metrics *utils.MetricsCollector) actor.Actor {
	return &ConversationActor{
		store:   store,
		hub:     hub,
		metrics: metrics,
		timeout: 5 * time.Second,
	}
}

func (a *ConversationActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *EnsureConversationMsg:
		a.handleEnsure(context, msg)
	case *GetConversationMsg:
		a.handleGet(context, msg)
	case *MarkReadMsg:
		a.handleMarkRead(context, msg)
	}
}

func (a *ConversationActor) handleEnsure(actorCtx actor.Context, msg *EnsureConversationMsg) {
	startTime := time.Now()

	if msg.CallerID == "" || msg.PeerID == "" || msg.CallerID == msg.PeerID {
		actorCtx.Respond(utils.NewValidationError("conversation needs two distinct participants"))
		return
	}

	conversationID := models.DeriveConversationID(msg.CallerID, msg.PeerID)
	participants := []string{msg.CallerID, msg.PeerID}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	conversation, err := a.store.EnsureConversation(ctx, conversationID, participants, msg.TopicID)
	if err != nil {
		actorCtx.Respond(utils.NewTransientIOError("ensure conversation", err))
		return
	}

	// The record may predate this call with different participants; the
	// derived id makes that impossible for well-formed data, but a caller
	// poking at someone else's id must still be turned away.
	if !conversation.HasParticipant(msg.CallerID) {
		actorCtx.Respond(utils.NewAccessDeniedError(msg.CallerID, conversationID))
		return
	}

	a.metrics.AddOperationLatency("ensure_conversation", time.Since(startTime))
	actorCtx.Respond(conversation)
}

func (a *ConversationActor) handleGet(actorCtx actor.Context, msg *GetConversationMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	conversation, err := a.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		actorCtx.Respond(utils.NewTransientIOError("get conversation", err))
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

	actorCtx.Respond(conversation)
}

func (a *ConversationActor) handleMarkRead(actorCtx actor.Context, msg *MarkReadMsg) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	conversation, err := a.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		actorCtx.Respond(utils.NewTransientIOError("mark read", err))
		return
	}
	if conversation == nil {
		actorCtx.Respond(utils.NewAppError(utils.ErrNotFound, "conversation not found: "+msg.ConversationID, nil))
		return
	}

	// Only a participant may advance their own cursor.
	if !conversation.HasParticipant(msg.CallerID) {
		actorCtx.Respond(utils.NewAccessDeniedError(msg.CallerID, msg.ConversationID))
		return
	}

	if err := a.store.MarkRead(ctx, msg.ConversationID, msg.CallerID, msg.Through); err != nil {
		actorCtx.Respond(utils.NewTransientIOError("mark read", err))
		return
	}

	// Both participants see the refreshed summary: the reader's other devices
	// clear their unread badge and the peer sees the read state move.
	a.pushSummary(ctx, msg.ConversationID)

	a.metrics.AddOperationLatency("mark_read", time.Since(startTime))
	actorCtx.Respond(true)
}

func (a *ConversationActor) pushSummary(ctx context.Context, conversationID string) {
	conversation, err := a.store.GetConversation(ctx, conversationID)
	if err != nil || conversation == nil {
		slog.Warn("could not load summary for push", "conversation", conversationID, "error", err)
		return
	}

	payload, err := json.Marshal(&ConversationEvent{Type: EventTypeConversationUpdated, Conversation: conversation})
	if err != nil {
		return
	}
	for _, participant := range conversation.ParticipantIDs {
		a.hub.PushToUser(participant, payload)
	}
}
