package actors

import (
	"context"
	"time"

	"idea-pond/internal/models"
	"idea-pond/internal/profiles"
	"idea-pond/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Message types for InboxActor
type (
	ListInboxMsg struct {
		UserID string `json:"userId"`
	}

	UnreadCountMsg struct {
		UserID string `json:"userId"`
	}
)

// InboxEntry is one row of a user's inbox: the conversation summary joined
// with the peer's display identity and the derived unread flag.
type InboxEntry struct {
	Conversation *models.Conversation `json:"conversation"`
	Peer         *models.Profile      `json:"peer"`
	Unread       bool                 `json:"unread"`
}

// InboxActor serves the inbox view: all of a user's conversations ordered by
// recency, with unread computed from each summary record alone. No message
// log scan is ever needed.
type InboxActor struct {
	store    ConversationStore
	resolver *profiles.Resolver
	metrics  *utils.MetricsCollector
	timeout  time.Duration
}

func NewInboxActor(store ConversationStore, resolver *profiles.Resolver, metrics *utils.MetricsCollector) actor.Actor {
	return &InboxActor{
		store:    store,
		resolver: resolver,
		metrics:  metrics,
		timeout:  5 * time.Second,
	}
}

func (a *InboxActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *ListInboxMsg:
		a.handleList(context, msg)
	case *UnreadCountMsg:
		a.handleUnreadCount(context, msg)
	}
}

func (a *InboxActor) handleList(actorCtx actor.Context, msg *ListInboxMsg) {
	startTime := time.Now()

	entries, err := a.listEntries(msg.UserID)
	if err != nil {
		actorCtx.Respond(err)
		return
	}

	a.metrics.AddOperationLatency("list_inbox", time.Since(startTime))
	actorCtx.Respond(entries)
}

func (a *InboxActor) handleUnreadCount(actorCtx actor.Context, msg *UnreadCountMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	conversations, err := a.store.ListConversationsFor(ctx, msg.UserID)
	if err != nil {
		actorCtx.Respond(utils.NewTransientIOError("unread count", err))
		return
	}

	count := 0
	for _, c := range conversations {
		if c.IsUnread(msg.UserID) {
			count++
		}
	}

	actorCtx.Respond(count)
}

func (a *InboxActor) listEntries(userID string) ([]*InboxEntry, *utils.AppError) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	conversations, err := a.store.ListConversationsFor(ctx, userID)
	if err != nil {
		return nil, utils.NewTransientIOError("list inbox", err)
	}

	entries := make([]*InboxEntry, 0, len(conversations))
	for _, c := range conversations {
		// Resolve never fails; a broken profile lookup yields a placeholder
		// instead of taking the whole inbox down.
		peer := a.resolver.Resolve(ctx, c.PeerOf(userID))
		entries = append(entries, &InboxEntry{
			Conversation: c,
			Peer:         peer,
			Unread:       c.IsUnread(userID),
		})
	}

	return entries, nil
}
