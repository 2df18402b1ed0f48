package engine

import (
	"idea-pond/internal/engine/actors"
	"idea-pond/internal/notifications"
	"idea-pond/internal/profiles"
	"idea-pond/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Stores groups the persistence dependencies the engine's actors need.
type Stores struct {
	Conversations actors.ConversationStore
	Messages      actors.MessageStore
}

// Engine coordinates communication between the messaging actors
type Engine struct {
	conversationActor *actor.PID
	messageActor      *actor.PID
	inboxActor        *actor.PID
	notificationActor *actor.PID
}

// NewEngine spawns the actor hierarchy. The notification actor is spawned
// first so the message actor can hold its PID for fire-and-forget sends.
func NewEngine(
	system *actor.ActorSystem,
	stores Stores,
	hub actors.Pusher,
	resolver *profiles.Resolver,
	throttle *notifications.Throttle,
	dispatcher *notifications.Dispatcher,
	metrics *utils.MetricsCollector,
) *Engine {
	notificationPID := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewNotificationActor(throttle, dispatcher, resolver, metrics.RecordNotificationOutcome)
	}))

	conversationPID := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewConversationActor(stores.Conversations, hub, metrics)
	}))

	messagePID := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewMessageActor(stores.Conversations, stores.Messages, hub, notificationPID, metrics)
	}))

	inboxPID := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewInboxActor(stores.Conversations, resolver, metrics)
	}))

	return &Engine{
		conversationActor: conversationPID,
		messageActor:      messagePID,
		inboxActor:        inboxPID,
		notificationActor: notificationPID,
	}
}

func (e *Engine) GetConversationActor() *actor.PID {
	return e.conversationActor
}

func (e *Engine) GetMessageActor() *actor.PID {
	return e.messageActor
}

func (e *Engine) GetInboxActor() *actor.PID {
	return e.inboxActor
}

func (e *Engine) GetNotificationActor() *actor.PID {
	return e.notificationActor
}
