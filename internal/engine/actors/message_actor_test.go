package actors

import (
	"context"
	"testing"
	"time"

	"idea-pond/internal/models"
	"idea-pond/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// notifyCatcher records fire-and-forget notification messages.
type notifyCatcher struct {
	received chan *NotifyDirectMessageMsg
}

func (c *notifyCatcher) Receive(context actor.Context) {
	if msg, ok := context.Message().(*NotifyDirectMessageMsg); ok {
		c.received <- msg
	}
}

type sendFixture struct {
	system        *actor.ActorSystem
	pid           *actor.PID
	conversations *memConversationStore
	messages      *memMessageStore
	hub           *memPusher
	notified      chan *NotifyDirectMessageMsg
}

func newSendFixture(t *testing.T) *sendFixture {
	t.Helper()

	system := actor.NewActorSystem()
	conversations := newMemConversationStore()
	messages := newMemMessageStore()
	hub := newMemPusher()
	notified := make(chan *NotifyDirectMessageMsg, 8)

	notifierPID := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return &notifyCatcher{received: notified}
	}))

	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewMessageActor(conversations, messages, hub, notifierPID, utils.NewMetricsCollector())
	}))

	return &sendFixture{
		system:        system,
		pid:           pid,
		conversations: conversations,
		messages:      messages,
		hub:           hub,
		notified:      notified,
	}
}

func (f *sendFixture) send(t *testing.T, senderID, recipientID, text string) any {
	t.Helper()
	future := f.system.Root.RequestFuture(f.pid, &SendMessageMsg{
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
	}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	return result
}

func TestSendMessage(t *testing.T) {
	f := newSendFixture(t)

	result := f.send(t, "u1", "u2", "hello")
	message, ok := result.(*models.Message)
	require.True(t, ok, "expected message, got %T: %v", result, result)

	assert.Equal(t, "u1_u2", message.ConversationID)
	assert.Equal(t, "u1", message.SenderID)
	assert.Equal(t, "hello", message.Text)
	assert.False(t, message.CreatedAt.IsZero())

	// The summary record reflects the send and the sender is caught up
	c, err := f.conversations.GetConversation(context.Background(), "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, "hello", c.LastMessageText)
	assert.Equal(t, "u1", c.LastMessageSenderID)
	assert.Equal(t, message.CreatedAt, c.LastMessageAt)
	assert.Equal(t, message.CreatedAt.Add(models.ReadCursorSkew), c.LastReadAt["u1"])

	assert.False(t, c.IsUnread("u1"))
	assert.True(t, c.IsUnread("u2"))
}

func TestSendMessageValidation(t *testing.T) {
	f := newSendFixture(t)

	for _, text := range []string{"", "   "} {
		result := f.send(t, "u1", "u2", text)
		appErr, ok := result.(*utils.AppError)
		require.True(t, ok)
		assert.Equal(t, utils.ErrValidation, appErr.Code)
	}

	// Nothing was written
	msgs, err := f.messages.ListMessagesSince(context.Background(), "u1_u2", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessageSelfRejected(t *testing.T) {
	f := newSendFixture(t)

	result := f.send(t, "u1", "u1", "hi me")
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrValidation, appErr.Code)
}

func TestSendMessageNotifiesRecipient(t *testing.T) {
	f := newSendFixture(t)

	f.send(t, "u1", "u2", "hello")

	select {
	case notify := <-f.notified:
		assert.Equal(t, "u1_u2", notify.ConversationID)
		assert.Equal(t, "u1", notify.SenderID)
		assert.Equal(t, "u2", notify.RecipientID)
		assert.Equal(t, "hello", notify.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification message")
	}
}

func TestSendMessagePushesToBothParticipants(t *testing.T) {
	f := newSendFixture(t)

	f.send(t, "u1", "u2", "hello")

	// message.new + conversation.updated for each participant, sender
	// included: the sender's client reconciles its optimistic echo from the
	// confirmed event.
	assert.Equal(t, 2, f.hub.countFor("u1"))
	assert.Equal(t, 2, f.hub.countFor("u2"))
}

func TestMessageOrderingWithinConversation(t *testing.T) {
	f := newSendFixture(t)

	for _, text := range []string{"one", "two", "three"} {
		result := f.send(t, "u1", "u2", text)
		_, ok := result.(*models.Message)
		require.True(t, ok)
	}

	msgs, err := f.messages.ListMessagesSince(context.Background(), "u1_u2", time.Time{})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt),
			"createdAt must be strictly increasing within a conversation")
	}
}

// Full exchange: u1 sends, u2 is unread until marking read through the
// skewed cursor, after which both sides are caught up.
func TestSendAndMarkReadScenario(t *testing.T) {
	f := newSendFixture(t)

	result := f.send(t, "u1", "u2", "hello")
	message := result.(*models.Message)

	c, err := f.conversations.GetConversation(context.Background(), "u1_u2")
	require.NoError(t, err)
	require.True(t, c.IsUnread("u2"))

	err = f.conversations.MarkRead(context.Background(), "u1_u2", "u2", c.ReadThrough())
	require.NoError(t, err)

	c, err = f.conversations.GetConversation(context.Background(), "u1_u2")
	require.NoError(t, err)
	assert.False(t, c.IsUnread("u2"))
	assert.Equal(t, message.CreatedAt.Add(models.ReadCursorSkew), c.LastReadAt["u2"])
}

func TestGetMessagesAccessDenied(t *testing.T) {
	f := newSendFixture(t)

	f.send(t, "u1", "u2", "hello")

	future := f.system.Root.RequestFuture(f.pid, &GetMessagesMsg{ConversationID: "u1_u2", CallerID: "u3"}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)

	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrAccessDenied, appErr.Code)
}
