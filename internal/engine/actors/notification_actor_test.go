package actors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"idea-pond/internal/models"
	"idea-pond/internal/notifications"
	"idea-pond/internal/profiles"

	"github.com/alicebob/miniredis/v2"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProfileStore struct {
	profiles map[string]*models.Profile
}

func (s *staticProfileStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	return s.profiles[userID], nil
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) record(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *outcomeRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

type notifyFixture struct {
	system     *actor.ActorSystem
	pid        *actor.PID
	dispatched chan notifications.DispatchRequest
	outcomes   *outcomeRecorder
}

func newNotifyFixture(t *testing.T) *notifyFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	dispatched := make(chan notifications.DispatchRequest, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req notifications.DispatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		dispatched <- req
		w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(srv.Close)

	throttle := notifications.NewThrottle(notifications.NewRedisDebounceStore(rdb), 15*time.Minute)
	dispatcher := notifications.NewDispatcher(srv.URL, 5*time.Second)
	resolver := profiles.NewResolver(&staticProfileStore{profiles: map[string]*models.Profile{
		"u1": {ID: "u1", Username: "alice", DisplayName: "Alice"},
	}})

	outcomes := &outcomeRecorder{}
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewNotificationActor(throttle, dispatcher, resolver, outcomes.record)
	}))

	return &notifyFixture{system: system, pid: pid, dispatched: dispatched, outcomes: outcomes}
}

func (f *notifyFixture) notifyDirect(senderID, recipientID string, sentAt time.Time) {
	f.system.Root.Send(f.pid, &NotifyDirectMessageMsg{
		ConversationID: models.DeriveConversationID(senderID, recipientID),
		SenderID:       senderID,
		RecipientID:    recipientID,
		Text:           "hello",
		SentAt:         sentAt,
	})
}

func TestNotificationDispatched(t *testing.T) {
	f := newNotifyFixture(t)

	f.notifyDirect("u1", "u2", time.Now())

	select {
	case req := <-f.dispatched:
		assert.Equal(t, "u2", req.RecipientID)
		assert.Equal(t, "Alice", req.SenderName)
		assert.Equal(t, "hello", req.MessageText)
		assert.Equal(t, "u1_u2", req.ConversationID)
		assert.Equal(t, models.EventDirectMessage, req.NotificationType)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a dispatch")
	}

	assert.Eventually(t, func() bool {
		outcomes := f.outcomes.snapshot()
		return len(outcomes) == 1 && outcomes[0] == "dispatched"
	}, time.Second, 5*time.Millisecond)
}

func TestNotificationThrottledWithinWindow(t *testing.T) {
	f := newNotifyFixture(t)

	now := time.Now().UTC()
	f.notifyDirect("u1", "u2", now)
	f.notifyDirect("u1", "u2", now.Add(time.Minute))

	// Only the first event inside the window fires
	select {
	case <-f.dispatched:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the first dispatch")
	}

	assert.Eventually(t, func() bool {
		return len(f.outcomes.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"dispatched", "skipped"}, f.outcomes.snapshot())

	select {
	case req := <-f.dispatched:
		t.Fatalf("unexpected second dispatch: %+v", req)
	default:
	}
}

func TestNotificationFiresAgainAfterWindow(t *testing.T) {
	f := newNotifyFixture(t)

	now := time.Now().UTC()
	f.notifyDirect("u1", "u2", now)
	f.notifyDirect("u1", "u2", now.Add(16*time.Minute))

	for i := 0; i < 2; i++ {
		select {
		case <-f.dispatched:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected dispatch %d", i+1)
		}
	}
	assert.Eventually(t, func() bool {
		return len(f.outcomes.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"dispatched", "dispatched"}, f.outcomes.snapshot())
}

func TestNotificationNeverSelf(t *testing.T) {
	f := newNotifyFixture(t)

	f.notifyDirect("u1", "u1", time.Now())

	assert.Eventually(t, func() bool {
		return len(f.outcomes.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"skipped"}, f.outcomes.snapshot())

	select {
	case <-f.dispatched:
		t.Fatal("self-notification must never dispatch")
	default:
	}
}

func TestCommentNotificationKeys(t *testing.T) {
	f := newNotifyFixture(t)

	// A top-level comment throttles per idea, a reply per thread: the two
	// keys are independent even for the same recipient.
	now := time.Now().UTC()
	f.system.Root.Send(f.pid, &NotifyCommentMsg{
		IdeaID:      "idea-42",
		SenderID:    "u1",
		RecipientID: "u2",
		Text:        "nice idea",
		PostedAt:    now,
	})
	f.system.Root.Send(f.pid, &NotifyCommentMsg{
		IdeaID:      "idea-42",
		ThreadID:    "thread-7",
		SenderID:    "u1",
		RecipientID: "u2",
		Text:        "replying",
		PostedAt:    now.Add(time.Second),
	})

	types := make(map[string]int)
	for i := 0; i < 2; i++ {
		select {
		case req := <-f.dispatched:
			types[req.NotificationType]++
		case <-time.After(2 * time.Second):
			t.Fatalf("expected dispatch %d", i+1)
		}
	}
	assert.Equal(t, 1, types[models.EventNewComment])
	assert.Equal(t, 1, types[models.EventCommentReply])
}
