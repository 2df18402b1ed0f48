package livesync

import (
	"context"
	"sort"
	"sync"
	"time"

	"idea-pond/internal/models"

	"github.com/google/uuid"
)

// Streams is the push-subscription surface of the stores. Implemented by
// database.MongoDB; tests feed channels directly.
type Streams interface {
	StreamMessagesSince(ctx context.Context, conversationID string, after time.Time) (<-chan *models.Message, error)
	WatchConversation(ctx context.Context, conversationID string) (<-chan *models.Conversation, error)
	WatchConversationsFor(ctx context.Context, userID string) (<-chan *models.Conversation, error)
}

// Sender performs the network round trip for an outgoing message and returns
// the confirmed record.
type Sender interface {
	SendMessage(ctx context.Context, senderID, recipientID, text string) (*models.Message, error)
}

// ReadMarker advances the viewer's read cursor on the Conversation Directory.
type ReadMarker interface {
	MarkRead(ctx context.Context, conversationID, participantID string, through time.Time) error
}

// Event kinds surfaced to the presentation layer.
const (
	EventMessages   = "messages"    // the merged message list changed
	EventSummary    = "summary"     // the conversation summary record changed
	EventSendFailed = "send_failed" // an optimistic send failed; draft restored
)

// Event is one change notification for the presentation layer.
type Event struct {
	Kind  string
	Err   error  // set for EventSendFailed
	Draft string // restored draft text for EventSendFailed
}

// Entry is one row of the merged local message list. Pending entries are
// optimistic local echoes awaiting their confirmed stream event.
type Entry struct {
	Message *models.Message
	Pending bool
	localID string
}

// ConversationView is the live sync client for one open conversation view.
// It subscribes to the message stream and the summary record, reconciles
// optimistic local appends against confirmed events, and exposes the merged
// view. Each view runs its own subscription loops; there is no process-wide
// shared state.
type ConversationView struct {
	userID         string
	peerID         string
	conversationID string

	streams Streams
	sender  Sender
	marker  ReadMarker

	mu      sync.Mutex
	entries []*Entry
	summary *models.Conversation

	events chan Event
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConversationView(userID, peerID string, streams Streams, sender Sender, marker ReadMarker) *ConversationView {
	return &ConversationView{
		userID:         userID,
		peerID:         peerID,
		conversationID: models.DeriveConversationID(userID, peerID),
		streams:        streams,
		sender:         sender,
		marker:         marker,
		events:         make(chan Event, 16),
	}
}

// ConversationID returns the derived id this view is bound to.
func (v *ConversationView) ConversationID() string {
	return v.conversationID
}

// Events is the change feed for the presentation layer. Signals are dropped
// when the consumer lags; the snapshot is always complete.
func (v *ConversationView) Events() <-chan Event {
	return v.events
}

// Open starts the two subscription loops. Returns once both streams are
// established; events flow until Close.
func (v *ConversationView) Open(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel

	messageCh, err := v.streams.StreamMessagesSince(ctx, v.conversationID, time.Time{})
	if err != nil {
		cancel()
		return err
	}
	summaryCh, err := v.streams.WatchConversation(ctx, v.conversationID)
	if err != nil {
		cancel()
		return err
	}

	// Both pumps watch ctx themselves so Close never depends on the producer
	// closing its channel.
	v.wg.Add(2)
	go func() {
		defer v.wg.Done()
		for {
			select {
			case msg, ok := <-messageCh:
				if !ok {
					return
				}
				v.applyConfirmed(msg)
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		defer v.wg.Done()
		for {
			select {
			case summary, ok := <-summaryCh:
				if !ok {
					return
				}
				v.applySummary(summary)
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Close unsubscribes the view's streams immediately. In-flight sends are not
// cancelled; their callbacks find the view closed and are discarded.
func (v *ConversationView) Close() {
	if v.cancel != nil {
		v.cancel()
	}
	v.wg.Wait()
}

// Snapshot returns a copy of the merged message list and the latest summary.
func (v *ConversationView) Snapshot() ([]Entry, *models.Conversation) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries := make([]Entry, len(v.entries))
	for i, e := range v.entries {
		entries[i] = *e
	}
	return entries, v.summary
}

// Send optimistically appends the outgoing message to the local list and
// clears the caller's input state before the network round trip completes.
// On failure the local echo is removed and the draft restored via an
// EventSendFailed. On success the entry stays pending until the confirmed
// stream event replaces it; the view itself never rolls a successful echo
// back.
func (v *ConversationView) Send(ctx context.Context, text string) {
	localID := uuid.New().String()

	v.mu.Lock()
	v.entries = append(v.entries, &Entry{
		Message: &models.Message{
			ID:             localID,
			ConversationID: v.conversationID,
			SenderID:       v.userID,
			Text:           text,
			CreatedAt:      time.Now(),
		},
		Pending: true,
		localID: localID,
	})
	v.mu.Unlock()
	v.signal(Event{Kind: EventMessages})

	go func() {
		if _, err := v.sender.SendMessage(ctx, v.userID, v.peerID, text); err != nil {
			v.removePending(localID)
			v.signal(Event{Kind: EventSendFailed, Err: err, Draft: text})
		}
	}()
}

// MarkReadIfCaughtUp advances the viewer's read cursor when the view has
// rendered everything up to the summary's lastMessageAt. The cursor is
// stamped past the message timestamp, not at now().
func (v *ConversationView) MarkReadIfCaughtUp(ctx context.Context) error {
	v.mu.Lock()
	summary := v.summary
	v.mu.Unlock()

	if summary == nil || !summary.IsUnread(v.userID) {
		return nil
	}
	return v.marker.MarkRead(ctx, v.conversationID, v.userID, summary.ReadThrough())
}

// applyConfirmed reconciles a confirmed stream event into the local list:
// it replaces the oldest matching pending echo, or appends when the message
// originated elsewhere. Confirmed events are authoritative; duplicates are
// dropped.
func (v *ConversationView) applyConfirmed(msg *models.Message) {
	v.mu.Lock()

	for _, e := range v.entries {
		if !e.Pending && e.Message.ID == msg.ID {
			v.mu.Unlock()
			return
		}
	}

	replaced := false
	for _, e := range v.entries {
		if e.Pending && e.Message.SenderID == msg.SenderID && e.Message.Text == msg.Text {
			e.Message = msg
			e.Pending = false
			e.localID = ""
			replaced = true
			break
		}
	}
	if !replaced {
		v.entries = append(v.entries, &Entry{Message: msg})
	}

	v.sortByCreatedAt()
	v.mu.Unlock()
	v.signal(Event{Kind: EventMessages})
}

func (v *ConversationView) applySummary(summary *models.Conversation) {
	v.mu.Lock()
	v.summary = summary
	v.mu.Unlock()
	v.signal(Event{Kind: EventSummary})
}

func (v *ConversationView) removePending(localID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, e := range v.entries {
		if e.Pending && e.localID == localID {
			v.entries = append(v.entries[:i], v.entries[i+1:]...)
			return
		}
	}
}

// sortByCreatedAt keeps the list ordered; the stable sort leaves pending
// echoes after confirmed messages with equal instants. Called with mu held.
func (v *ConversationView) sortByCreatedAt() {
	sort.SliceStable(v.entries, func(i, j int) bool {
		return v.entries[i].Message.CreatedAt.Before(v.entries[j].Message.CreatedAt)
	})
}

func (v *ConversationView) signal(event Event) {
	select {
	case v.events <- event:
	default:
	}
}
