package livesync

import (
	"context"
	"sort"
	"sync"

	"idea-pond/internal/models"
)

// InboxView is the live sync client for an open inbox view: one subscription
// covering every conversation the user participates in, with unread counts
// recomputed from summary records as they arrive.
type InboxView struct {
	userID  string
	streams Streams

	mu            sync.Mutex
	conversations map[string]*models.Conversation

	events chan Event
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewInboxView(userID string, streams Streams) *InboxView {
	return &InboxView{
		userID:        userID,
		streams:       streams,
		conversations: make(map[string]*models.Conversation),
		events:        make(chan Event, 16),
	}
}

func (v *InboxView) Events() <-chan Event {
	return v.events
}

// Open seeds the view from the given initial listing and then follows the
// participant-wide change stream.
func (v *InboxView) Open(ctx context.Context, initial []*models.Conversation) error {
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel

	ch, err := v.streams.WatchConversationsFor(ctx, v.userID)
	if err != nil {
		cancel()
		return err
	}

	v.mu.Lock()
	for _, c := range initial {
		v.conversations[c.ID] = c
	}
	v.mu.Unlock()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		for {
			select {
			case summary, ok := <-ch:
				if !ok {
					return
				}
				v.mu.Lock()
				v.conversations[summary.ID] = summary
				v.mu.Unlock()
				v.signal(Event{Kind: EventSummary})
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Close unsubscribes the inbox stream immediately.
func (v *InboxView) Close() {
	if v.cancel != nil {
		v.cancel()
	}
	v.wg.Wait()
}

// Snapshot returns the conversations ordered by lastMessageAt descending.
func (v *InboxView) Snapshot() []*models.Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()

	list := make([]*models.Conversation, 0, len(v.conversations))
	for _, c := range v.conversations {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].LastMessageAt.After(list[j].LastMessageAt)
	})
	return list
}

// UnreadCount is the number of conversations holding unread content for the
// viewer, computed from summary records alone.
func (v *InboxView) UnreadCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	count := 0
	for _, c := range v.conversations {
		if c.IsUnread(v.userID) {
			count++
		}
	}
	return count
}

func (v *InboxView) signal(event Event) {
	select {
	case v.events <- event:
	default:
	}
}
