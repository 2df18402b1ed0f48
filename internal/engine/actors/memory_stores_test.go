package actors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"idea-pond/internal/models"

	"github.com/google/uuid"
)

// In-memory store fakes mirroring the merge semantics of the MongoDB
// repositories: $setOnInsert on ensure, $max on cursors and lastMessageAt.

type memConversationStore struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation
	failEnsure    error
}

func newMemConversationStore() *memConversationStore {
	return &memConversationStore{conversations: make(map[string]*models.Conversation)}
}

func (s *memConversationStore) EnsureConversation(_ context.Context, id string, participantIDs []string, topicID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failEnsure != nil {
		return nil, s.failEnsure
	}

	if existing, ok := s.conversations[id]; ok {
		return copyConversation(existing), nil
	}

	c := &models.Conversation{
		ID:             id,
		ParticipantIDs: append([]string(nil), participantIDs...),
		TopicID:        topicID,
		CreatedAt:      time.Now().UTC(),
		LastReadAt:     make(map[string]time.Time),
	}
	s.conversations[id] = c
	return copyConversation(c), nil
}

func (s *memConversationStore) RecordMessageSent(_ context.Context, conversationID, senderID, text string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("conversation not found: %s", conversationID)
	}

	c.LastMessageText = text
	c.LastMessageSenderID = senderID
	if sentAt.After(c.LastMessageAt) {
		c.LastMessageAt = sentAt
	}
	cursor := sentAt.Add(models.ReadCursorSkew)
	if cursor.After(c.LastReadAt[senderID]) {
		c.LastReadAt[senderID] = cursor
	}
	return nil
}

func (s *memConversationStore) MarkRead(_ context.Context, conversationID, participantID string, through time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("conversation not found: %s", conversationID)
	}
	if through.After(c.LastReadAt[participantID]) {
		c.LastReadAt[participantID] = through
	}
	return nil
}

func (s *memConversationStore) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	return copyConversation(c), nil
}

func (s *memConversationStore) ListConversationsFor(_ context.Context, userID string) ([]*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*models.Conversation
	for _, c := range s.conversations {
		if c.HasParticipant(userID) {
			list = append(list, copyConversation(c))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].LastMessageAt.After(list[j].LastMessageAt)
	})
	return list, nil
}

func copyConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	cp.LastReadAt = make(map[string]time.Time, len(c.LastReadAt))
	for k, v := range c.LastReadAt {
		cp.LastReadAt[k] = v
	}
	return &cp
}

type memMessageStore struct {
	mu       sync.Mutex
	messages map[string][]*models.Message
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{messages: make(map[string][]*models.Message)}
}

func (s *memMessageStore) AppendMessage(_ context.Context, conversationID, senderID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("message text must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := time.Now().UTC()
	if log := s.messages[conversationID]; len(log) > 0 {
		if last := log[len(log)-1].CreatedAt; !createdAt.After(last) {
			createdAt = last.Add(time.Millisecond)
		}
	}

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      createdAt,
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return msg, nil
}

func (s *memMessageStore) ListMessagesSince(_ context.Context, conversationID string, after time.Time) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Message
	for _, m := range s.messages[conversationID] {
		if m.CreatedAt.After(after) {
			out = append(out, m)
		}
	}
	return out, nil
}

// memPusher records payloads pushed per user.
type memPusher struct {
	mu       sync.Mutex
	payloads map[string][][]byte
}

func newMemPusher() *memPusher {
	return &memPusher{payloads: make(map[string][][]byte)}
}

func (p *memPusher) PushToUser(userID string, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads[userID] = append(p.payloads[userID], payload)
}

func (p *memPusher) countFor(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads[userID])
}
