package database

import (
	"context"
	"fmt"
	"time"

	"idea-pond/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationDocument represents the MongoDB document structure for
// conversation summary records
type ConversationDocument struct {
	ID                  string               `bson:"_id"`
	ParticipantIDs      []string             `bson:"participantIds"`
	TopicID             string               `bson:"topicId,omitempty"`
	CreatedAt           time.Time            `bson:"createdAt"`
	LastMessageText     string               `bson:"lastMessageText,omitempty"`
	LastMessageAt       time.Time            `bson:"lastMessageAt,omitempty"`
	LastMessageSenderID string               `bson:"lastMessageSenderId,omitempty"`
	LastReadAt          map[string]time.Time `bson:"lastReadAt,omitempty"`
}

func (doc *ConversationDocument) toModel() *models.Conversation {
	return &models.Conversation{
		ID:                  doc.ID,
		ParticipantIDs:      doc.ParticipantIDs,
		TopicID:             doc.TopicID,
		CreatedAt:           doc.CreatedAt,
		LastMessageText:     doc.LastMessageText,
		LastMessageAt:       doc.LastMessageAt,
		LastMessageSenderID: doc.LastMessageSenderID,
		LastReadAt:          doc.LastReadAt,
	}
}

// EnsureConversation lazily creates the summary record on first access.
// Upsert-merge with $setOnInsert: repeated calls never overwrite createdAt,
// participantIds or topicId, so it is safe to call every time a conversation
// view is opened.
func (m *MongoDB) EnsureConversation(ctx context.Context, id string, participantIDs []string, topicID string) (*models.Conversation, error) {
	onInsert := bson.M{
		"participantIds": participantIDs,
		"createdAt":      time.Now().UTC(),
	}
	if topicID != "" {
		onInsert["topicId"] = topicID
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc ConversationDocument
	err := m.Conversations.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$setOnInsert": onInsert},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure conversation: %w", err)
	}

	return doc.toModel(), nil
}

// RecordMessageSent merges the last-message metadata into the summary record
// and simultaneously advances the sender's read cursor past the message's own
// timestamp. A sender is always caught up on their own message. $max keeps
// both lastMessageAt and the cursor monotone even if writes arrive reordered.
func (m *MongoDB) RecordMessageSent(ctx context.Context, conversationID, senderID, text string, sentAt time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"lastMessageText":     text,
			"lastMessageSenderId": senderID,
		},
		"$max": bson.M{
			"lastMessageAt":          sentAt,
			"lastReadAt." + senderID: sentAt.Add(models.ReadCursorSkew),
		},
	}

	result, err := m.Conversations.UpdateOne(ctx, bson.M{"_id": conversationID}, update)
	if err != nil {
		return fmt.Errorf("failed to record message sent: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("conversation not found: %s", conversationID)
	}

	return nil
}

// MarkRead advances a participant's read cursor to max(current, through).
// Backward moves are no-ops: $max rejects them at the storage layer, so no
// read-modify-write cycle is needed.
func (m *MongoDB) MarkRead(ctx context.Context, conversationID, participantID string, through time.Time) error {
	update := bson.M{
		"$max": bson.M{"lastReadAt." + participantID: through},
	}

	result, err := m.Conversations.UpdateOne(ctx, bson.M{"_id": conversationID}, update)
	if err != nil {
		return fmt.Errorf("failed to mark read: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("conversation not found: %s", conversationID)
	}

	return nil
}

// GetConversation fetches a single summary record, or nil when it does not exist.
func (m *MongoDB) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var doc ConversationDocument
	err := m.Conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return doc.toModel(), nil
}

// ListConversationsFor returns all conversations the user participates in,
// ordered by lastMessageAt descending.
func (m *MongoDB) ListConversationsFor(ctx context.Context, userID string) ([]*models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}})

	cursor, err := m.Conversations.Find(ctx, bson.M{"participantIds": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var conversations []*models.Conversation
	for cursor.Next(ctx) {
		var doc ConversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode conversation: %w", err)
		}
		conversations = append(conversations, doc.toModel())
	}

	return conversations, cursor.Err()
}

// WatchConversation opens a push subscription to summary updates for one
// conversation. The returned channel closes when ctx is cancelled or the
// change stream ends.
func (m *MongoDB) WatchConversation(ctx context.Context, conversationID string) (<-chan *models.Conversation, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"fullDocument._id": conversationID}}},
	}
	return m.watchConversations(ctx, pipeline)
}

// WatchConversationsFor opens a push subscription to summary updates for every
// conversation the user participates in. Backs the live inbox view.
func (m *MongoDB) WatchConversationsFor(ctx context.Context, userID string) (<-chan *models.Conversation, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"fullDocument.participantIds": userID}}},
	}
	return m.watchConversations(ctx, pipeline)
}

func (m *MongoDB) watchConversations(ctx context.Context, pipeline mongo.Pipeline) (<-chan *models.Conversation, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := m.Conversations.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation change stream: %w", err)
	}

	out := make(chan *models.Conversation)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var event struct {
				FullDocument ConversationDocument `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				continue
			}
			select {
			case out <- event.FullDocument.toModel():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
