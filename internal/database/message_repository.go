package database

import (
	"context"
	"fmt"
	"time"

	"idea-pond/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageDocument represents the MongoDB document structure for messages
type MessageDocument struct {
	ID             string    `bson:"_id"`
	ConversationID string    `bson:"conversationId"`
	SenderID       string    `bson:"senderId"`
	Text           string    `bson:"text"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func (doc *MessageDocument) toModel() *models.Message {
	return &models.Message{
		ID:             doc.ID,
		ConversationID: doc.ConversationID,
		SenderID:       doc.SenderID,
		Text:           doc.Text,
		CreatedAt:      doc.CreatedAt,
	}
}

// AppendMessage appends a message to the conversation's log. The server
// instant is bumped past the previous message when the wall clock has not
// advanced, keeping createdAt strictly increasing within a conversation.
// The read-tail-then-insert sequence assumes all appends for a conversation
// serialize through the single message actor.
func (m *MongoDB) AppendMessage(ctx context.Context, conversationID, senderID, text string) (*models.Message, error) {
	if text == "" {
		return nil, fmt.Errorf("message text must not be empty")
	}

	createdAt := time.Now().UTC()
	if last, err := m.lastMessageAt(ctx, conversationID); err != nil {
		return nil, err
	} else if !createdAt.After(last) {
		createdAt = last.Add(time.Millisecond)
	}

	doc := MessageDocument{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      createdAt,
	}

	if _, err := m.Messages.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	return doc.toModel(), nil
}

func (m *MongoDB) lastMessageAt(ctx context.Context, conversationID string) (time.Time, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var doc MessageDocument
	err := m.Messages.FindOne(ctx, bson.M{"conversationId": conversationID}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read message log tail: %w", err)
	}
	return doc.CreatedAt, nil
}

// ListMessagesSince returns the messages of a conversation created after the
// given instant, ordered by createdAt ascending. Used for the initial history
// fetch before a stream subscription takes over.
func (m *MongoDB) ListMessagesSince(ctx context.Context, conversationID string, after time.Time) ([]*models.Message, error) {
	filter := bson.M{
		"conversationId": conversationID,
		"createdAt":      bson.M{"$gt": after},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := m.Messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	for cursor.Next(ctx) {
		var doc MessageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, doc.toModel())
	}

	return messages, cursor.Err()
}

// StreamMessagesSince produces the unbounded, ordered feed of a conversation's
// log: everything already appended after the cursor, then live inserts from a
// change stream. Restartable by re-subscribing with a new cursor. The channel
// closes when ctx is cancelled or the stream ends.
func (m *MongoDB) StreamMessagesSince(ctx context.Context, conversationID string, after time.Time) (<-chan *models.Message, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"operationType":               "insert",
			"fullDocument.conversationId": conversationID,
		}}},
	}
	stream, err := m.Messages.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to open message change stream: %w", err)
	}

	// Backfill is read after the stream is open so nothing falls in between.
	// Inserts landing in that window show up in both; the id set filters them
	// without relying on timestamp ordering.
	backlog, err := m.ListMessagesSince(ctx, conversationID, after)
	if err != nil {
		stream.Close(context.Background())
		return nil, err
	}

	out := make(chan *models.Message)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		delivered := make(map[string]struct{}, len(backlog))
		for _, msg := range backlog {
			delivered[msg.ID] = struct{}{}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}

		for stream.Next(ctx) {
			var event struct {
				FullDocument MessageDocument `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				continue
			}
			msg := event.FullDocument.toModel()
			if _, dup := delivered[msg.ID]; dup {
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
