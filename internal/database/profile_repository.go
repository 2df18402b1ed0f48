package database

import (
	"context"
	"fmt"
	"time"

	"idea-pond/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProfileDocument represents the MongoDB document structure for profiles
type ProfileDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	DisplayName  string    `bson:"displayName"`
	AvatarRef    string    `bson:"avatarRef,omitempty"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (doc *ProfileDocument) toModel() *models.Profile {
	return &models.Profile{
		ID:           doc.ID,
		Username:     doc.Username,
		DisplayName:  doc.DisplayName,
		AvatarRef:    doc.AvatarRef,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}
}

// GetProfile fetches a profile by user id, or nil when it does not exist.
func (m *MongoDB) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var doc ProfileDocument
	err := m.Profiles.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return doc.toModel(), nil
}

// GetProfileByUsername fetches a profile by username, or nil when it does not
// exist. Used by the login path.
func (m *MongoDB) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var doc ProfileDocument
	err := m.Profiles.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by username: %w", err)
	}
	return doc.toModel(), nil
}

// SaveProfile inserts a new profile record.
func (m *MongoDB) SaveProfile(ctx context.Context, profile *models.Profile) error {
	doc := ProfileDocument{
		ID:           profile.ID,
		Username:     profile.Username,
		DisplayName:  profile.DisplayName,
		AvatarRef:    profile.AvatarRef,
		PasswordHash: profile.PasswordHash,
		CreatedAt:    profile.CreatedAt,
	}

	if _, err := m.Profiles.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("username already taken: %s", profile.Username)
		}
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}
