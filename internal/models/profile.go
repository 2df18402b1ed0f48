package models

import "time"

// Profile is the identity record the messaging core joins into inbox rows.
// Editing profiles is handled elsewhere in the product; here we only read
// display identity and verify credentials at login.
type Profile struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	AvatarRef    string    `json:"avatarRef,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PlaceholderProfile stands in when a peer's profile cannot be resolved.
// Inbox listing must degrade gracefully instead of failing the whole view.
func PlaceholderProfile(userID string) *Profile {
	return &Profile{
		ID:          userID,
		DisplayName: "Unknown user",
	}
}
