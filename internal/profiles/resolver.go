package profiles

import (
	"context"
	"log/slog"
	"sync"

	"idea-pond/internal/models"
)

// Store is the profile lookup collaborator.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// Resolver resolves display identities for inbox rows and conversation views.
// Lookup failures degrade to a placeholder identity instead of failing the
// caller. Resolved profiles are cached in an explicit, resolver-owned cache:
// unbounded, invalidated manually when a profile-update event arrives.
type Resolver struct {
	store Store

	mu    sync.RWMutex
	cache map[string]*models.Profile
}

func NewResolver(store Store) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[string]*models.Profile),
	}
}

// Resolve returns the profile for userID, or a placeholder when the lookup
// fails or the profile does not exist. Never returns nil.
func (r *Resolver) Resolve(ctx context.Context, userID string) *models.Profile {
	r.mu.RLock()
	cached, ok := r.cache[userID]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	profile, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		slog.Warn("profile lookup failed, using placeholder", "user", userID, "error", err)
		return models.PlaceholderProfile(userID)
	}
	if profile == nil {
		return models.PlaceholderProfile(userID)
	}

	r.mu.Lock()
	r.cache[userID] = profile
	r.mu.Unlock()

	return profile
}

// Invalidate drops a cached profile. Called on profile-update events.
func (r *Resolver) Invalidate(userID string) {
	r.mu.Lock()
	delete(r.cache, userID)
	r.mu.Unlock()
}
