package destination

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type providerRef struct {
	provider   string
	providerID string
}

// MemoryRegistry is an in-memory Registry for tests and local development.
type MemoryRegistry struct {
	byRef map[providerRef]*Destination
	mu    sync.Mutex
}

// NewMemoryRegistry creates an empty in-memory destination registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{byRef: make(map[providerRef]*Destination)}
}

func (r *MemoryRegistry) Upsert(ctx context.Context, params UpsertParams) (Destination, error) {
	if params.UserID == "" || params.ProviderID == "" {
		return Destination{}, errors.New("user id and provider id are required")
	}

	provider := params.Provider
	if provider == "" {
		provider = DefaultProvider
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	ref := providerRef{provider: provider, providerID: params.ProviderID}

	if existing, ok := r.byRef[ref]; ok {
		existing.UserID = params.UserID
		existing.Platform = params.Platform
		existing.ExternalUserID = params.ExternalUserID
		if params.UserAgent != "" {
			existing.UserAgent = params.UserAgent
		}
		existing.UpdatedAt = now
		existing.LastSeenAt = now
		existing.DisabledAt = nil
		return *existing, nil
	}

	dest := &Destination{
		ID:             uuid.New(),
		UserID:         params.UserID,
		Provider:       provider,
		ProviderID:     params.ProviderID,
		Platform:       params.Platform,
		ExternalUserID: params.ExternalUserID,
		UserAgent:      params.UserAgent,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastSeenAt:     now,
	}
	r.byRef[ref] = dest
	return *dest, nil
}

func (r *MemoryRegistry) DisableForUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var count int64
	for _, dest := range r.byRef {
		if dest.UserID == userID && dest.DisabledAt == nil {
			dest.DisabledAt = &now
			dest.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (r *MemoryRegistry) Disable(ctx context.Context, providerID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var count int64
	for _, dest := range r.byRef {
		if dest.ProviderID == providerID && dest.UserID == userID && dest.DisabledAt == nil {
			dest.DisabledAt = &now
			dest.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (r *MemoryRegistry) ListEnabled(ctx context.Context, userID string) ([]Destination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Destination{}
	for _, dest := range r.byRef {
		if dest.UserID == userID && dest.DisabledAt == nil {
			out = append(out, *dest)
		}
	}
	return out, nil
}
