package destination

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultProvider is the push provider destinations are registered with.
const DefaultProvider = "onesignal"

// Destination is one deliverable push endpoint for a user on a device.
// Unique on (provider, provider_id). Registering again re-enables a
// previously disabled destination.
type Destination struct {
	ID             uuid.UUID  `json:"id"`
	UserID         string     `json:"user_id"`
	Provider       string     `json:"provider"`
	ProviderID     string     `json:"provider_id"`
	Platform       string     `json:"platform"`
	ExternalUserID string     `json:"external_user_id"`
	UserAgent      string     `json:"user_agent,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastSeenAt     time.Time  `json:"last_seen_at"`
	DisabledAt     *time.Time `json:"disabled_at,omitempty"`
}

// Enabled reports whether the destination is currently deliverable.
func (d Destination) Enabled() bool {
	return d.DisabledAt == nil
}

// UpsertParams carries a registration. Provider defaults to
// DefaultProvider when empty.
type UpsertParams struct {
	UserID         string
	Provider       string
	ProviderID     string
	Platform       string
	ExternalUserID string
	UserAgent      string
}

// Registry stores push destinations and tracks their enable/disable
// lifecycle.
type Registry interface {
	// Upsert registers a destination keyed by (provider, provider_id).
	// Idempotent; always clears DisabledAt and bumps LastSeenAt, so a
	// re-registration re-enables a disabled endpoint.
	Upsert(ctx context.Context, params UpsertParams) (Destination, error)

	// DisableForUser disables every currently enabled destination of a
	// user and returns how many rows changed. Used defensively when a
	// provider signals user-wide invalidity.
	DisableForUser(ctx context.Context, userID string) (int64, error)

	// Disable disables a single destination for a user (explicit
	// opt-out). Disabling an already-disabled row yields 0.
	Disable(ctx context.Context, providerID, userID string) (int64, error)

	// ListEnabled returns a user's currently enabled destinations.
	ListEnabled(ctx context.Context, userID string) ([]Destination, error)
}
