package notification

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a notification does not exist.
var ErrNotFound = errors.New("notification not found")

// Store is the durable, idempotent notification log.
type Store interface {
	// Create inserts the per-recipient row. With a dedupe key present the
	// insert is atomic on (dedupe_key, user_id): concurrent callers with
	// the same key never produce two rows, and the loser receives the
	// winner's identity with Inserted false. Without a key every call
	// inserts a fresh row.
	Create(ctx context.Context, params CreateParams) (CreateResult, error)

	// Get retrieves a single notification scoped to its recipient.
	Get(ctx context.Context, userID string, id string) (*Notification, error)

	// List returns a recipient's notifications, newest first. Reconnecting
	// live clients use this to recover history the hub never replays.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)
}
