// Package deliverylog is the append-only ledger of per-channel send
// outcomes. Records exist purely for observability; they are never mutated
// or consulted by the delivery path itself.
package deliverylog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Channel identifies the delivery channel of a record.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Status is the outcome of one channel attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Record is one immutable channel-attempt outcome.
type Record struct {
	ID             uuid.UUID `json:"id"`
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Channel        Channel   `json:"channel"`
	Provider       string    `json:"provider"`
	Status         Status    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ExternalUserID string    `json:"external_user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Recorder appends delivery outcomes. Implementations must tolerate being
// called from many recipients concurrently; callers treat Record errors as
// log-and-continue, never aborting the channel flow.
type Recorder interface {
	Record(ctx context.Context, rec Record) error

	// ListByNotification returns the audit trail of one notification,
	// oldest first.
	ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]Record, error)
}
