// Package realtime fans live notification events out to connected
// subscribers, one ordered stream per recipient user.
//
// The hub keeps no backlog: publishing with no subscriber connected drops
// the event, and reconnecting clients recover history from the notification
// store instead. Within one user, events reach every subscriber in Publish
// order; there is no ordering guarantee across users.
package realtime

import (
	"context"
	"time"
)

// Event is the live update pushed to a recipient's connected clients.
type Event struct {
	Type           string    `json:"type"`
	NotificationID string    `json:"notificationId"`
	Category       string    `json:"category"`
	CreatedAt      time.Time `json:"createdAt"`
	Title          string    `json:"title"`
}

// EventTypeNotification is the only event type the pipeline publishes today.
const EventTypeNotification = "notification"

// Subscriber receives one user's events. Close is idempotent; after Close
// the receive channel is closed.
type Subscriber interface {
	Receive() <-chan Event
	Close() error
}

// Hub is the per-user live fan-out. Implementations must keep the
// single-writer-per-user invariant: concurrent Publish calls for the same
// user serialize, so every subscriber observes them in a single order.
type Hub interface {
	// Publish fans the event out to all of the user's current
	// subscribers. No subscriber connected means the event is dropped.
	Publish(ctx context.Context, userID string, event Event) error

	// Subscribe attaches a new live subscriber for the user. The
	// subscription is cleaned up when ctx is cancelled or Close is
	// called.
	Subscribe(ctx context.Context, userID string) (Subscriber, error)

	// Close shuts the hub down and closes every subscriber.
	Close() error
}
