// Package provider wraps the external delivery providers: Postmark for
// transactional email and OneSignal for push. Adapters are "configured"
// only when their credentials are present; an unconfigured adapter reports
// Enabled() false and the pipeline skips that channel for the process
// lifetime — notifications are still stored and fanned out live.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrChannelDisabled is returned by Send on an unconfigured adapter.
	ErrChannelDisabled = errors.New("provider: channel is not configured")

	// ErrSendFailed wraps provider-side delivery failures.
	ErrSendFailed = errors.New("provider: send failed")
)

// Message is the channel-neutral payload handed to an adapter.
type Message struct {
	Title string
	Body  string
	URL   string
	Data  map[string]any
}

// EmailSender delivers a message to one email address.
type EmailSender interface {
	// Send delivers the message. Implementations surface provider error
	// detail in the returned error.
	Send(ctx context.Context, address string, msg Message) error

	// Enabled reports whether the adapter holds working credentials.
	Enabled() bool

	// Name identifies the provider in delivery records.
	Name() string
}

// PushSender delivers a message to every destination registered for an
// external user id.
type PushSender interface {
	// Send delivers the message. Failures carry enough provider detail
	// for destination-invalidity classification (see *PushError).
	Send(ctx context.Context, externalUserID string, msg Message) error

	Enabled() bool
	Name() string
}
