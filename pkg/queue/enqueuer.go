package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerStorage persists new messages.
type EnqueuerStorage interface {
	CreateMessage(ctx context.Context, msg *Message) error
}

// Enqueuer publishes payloads onto a queue.
type Enqueuer struct {
	storage EnqueuerStorage
	queue   string
}

// EnqueuerOption customizes an Enqueuer.
type EnqueuerOption func(*Enqueuer)

// WithEnqueuerQueue overrides the default queue name.
func WithEnqueuerQueue(name string) EnqueuerOption {
	return func(e *Enqueuer) {
		if name != "" {
			e.queue = name
		}
	}
}

// NewEnqueuer creates an Enqueuer backed by the given storage.
func NewEnqueuer(storage EnqueuerStorage, opts ...EnqueuerOption) (*Enqueuer, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	e := &Enqueuer{
		storage: storage,
		queue:   DefaultQueueName,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EnqueueOption customizes a single enqueue call.
type EnqueueOption func(*Message)

// WithQueue routes the message to a specific queue.
func WithQueue(name string) EnqueueOption {
	return func(m *Message) {
		if name != "" {
			m.Queue = name
		}
	}
}

// WithDelay defers the message by d from now.
func WithDelay(d time.Duration) EnqueueOption {
	return func(m *Message) {
		if d > 0 {
			m.ScheduledAt = time.Now().Add(d)
		}
	}
}

// WithScheduledAt defers the message until t.
func WithScheduledAt(t time.Time) EnqueueOption {
	return func(m *Message) {
		if !t.IsZero() {
			m.ScheduledAt = t
		}
	}
}

// Enqueue marshals payload to JSON and persists it as a pending message.
// It returns the message ID.
func (e *Enqueuer) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) (uuid.UUID, error) {
	if payload == nil {
		return uuid.Nil, ErrPayloadNil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal queue payload: %w", err)
	}

	now := time.Now()
	msg := &Message{
		ID:          uuid.New(),
		Queue:       e.queue,
		Payload:     data,
		Status:      StatusPending,
		ScheduledAt: now,
		CreatedAt:   now,
	}
	for _, opt := range opts {
		opt(msg)
	}

	if err := e.storage.CreateMessage(ctx, msg); err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue message: %w", err)
	}
	return msg.ID, nil
}
