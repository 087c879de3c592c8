package queue

import (
	"time"

	"github.com/google/uuid"
)

// DefaultQueueName is used when no queue is specified.
const DefaultQueueName = "notifications"

// Status tracks a message through its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
)

// Message is one queued envelope. Payload is opaque JSON owned by the
// producer; the worker never inspects it.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	Queue       string     `json:"queue"`
	Payload     []byte     `json:"payload"`
	Status      Status     `json:"status"`
	Attempts    int        `json:"attempts"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID `json:"locked_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Config holds worker settings loaded from the environment.
type Config struct {
	Queue        string        `env:"QUEUE_NAME" envDefault:"notifications"`
	PollInterval time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"2s"`
	LockTimeout  time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"2m"`
	BatchSize    int           `env:"QUEUE_BATCH_SIZE" envDefault:"10"`
}
