package deliverylog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRecorder is an in-memory Recorder for tests and local development.
type MemoryRecorder struct {
	records []Record
	mu      sync.Mutex
}

// NewMemoryRecorder creates an empty in-memory delivery ledger.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRecorder) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Record{}
	for _, rec := range r.records {
		if rec.NotificationID == notificationID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns a snapshot of every record, insertion order. Test helper.
func (r *MemoryRecorder) All() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}
