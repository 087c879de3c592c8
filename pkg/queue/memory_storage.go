package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory queue backend for tests and local runs.
type MemoryStorage struct {
	mu   sync.Mutex
	msgs map[uuid.UUID]*Message
	now  func() time.Time
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		msgs: make(map[uuid.UUID]*Message),
		now:  time.Now,
	}
}

// CreateMessage stores a copy of msg.
func (s *MemoryStorage) CreateMessage(_ context.Context, msg *Message) error {
	if msg == nil {
		return ErrPayloadNil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *msg
	s.msgs[cp.ID] = &cp
	return nil
}

// ClaimBatch locks up to limit due messages on queue. Pending messages
// whose schedule has passed and processing messages whose lock expired
// are both claimable. Results come back in enqueue order.
func (s *MemoryStorage) ClaimBatch(_ context.Context, workerID uuid.UUID, queue string, limit int, lockFor time.Duration) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	var due []*Message
	for _, m := range s.msgs {
		if m.Queue != queue {
			continue
		}
		switch m.Status {
		case StatusPending:
			if !m.ScheduledAt.After(now) {
				due = append(due, m)
			}
		case StatusProcessing:
			if m.LockedUntil != nil && m.LockedUntil.Before(now) {
				due = append(due, m)
			}
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].ScheduledAt.Equal(due[j].ScheduledAt) {
			return due[i].ScheduledAt.Before(due[j].ScheduledAt)
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]Message, 0, len(due))
	for _, m := range due {
		until := now.Add(lockFor)
		wid := workerID
		m.Status = StatusProcessing
		m.Attempts++
		m.LockedUntil = &until
		m.LockedBy = &wid
		claimed = append(claimed, *m)
	}
	return claimed, nil
}

// Ack marks the given messages done.
func (s *MemoryStorage) Ack(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, id := range ids {
		m, ok := s.msgs[id]
		if !ok {
			continue
		}
		m.Status = StatusDone
		m.LockedUntil = nil
		m.LockedBy = nil
		m.ProcessedAt = &now
	}
	return nil
}

// Message returns a copy of the stored message, for tests.
func (s *MemoryStorage) Message(id uuid.UUID) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return Message{}, false
	}
	return *m, true
}
