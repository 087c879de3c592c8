package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type dedupeRef struct {
	key    string
	userID string
}

// MemoryStore is an in-memory Store for tests and local development. It
// honors the same (dedupe_key, user_id) atomicity contract as the
// PostgreSQL implementation.
type MemoryStore struct {
	byUser map[string][]Notification
	byRef  map[dedupeRef]uuid.UUID
	byID   map[uuid.UUID]Notification
	mu     sync.Mutex
}

// NewMemoryStore creates an empty in-memory notification store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUser: make(map[string][]Notification),
		byRef:  make(map[dedupeRef]uuid.UUID),
		byID:   make(map[uuid.UUID]Notification),
	}
}

func (s *MemoryStore) Create(ctx context.Context, params CreateParams) (CreateResult, error) {
	if params.UserID == "" {
		return CreateResult{}, errors.New("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if params.DedupeKey != "" {
		ref := dedupeRef{key: params.DedupeKey, userID: params.UserID}
		if id, ok := s.byRef[ref]; ok {
			existing := s.byID[id]
			return CreateResult{ID: existing.ID, CreatedAt: existing.CreatedAt, Inserted: false}, nil
		}
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	notif := Notification{
		ID:         uuid.New(),
		UserID:     params.UserID,
		PracticeID: params.PracticeID,
		Category:   params.Category,
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
		Title:      params.Title,
		Body:       params.Body,
		Link:       params.Link,
		SenderID:   params.SenderID,
		SenderName: params.SenderName,
		Severity:   params.Severity,
		Metadata:   params.Metadata,
		DedupeKey:  params.DedupeKey,
		CreatedAt:  createdAt,
	}

	s.byUser[notif.UserID] = append(s.byUser[notif.UserID], notif)
	s.byID[notif.ID] = notif
	if notif.DedupeKey != "" {
		s.byRef[dedupeRef{key: notif.DedupeKey, userID: notif.UserID}] = notif.ID
	}

	return CreateResult{ID: notif.ID, CreatedAt: notif.CreatedAt, Inserted: true}, nil
}

func (s *MemoryStore) Get(ctx context.Context, userID string, id string) (*Notification, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notif, ok := s.byID[parsed]
	if !ok || notif.UserID != userID {
		return nil, ErrNotFound
	}
	// Copy to prevent mutation of stored data.
	out := notif
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filtered []Notification
	for _, n := range s.byUser[userID] {
		if len(opts.Categories) > 0 {
			match := false
			for _, c := range opts.Categories {
				if n.Category == c {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if opts.Since != nil && !n.CreatedAt.After(*opts.Since) {
			continue
		}
		filtered = append(filtered, n)
	}

	// Newest first.
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Notification{}, nil
	}
	end := len(filtered)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	return filtered[start:end], nil
}
