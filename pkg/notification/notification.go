package notification

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a notification. The set is open-ended: producers own
// the taxonomy, the pipeline only gives special treatment to
// CategoryMessage (mentions-only preference filtering).
type Category string

const (
	CategoryMessage  Category = "message"
	CategorySystem   Category = "system"
	CategoryBilling  Category = "billing"
	CategoryMatter   Category = "matter"
	CategoryDocument Category = "document"
)

// Notification is one durably stored per-recipient notification row.
// Immutable once created; the pipeline never deletes it.
type Notification struct {
	ID         uuid.UUID      `json:"id"`
	UserID     string         `json:"user_id"`
	PracticeID string         `json:"practice_id,omitempty"`
	Category   Category       `json:"category"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Link       string         `json:"link,omitempty"`
	SenderID   string         `json:"sender_id,omitempty"`
	SenderName string         `json:"sender_name,omitempty"`
	Severity   string         `json:"severity,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	DedupeKey  string         `json:"dedupe_key,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// CreateParams carries the fields for an idempotent create. CreatedAt may
// be zero, in which case the store stamps the insert time.
type CreateParams struct {
	UserID     string
	PracticeID string
	Category   Category
	EntityType string
	EntityID   string
	Title      string
	Body       string
	Link       string
	SenderID   string
	SenderName string
	Severity   string
	Metadata   map[string]any
	DedupeKey  string
	CreatedAt  time.Time
}

// CreateResult identifies the row a Create call resolved to. Inserted is
// false when an existing (dedupe_key, user_id) row won the race; ID and
// CreatedAt then belong to that winning row.
type CreateResult struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Inserted  bool
}

// ListOptions filters and paginates history reads.
type ListOptions struct {
	Limit      int
	Offset     int
	Categories []Category
	Since      *time.Time
}
