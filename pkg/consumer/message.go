package consumer

import (
	"time"

	"github.com/practicedesk/notifier/pkg/notification"
)

// Preferences is a recipient's point-in-time channel settings, captured by
// the producer at enqueue time. The pipeline never re-reads live
// preferences.
type Preferences struct {
	EmailEnabled       bool `json:"emailEnabled"`
	PushEnabled        bool `json:"pushEnabled"`
	DesktopPushEnabled bool `json:"desktopPushEnabled"`
	MentionsOnly       bool `json:"mentionsOnly"`
}

// RecipientSnapshot is one addressed recipient of a notification event.
type RecipientSnapshot struct {
	UserID      string      `json:"userId"`
	Email       string      `json:"email,omitempty"`
	Preferences Preferences `json:"preferences"`
}

// NotificationMessage is the wire envelope producers put on the queue.
// One envelope targets many recipients.
type NotificationMessage struct {
	EventID    string                `json:"eventId"`
	Category   notification.Category `json:"category"`
	Title      string                `json:"title"`
	Body       string                `json:"body"`
	Link       string                `json:"link,omitempty"`
	EntityType string                `json:"entityType,omitempty"`
	EntityID   string                `json:"entityId,omitempty"`
	PracticeID string                `json:"practiceId,omitempty"`
	SenderID   string                `json:"senderId,omitempty"`
	SenderName string                `json:"senderName,omitempty"`
	Severity   string                `json:"severity,omitempty"`
	Metadata   map[string]any        `json:"metadata,omitempty"`
	DedupeKey  string                `json:"dedupeKey,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
	Recipients []RecipientSnapshot   `json:"recipients"`
}

// MentionedUserIDs extracts the mentioned user ids from the message
// metadata. Producers publish them under "mentionedUserIds" as a list of
// strings; anything else yields an empty set.
func (m NotificationMessage) MentionedUserIDs() map[string]struct{} {
	mentioned := map[string]struct{}{}
	raw, ok := m.Metadata["mentionedUserIds"]
	if !ok {
		return mentioned
	}

	switch ids := raw.(type) {
	case []string:
		for _, id := range ids {
			mentioned[id] = struct{}{}
		}
	case []any:
		// JSON decoding lands here.
		for _, v := range ids {
			if id, ok := v.(string); ok {
				mentioned[id] = struct{}{}
			}
		}
	}
	return mentioned
}
