package logger

import (
	"log/slog"
	"strconv"
)

// Error creates an attribute for a single error under the key "error".
// Returns an empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups multiple non-nil errors under the key "errors".
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// UserID records the recipient user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// EventID records the queue event identifier under the key "event_id".
// This is the primary correlation key across the pipeline.
func EventID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("event_id", id)
}

// NotificationID records a stored notification id under the key "notification_id".
func NotificationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("notification_id", id)
}

// DedupeKey records the caller-supplied dedupe key under the key "dedupe_key".
func DedupeKey(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("dedupe_key", key)
}

// Channel records a delivery channel name (email, push) under the key "channel".
func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// Provider records an external provider name under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Category records the notification category under the key "category".
func Category(c string) slog.Attr {
	return slog.String("category", c)
}

// MessageID records a queue message identifier under the key "message_id".
func MessageID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("message_id", id)
}

// Count records a generic count under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}
