package notifications

import "context"

type contextKey struct{ name string }

var userIDKey = contextKey{"notifications.user_id"}

// WithUserID returns a context carrying the authenticated user id. Auth
// middleware is external plumbing; this is the contract it fulfills.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the authenticated user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
