package consumer

import (
	"errors"
	"strings"

	"github.com/practicedesk/notifier/pkg/provider"
)

// invalidDestinationSignals are provider error fragments that mean the
// recipient's push destinations are gone or unusable, as opposed to a
// transient delivery failure.
var invalidDestinationSignals = []string{
	"all included players are not subscribed",
	"no subscribed players",
	"invalid player ids",
	"invalid external user ids",
	"unsubscribed",
	"not a valid uuid",
}

// isDestinationInvalid reports whether a push failure indicates the
// recipient's destinations should be disabled. A structured signal from
// the adapter wins; error-text matching is the fallback for providers
// that only return free-form messages.
func isDestinationInvalid(err error) bool {
	if err == nil {
		return false
	}

	var pushErr *provider.PushError
	if errors.As(err, &pushErr) {
		if pushErr.InvalidDestination {
			return true
		}
	}

	text := strings.ToLower(err.Error())
	for _, signal := range invalidDestinationSignals {
		if strings.Contains(text, signal) {
			return true
		}
	}
	return false
}
