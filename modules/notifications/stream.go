package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/practicedesk/notifier/pkg/logger"
)

const heartbeatInterval = 25 * time.Second

// stream is the per-user SSE endpoint. Each connected client gets its own
// hub subscription; events arrive in publish order for this user. There
// is no replay: clients recover missed history via GET /.
func (s *Service) stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := s.hub.Subscribe(r.Context(), userID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to subscribe to live events",
			logger.UserID(userID),
			logger.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-sub.Receive():
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.log.ErrorContext(r.Context(), "failed to encode live event",
					logger.UserID(userID),
					logger.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}
