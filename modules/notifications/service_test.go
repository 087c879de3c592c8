package notifications

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicedesk/notifier/pkg/destination"
	"github.com/practicedesk/notifier/pkg/notification"
	"github.com/practicedesk/notifier/pkg/realtime"
)

func newTestService(t *testing.T) (*Service, *destination.MemoryRegistry, *notification.MemoryStore, *realtime.MemoryHub) {
	t.Helper()
	registry := destination.NewMemoryRegistry()
	store := notification.NewMemoryStore()
	hub := realtime.NewMemoryHub()
	t.Cleanup(func() { _ = hub.Close() })
	return NewService(registry, store, hub), registry, store, hub
}

func authedRequest(method, target string, body string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != "" {
		req = req.WithContext(WithUserID(req.Context(), userID))
	}
	return req
}

func TestRegisterDestination(t *testing.T) {
	t.Parallel()

	svc, registry, _, _ := newTestService(t)
	h := svc.Handle()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodPost, "/destinations",
		`{"onesignalId":"player-1","platform":"web"}`, "u1"))

	require.Equal(t, http.StatusOK, rec.Code)

	var dest destination.Destination
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dest))
	assert.Equal(t, "u1", dest.UserID)
	assert.Equal(t, "player-1", dest.ProviderID)
	assert.Equal(t, destination.DefaultProvider, dest.Provider)
	assert.True(t, dest.Enabled())

	enabled, err := registry.ListEnabled(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, enabled, 1)
}

func TestRegisterDestination_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestService(t)
	h := svc.Handle()

	tests := []struct {
		name     string
		body     string
		userID   string
		wantCode int
	}{
		{name: "unauthenticated", body: `{"onesignalId":"p1"}`, wantCode: http.StatusUnauthorized},
		{name: "invalid body", body: `{`, userID: "u1", wantCode: http.StatusBadRequest},
		{name: "missing id", body: `{"platform":"web"}`, userID: "u1", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, authedRequest(http.MethodPost, "/destinations", tt.body, tt.userID))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestDisableDestination(t *testing.T) {
	t.Parallel()

	svc, registry, _, _ := newTestService(t)
	h := svc.Handle()

	_, err := registry.Upsert(context.Background(), destination.UpsertParams{
		UserID:     "u1",
		ProviderID: "player-1",
		Platform:   "web",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodDelete, "/destinations/player-1", "", "u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp["disabled"])

	// Disabling again is idempotent and yields 0.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodDelete, "/destinations/player-1", "", "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp["disabled"])
}

func TestDisableDestination_OtherUser(t *testing.T) {
	t.Parallel()

	svc, registry, _, _ := newTestService(t)
	h := svc.Handle()

	_, err := registry.Upsert(context.Background(), destination.UpsertParams{
		UserID:     "u1",
		ProviderID: "player-1",
		Platform:   "web",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodDelete, "/destinations/player-1", "", "u2"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp["disabled"])

	enabled, err := registry.ListEnabled(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, enabled, 1)
}

func TestListDestinations(t *testing.T) {
	t.Parallel()

	svc, registry, _, _ := newTestService(t)
	h := svc.Handle()

	_, err := registry.Upsert(context.Background(), destination.UpsertParams{
		UserID:     "u1",
		ProviderID: "player-1",
		Platform:   "web",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodGet, "/destinations", "", "u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var dests []destination.Destination
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dests))
	require.Len(t, dests, 1)
	assert.Equal(t, "player-1", dests[0].ProviderID)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	svc, _, store, _ := newTestService(t)
	h := svc.Handle()
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		_, err := store.Create(ctx, notification.CreateParams{
			UserID:   "u1",
			Category: notification.CategorySystem,
			Title:    title,
			Body:     "b",
		})
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, notification.CreateParams{
		UserID:   "u2",
		Category: notification.CategorySystem,
		Title:    "other user",
		Body:     "b",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodGet, "/?limit=2", "", "u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var notifs []notification.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifs))
	assert.Len(t, notifs, 2)
	for _, n := range notifs {
		assert.Equal(t, "u1", n.UserID)
	}
}

func TestHistory_Unauthenticated(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestService(t)
	rec := httptest.NewRecorder()
	svc.Handle().ServeHTTP(rec, authedRequest(http.MethodGet, "/", "", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStream_DeliversEvents(t *testing.T) {
	t.Parallel()

	svc, _, _, hub := newTestService(t)
	h := svc.Handle()
	// Stand-in for the auth middleware fronting the module in production.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), "u1")))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	// The connected comment arrives first.
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	// The connected comment is written after the subscription is active,
	// so this publish is guaranteed to reach the stream.
	require.NoError(t, hub.Publish(context.Background(), "u1", realtime.Event{
		Type:           realtime.EventTypeNotification,
		NotificationID: "n1",
		Category:       "system",
		CreatedAt:      time.Now(),
		Title:          "hello",
	}))

	deadline := time.After(2 * time.Second)
	lines := make(chan string, 16)
	go func() {
		for {
			l, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- l
		}
	}()

	var eventLine, dataLine string
	for eventLine == "" || dataLine == "" {
		select {
		case l, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before event arrived")
			}
			switch {
			case strings.HasPrefix(l, "event: "):
				eventLine = l
			case strings.HasPrefix(l, "data: "):
				dataLine = l
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}

	assert.Equal(t, "event: notification\n", eventLine)

	var event realtime.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(dataLine), "data: ")), &event))
	assert.Equal(t, "n1", event.NotificationID)
	assert.Equal(t, "hello", event.Title)
}

func TestStream_Unauthenticated(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestService(t)
	rec := httptest.NewRecorder()
	svc.Handle().ServeHTTP(rec, authedRequest(http.MethodGet, "/stream", "", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
