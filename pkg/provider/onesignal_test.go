package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) *OneSignalSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOneSignalSender(PushConfig{
		OneSignalAppID:  "app-1",
		OneSignalAPIKey: "key-1",
		OneSignalAPIURL: srv.URL,
	}, WithHTTPClient(srv.Client()))
}

func TestOneSignalSender_Disabled(t *testing.T) {
	t.Parallel()

	sender := NewOneSignalSender(PushConfig{})
	assert.False(t, sender.Enabled())

	err := sender.Send(context.Background(), "u1", Message{Title: "t"})
	assert.ErrorIs(t, err, ErrChannelDisabled)
}

func TestOneSignalSender_Success(t *testing.T) {
	t.Parallel()

	var captured oneSignalRequest
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications", r.URL.Path)
		assert.Equal(t, "Basic key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "msg-1", "recipients": 1})
	})

	err := sender.Send(context.Background(), "u1", Message{
		Title: "New message",
		Body:  "hello",
		URL:   "https://app.example.com/n/1",
		Data:  map[string]any{"notificationId": "n1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "app-1", captured.AppID)
	assert.Equal(t, []string{"u1"}, captured.IncludeExternalUserIDs)
	assert.Equal(t, "New message", captured.Headings["en"])
	assert.Equal(t, "hello", captured.Contents["en"])
}

func TestOneSignalSender_ErrorsArraySurfaced(t *testing.T) {
	t.Parallel()

	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "",
			"errors": []string{"All included players are not subscribed"},
		})
	})

	err := sender.Send(context.Background(), "u1", Message{Title: "t"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "All included players are not subscribed")

	var pushErr *PushError
	require.True(t, errors.As(err, &pushErr))
	assert.False(t, pushErr.InvalidDestination, "bare strings rely on the text fallback")
}

func TestOneSignalSender_InvalidIDsStructured(t *testing.T) {
	t.Parallel()

	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": map[string]any{"invalid_external_user_ids": []string{"u1"}},
		})
	})

	err := sender.Send(context.Background(), "u1", Message{Title: "t"})
	require.Error(t, err)

	var pushErr *PushError
	require.True(t, errors.As(err, &pushErr))
	assert.True(t, pushErr.InvalidDestination)
}

func TestOneSignalSender_HTTPErrorStatus(t *testing.T) {
	t.Parallel()

	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": []string{"app_id not found"}})
	})

	err := sender.Send(context.Background(), "u1", Message{Title: "t"})
	require.Error(t, err)

	var pushErr *PushError
	require.True(t, errors.As(err, &pushErr))
	assert.Equal(t, http.StatusBadRequest, pushErr.StatusCode)
}

func TestPostmarkSender_DisabledWithoutToken(t *testing.T) {
	t.Parallel()

	sender := NewPostmarkSender(EmailConfig{SenderEmail: "n@x.com"})
	assert.False(t, sender.Enabled())

	err := sender.Send(context.Background(), "u1@x.com", Message{Title: "t"})
	assert.ErrorIs(t, err, ErrChannelDisabled)
}

func TestPostmarkSender_EnabledWithCredentials(t *testing.T) {
	t.Parallel()

	sender := NewPostmarkSender(EmailConfig{
		PostmarkServerToken: "token",
		SenderEmail:         "n@x.com",
		SupportEmail:        "s@x.com",
	})
	assert.True(t, sender.Enabled())
	assert.Equal(t, "postmark", sender.Name())
}

func TestRenderEmailBody_EscapesAndLinks(t *testing.T) {
	t.Parallel()

	body := renderEmailBody(Message{
		Title: "Hi <script>",
		Body:  "a & b",
		URL:   "https://app.example.com/n/1",
	})

	assert.Contains(t, body, "Hi &lt;script&gt;")
	assert.Contains(t, body, "a &amp; b")
	assert.Contains(t, body, `href="https://app.example.com/n/1"`)

	noLink := renderEmailBody(Message{Title: "t", Body: "b"})
	assert.NotContains(t, noLink, "href")
}
