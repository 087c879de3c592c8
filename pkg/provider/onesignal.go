package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PushError carries structured detail from a failed push attempt. The
// queue consumer prefers InvalidDestination over error-text matching when
// classifying destination invalidity.
type PushError struct {
	StatusCode int
	Messages   []string
	// InvalidDestination is set when the provider explicitly reported the
	// target player/external ids as invalid or unsubscribed.
	InvalidDestination bool
}

func (e *PushError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("onesignal: request failed with status %d", e.StatusCode)
	}
	return "onesignal: " + strings.Join(e.Messages, "; ")
}

// OneSignalSender delivers push notifications through the OneSignal REST
// API, targeting destinations by external user id.
type OneSignalSender struct {
	client  *http.Client
	cfg     PushConfig
	enabled bool
}

// OneSignalOption configures the sender.
type OneSignalOption func(*OneSignalSender)

// WithHTTPClient overrides the default pooled client, mainly for tests.
func WithHTTPClient(client *http.Client) OneSignalOption {
	return func(s *OneSignalSender) {
		if client != nil {
			s.client = client
		}
	}
}

// NewOneSignalSender builds the push adapter. Missing credentials yield a
// disabled adapter.
func NewOneSignalSender(cfg PushConfig, opts ...OneSignalOption) *OneSignalSender {
	s := &OneSignalSender{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	if cfg.OneSignalAppID != "" && cfg.OneSignalAPIKey != "" {
		s.enabled = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OneSignalSender) Name() string { return "onesignal" }

func (s *OneSignalSender) Enabled() bool { return s.enabled }

type oneSignalRequest struct {
	AppID                  string            `json:"app_id"`
	IncludeExternalUserIDs []string          `json:"include_external_user_ids"`
	Headings               map[string]string `json:"headings"`
	Contents               map[string]string `json:"contents"`
	URL                    string            `json:"url,omitempty"`
	Data                   map[string]any    `json:"data,omitempty"`
}

type oneSignalResponse struct {
	ID         string          `json:"id"`
	Recipients int             `json:"recipients"`
	Errors     json.RawMessage `json:"errors"`
}

func (s *OneSignalSender) Send(ctx context.Context, externalUserID string, msg Message) error {
	if !s.enabled {
		return ErrChannelDisabled
	}
	if externalUserID == "" {
		return fmt.Errorf("%w: empty external user id", ErrSendFailed)
	}

	payload, err := json.Marshal(oneSignalRequest{
		AppID:                  s.cfg.OneSignalAppID,
		IncludeExternalUserIDs: []string{externalUserID},
		Headings:               map[string]string{"en": msg.Title},
		Contents:               map[string]string{"en": msg.Body},
		URL:                    msg.URL,
		Data:                   msg.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.OneSignalAPIURL+"/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+s.cfg.OneSignalAPIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}

	var parsed oneSignalResponse
	// OneSignal reports many failures inside a 200 response, so the body
	// has to be inspected regardless of the status code.
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 300 {
			return errors.Join(ErrSendFailed, &PushError{StatusCode: resp.StatusCode})
		}
		return fmt.Errorf("decode push response: %w", err)
	}

	if pushErr := parseOneSignalErrors(resp.StatusCode, parsed.Errors); pushErr != nil {
		return errors.Join(ErrSendFailed, pushErr)
	}
	if resp.StatusCode >= 300 {
		return errors.Join(ErrSendFailed, &PushError{StatusCode: resp.StatusCode})
	}
	return nil
}

// parseOneSignalErrors handles both error shapes the API produces: a plain
// array of message strings, or an object keyed by error class such as
// {"invalid_external_user_ids": [...]}.
func parseOneSignalErrors(statusCode int, raw json.RawMessage) *PushError {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var messages []string
	if err := json.Unmarshal(raw, &messages); err == nil {
		if len(messages) == 0 {
			return nil
		}
		return &PushError{StatusCode: statusCode, Messages: messages}
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err == nil && len(keyed) > 0 {
		pushErr := &PushError{StatusCode: statusCode}
		for key := range keyed {
			pushErr.Messages = append(pushErr.Messages, key)
			if key == "invalid_player_ids" || key == "invalid_external_user_ids" {
				pushErr.InvalidDestination = true
			}
		}
		return pushErr
	}

	return &PushError{StatusCode: statusCode, Messages: []string{string(raw)}}
}
