// Package consumer orchestrates the notification pipeline: for every
// queued event and every addressed recipient it filters by preference,
// idempotently stores the notification, publishes the live update, and
// attempts best-effort email and push delivery with per-channel outcome
// recording.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/practicedesk/notifier/pkg/deliverylog"
	"github.com/practicedesk/notifier/pkg/destination"
	"github.com/practicedesk/notifier/pkg/logger"
	"github.com/practicedesk/notifier/pkg/notification"
	"github.com/practicedesk/notifier/pkg/provider"
	"github.com/practicedesk/notifier/pkg/realtime"
)

var (
	// ErrNilDependency is returned by New when a required collaborator is
	// missing.
	ErrNilDependency = errors.New("consumer: nil dependency")

	// ErrBatchHadFailures signals that at least one recipient failed.
	// Callers still acknowledge the batch.
	ErrBatchHadFailures = errors.New("consumer: batch had failures")
)

// Consumer drives the per-recipient delivery pipeline.
type Consumer struct {
	store    notification.Store
	hub      realtime.Hub
	recorder deliverylog.Recorder
	registry destination.Registry
	email    provider.EmailSender
	push     provider.PushSender
	log      *slog.Logger
}

// Option customizes a Consumer.
type Option func(*Consumer)

// WithLogger sets the consumer's logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Consumer) {
		if log != nil {
			c.log = log
		}
	}
}

// New wires the pipeline. All collaborators are required; unconfigured
// channels are expressed by adapters whose Enabled() is false, not by nil.
func New(
	store notification.Store,
	hub realtime.Hub,
	recorder deliverylog.Recorder,
	registry destination.Registry,
	email provider.EmailSender,
	push provider.PushSender,
	opts ...Option,
) (*Consumer, error) {
	if store == nil || hub == nil || recorder == nil || registry == nil || email == nil || push == nil {
		return nil, ErrNilDependency
	}
	c := &Consumer{
		store:    store,
		hub:      hub,
		recorder: recorder,
		registry: registry,
		email:    email,
		push:     push,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ProcessBatch runs every message and recipient through the pipeline.
// Recipients are isolated: one failure never stops the others. The only
// possible error is ErrBatchHadFailures, which flags partial failure for
// logging; the caller acknowledges the batch either way.
func (c *Consumer) ProcessBatch(ctx context.Context, msgs []NotificationMessage) error {
	hadFailures := false
	for _, msg := range msgs {
		if err := c.processMessage(ctx, msg); err != nil {
			hadFailures = true
		}
	}
	if hadFailures {
		return ErrBatchHadFailures
	}
	return nil
}

func (c *Consumer) processMessage(ctx context.Context, msg NotificationMessage) error {
	mentioned := msg.MentionedUserIDs()

	hadFailures := false
	for _, recipient := range msg.Recipients {
		if skip := c.filtered(msg, recipient, mentioned); skip {
			continue
		}
		if err := c.processRecipient(ctx, msg, recipient); err != nil {
			hadFailures = true
			c.log.ErrorContext(ctx, "recipient processing failed",
				logger.EventID(msg.EventID),
				logger.UserID(recipient.UserID),
				logger.Category(string(msg.Category)),
				logger.Error(err))
		}
	}
	if hadFailures {
		return ErrBatchHadFailures
	}
	return nil
}

// filtered applies preference filtering: mentions-only recipients skip
// category "message" events unless explicitly mentioned. All other
// categories bypass the filter.
func (c *Consumer) filtered(msg NotificationMessage, recipient RecipientSnapshot, mentioned map[string]struct{}) bool {
	if msg.Category != notification.CategoryMessage {
		return false
	}
	if !recipient.Preferences.MentionsOnly {
		return false
	}
	_, isMentioned := mentioned[recipient.UserID]
	return !isMentioned
}

func (c *Consumer) processRecipient(ctx context.Context, msg NotificationMessage, recipient RecipientSnapshot) error {
	res, err := c.store.Create(ctx, notification.CreateParams{
		UserID:     recipient.UserID,
		PracticeID: msg.PracticeID,
		Category:   msg.Category,
		EntityType: msg.EntityType,
		EntityID:   msg.EntityID,
		Title:      msg.Title,
		Body:       msg.Body,
		Link:       msg.Link,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Severity:   msg.Severity,
		Metadata:   msg.Metadata,
		DedupeKey:  msg.DedupeKey,
		CreatedAt:  msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	// The idempotency boundary: an existing row means this event already
	// ran for this recipient (queue redelivery or a repeat batch). No
	// second publish, no channel attempts.
	if !res.Inserted {
		c.log.DebugContext(ctx, "duplicate notification skipped",
			logger.EventID(msg.EventID),
			logger.UserID(recipient.UserID),
			logger.DedupeKey(msg.DedupeKey))
		return nil
	}

	if err := c.hub.Publish(ctx, recipient.UserID, realtime.Event{
		Type:           realtime.EventTypeNotification,
		NotificationID: res.ID.String(),
		Category:       string(msg.Category),
		CreatedAt:      res.CreatedAt,
		Title:          msg.Title,
	}); err != nil {
		c.log.ErrorContext(ctx, "live publish failed",
			logger.EventID(msg.EventID),
			logger.UserID(recipient.UserID),
			logger.NotificationID(res.ID.String()),
			logger.Error(err))
	}

	payload := provider.Message{
		Title: msg.Title,
		Body:  msg.Body,
		URL:   msg.Link,
		Data: map[string]any{
			"notificationId": res.ID.String(),
			"category":       string(msg.Category),
		},
	}

	// Email and push are order-insensitive and side-effect-isolated, so
	// they run in parallel. Each records its own outcome.
	var wg sync.WaitGroup
	if c.emailWanted(recipient) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.deliverEmail(ctx, msg, recipient, res, payload)
		}()
	}
	if c.pushWanted(recipient) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.deliverPush(ctx, msg, recipient, res, payload)
		}()
	}
	wg.Wait()

	return nil
}

func (c *Consumer) emailWanted(recipient RecipientSnapshot) bool {
	return c.email.Enabled() && recipient.Preferences.EmailEnabled && recipient.Email != ""
}

func (c *Consumer) pushWanted(recipient RecipientSnapshot) bool {
	return c.push.Enabled() &&
		(recipient.Preferences.PushEnabled || recipient.Preferences.DesktopPushEnabled)
}

func (c *Consumer) deliverEmail(ctx context.Context, msg NotificationMessage, recipient RecipientSnapshot, res notification.CreateResult, payload provider.Message) {
	err := c.email.Send(ctx, recipient.Email, payload)

	rec := deliverylog.Record{
		NotificationID: res.ID,
		UserID:         recipient.UserID,
		Channel:        deliverylog.ChannelEmail,
		Provider:       c.email.Name(),
		Status:         deliverylog.StatusSuccess,
	}
	if err != nil {
		rec.Status = deliverylog.StatusFailure
		rec.ErrorMessage = err.Error()
		c.log.ErrorContext(ctx, "email delivery failed",
			logger.EventID(msg.EventID),
			logger.UserID(recipient.UserID),
			logger.NotificationID(res.ID.String()),
			logger.Provider(c.email.Name()),
			logger.Error(err))
	}
	c.record(ctx, msg, rec)
}

func (c *Consumer) deliverPush(ctx context.Context, msg NotificationMessage, recipient RecipientSnapshot, res notification.CreateResult, payload provider.Message) {
	err := c.push.Send(ctx, recipient.UserID, payload)

	rec := deliverylog.Record{
		NotificationID: res.ID,
		UserID:         recipient.UserID,
		Channel:        deliverylog.ChannelPush,
		Provider:       c.push.Name(),
		Status:         deliverylog.StatusSuccess,
		ExternalUserID: recipient.UserID,
	}
	if err != nil {
		rec.Status = deliverylog.StatusFailure
		rec.ErrorMessage = err.Error()

		if isDestinationInvalid(err) {
			count, derr := c.registry.DisableForUser(ctx, recipient.UserID)
			if derr != nil {
				c.log.ErrorContext(ctx, "destination cleanup failed",
					logger.EventID(msg.EventID),
					logger.UserID(recipient.UserID),
					logger.Error(derr))
			} else if count > 0 {
				c.log.InfoContext(ctx, "disabled invalid destinations",
					logger.EventID(msg.EventID),
					logger.UserID(recipient.UserID),
					logger.Count(int(count)))
			}
		}

		c.log.ErrorContext(ctx, "push delivery failed",
			logger.EventID(msg.EventID),
			logger.UserID(recipient.UserID),
			logger.NotificationID(res.ID.String()),
			logger.Provider(c.push.Name()),
			logger.Error(err))
	}
	c.record(ctx, msg, rec)
}

// record appends a delivery outcome. Recorder failures never abort the
// channel flow.
func (c *Consumer) record(ctx context.Context, msg NotificationMessage, rec deliverylog.Record) {
	if err := c.recorder.Record(ctx, rec); err != nil {
		c.log.ErrorContext(ctx, "failed to record delivery outcome",
			logger.EventID(msg.EventID),
			logger.UserID(rec.UserID),
			logger.Channel(string(rec.Channel)),
			logger.Error(err))
	}
}
