package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/practicedesk/notifier/pkg/logger"
	"github.com/practicedesk/notifier/pkg/queue"
)

// QueueHandler adapts the consumer to the queue worker: it decodes each
// claimed message's payload and hands the decoded batch to ProcessBatch.
// Undecodable payloads are logged and dropped; the worker acks them with
// the rest of the batch.
func (c *Consumer) QueueHandler() queue.BatchHandler {
	return func(ctx context.Context, msgs []queue.Message) error {
		decoded := make([]NotificationMessage, 0, len(msgs))
		for _, m := range msgs {
			var nm NotificationMessage
			if err := json.Unmarshal(m.Payload, &nm); err != nil {
				c.log.ErrorContext(ctx, "dropping undecodable queue message",
					logger.MessageID(m.ID),
					slog.String("queue", m.Queue),
					logger.Error(err))
				continue
			}
			decoded = append(decoded, nm)
		}
		if len(decoded) == 0 {
			return nil
		}
		return c.ProcessBatch(ctx, decoded)
	}
}
