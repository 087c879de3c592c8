// Package logger builds configured slog.Logger instances for the
// notification pipeline services.
//
// New constructs a logger from functional options (format, level, static
// attributes, context extractors). Attribute constructors in attr.go keep
// key naming consistent across packages, which matters for correlating a
// single event's journey through the queue consumer, channel adapters and
// delivery ledger.
//
//	log := logger.New(
//		logger.WithJSONFormat(),
//		logger.WithService("notifier"),
//	)
//	log.InfoContext(ctx, "notification stored",
//		logger.EventID(msg.EventID),
//		logger.UserID(rcpt.UserID),
//	)
package logger
