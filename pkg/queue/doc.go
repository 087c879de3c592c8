// Package queue is the at-least-once message transport feeding the
// notification pipeline.
//
// Producers enqueue JSON payloads; a polling Worker claims batches and
// hands them to a BatchHandler. Claimed messages are locked for a bounded
// duration: if the worker dies mid-batch the lock expires and another
// worker re-claims the messages. Every claimed message is acknowledged
// after the handler returns, success or not. Handler failures are never
// requeued; redelivery happens only through lock expiry.
//
// Storage backends: PostgreSQL (FOR UPDATE SKIP LOCKED, safe for many
// concurrent worker instances) and an in-memory implementation for tests.
package queue
