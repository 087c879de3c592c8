package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WorkerStorage is what a Worker needs from its backend.
type WorkerStorage interface {
	// ClaimBatch atomically locks up to limit due messages on queue for
	// lockFor and returns them. Messages whose previous lock expired are
	// claimable again.
	ClaimBatch(ctx context.Context, workerID uuid.UUID, queue string, limit int, lockFor time.Duration) ([]Message, error)

	// Ack marks the given messages done.
	Ack(ctx context.Context, ids []uuid.UUID) error
}

// BatchHandler processes one claimed batch. A returned error is logged
// but the batch is still acknowledged.
type BatchHandler func(ctx context.Context, msgs []Message) error

// Worker polls storage for due messages and dispatches them to a handler.
type Worker struct {
	storage WorkerStorage
	handler BatchHandler
	log     *slog.Logger

	id           uuid.UUID
	queue        string
	pollInterval time.Duration
	lockTimeout  time.Duration
	batchSize    int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerOption customizes a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the worker's logger.
func WithWorkerLogger(log *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if log != nil {
			w.log = log
		}
	}
}

// WithWorkerQueue sets the queue to poll.
func WithWorkerQueue(name string) WorkerOption {
	return func(w *Worker) {
		if name != "" {
			w.queue = name
		}
	}
}

// WithPollInterval sets how often the worker polls when idle.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithLockTimeout sets how long claimed messages stay locked.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.lockTimeout = d
		}
	}
}

// WithBatchSize sets the maximum batch size per claim.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// NewWorker creates a polling worker.
func NewWorker(storage WorkerStorage, handler BatchHandler, opts ...WorkerOption) (*Worker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if handler == nil {
		return nil, ErrHandlerNil
	}
	w := &Worker{
		storage:      storage,
		handler:      handler,
		log:          slog.Default(),
		id:           uuid.New(),
		queue:        DefaultQueueName,
		pollInterval: 2 * time.Second,
		lockTimeout:  2 * time.Minute,
		batchSize:    10,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start launches the polling loop. It returns immediately; the loop runs
// until Stop is called or ctx is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx, w.done)
	return nil
}

// Stop cancels the polling loop and waits for the in-flight batch to
// finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	<-done
	return nil
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	w.log.InfoContext(ctx, "queue worker started",
		slog.String("worker_id", w.id.String()),
		slog.String("queue", w.queue))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		// Drain the queue before going back to sleep.
		for w.processBatch(ctx) {
		}

		select {
		case <-ctx.Done():
			w.log.InfoContext(ctx, "queue worker stopped",
				slog.String("worker_id", w.id.String()))
			return
		case <-ticker.C:
		}
	}
}

// processBatch claims and handles one batch. It reports whether a full
// batch was claimed, meaning more messages are likely waiting.
func (w *Worker) processBatch(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	msgs, err := w.storage.ClaimBatch(ctx, w.id, w.queue, w.batchSize, w.lockTimeout)
	if err != nil {
		if ctx.Err() == nil {
			w.log.ErrorContext(ctx, "failed to claim batch",
				slog.String("queue", w.queue),
				slog.Any("error", err))
		}
		return false
	}
	if len(msgs) == 0 {
		return false
	}

	if err := w.handle(ctx, msgs); err != nil {
		w.log.ErrorContext(ctx, "batch handler failed",
			slog.String("queue", w.queue),
			slog.Int("count", len(msgs)),
			slog.Any("error", err))
	}

	ids := make([]uuid.UUID, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	// Acked regardless of the handler outcome.
	if err := w.storage.Ack(ctx, ids); err != nil {
		w.log.ErrorContext(ctx, "failed to ack batch",
			slog.String("queue", w.queue),
			slog.Int("count", len(ids)),
			slog.Any("error", err))
	}

	return len(msgs) == w.batchSize
}

func (w *Worker) handle(ctx context.Context, msgs []Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch handler panicked: %v", r)
		}
	}()
	return w.handler(ctx, msgs)
}
