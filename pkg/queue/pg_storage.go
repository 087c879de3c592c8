package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStorage is the PostgreSQL queue backend. Claims use
// FOR UPDATE SKIP LOCKED so any number of worker instances can poll the
// same queue without handing out the same message twice.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a queue backend on the given connection pool.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

const insertMessageSQL = `
INSERT INTO queue_messages (id, queue, payload, status, attempts, scheduled_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (s *PGStorage) CreateMessage(ctx context.Context, msg *Message) error {
	if msg == nil {
		return ErrPayloadNil
	}
	_, err := s.pool.Exec(ctx, insertMessageSQL,
		msg.ID, msg.Queue, msg.Payload, string(msg.Status),
		msg.Attempts, msg.ScheduledAt, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert queue message: %w", err)
	}
	return nil
}

const claimBatchSQL = `
UPDATE queue_messages SET
	status = 'processing',
	attempts = attempts + 1,
	locked_until = $1,
	locked_by = $2
WHERE id IN (
	SELECT id FROM queue_messages
	WHERE queue = $3
	  AND scheduled_at <= now()
	  AND (status = 'pending' OR (status = 'processing' AND locked_until < now()))
	ORDER BY scheduled_at, created_at
	LIMIT $4
	FOR UPDATE SKIP LOCKED
)
RETURNING id, queue, payload, status, attempts, scheduled_at, locked_until, locked_by, processed_at, created_at`

func (s *PGStorage) ClaimBatch(ctx context.Context, workerID uuid.UUID, queue string, limit int, lockFor time.Duration) ([]Message, error) {
	lockedUntil := time.Now().Add(lockFor)

	rows, err := s.pool.Query(ctx, claimBatchSQL, lockedUntil, workerID, queue, limit)
	if err != nil {
		return nil, fmt.Errorf("claim queue batch: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		err := rows.Scan(
			&m.ID, &m.Queue, &m.Payload, &m.Status, &m.Attempts,
			&m.ScheduledAt, &m.LockedUntil, &m.LockedBy, &m.ProcessedAt, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan queue message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim queue batch: %w", err)
	}
	return msgs, nil
}

const ackSQL = `
UPDATE queue_messages SET
	status = 'done',
	locked_until = NULL,
	locked_by = NULL,
	processed_at = now()
WHERE id = ANY($1)`

func (s *PGStorage) Ack(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, ackSQL, ids); err != nil {
		return fmt.Errorf("ack queue messages: %w", err)
	}
	return nil
}
