package deliverylog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRecorder is the PostgreSQL-backed Recorder.
type PGRecorder struct {
	pool *pgxpool.Pool
}

// NewPGRecorder creates a Recorder backed by the given connection pool.
func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

func (r *PGRecorder) Record(ctx context.Context, rec Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var errMsg, extUserID *string
	if rec.ErrorMessage != "" {
		errMsg = &rec.ErrorMessage
	}
	if rec.ExternalUserID != "" {
		extUserID = &rec.ExternalUserID
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO delivery_records (
			id, notification_id, user_id, channel, provider, status,
			error_message, external_user_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.NotificationID, rec.UserID, string(rec.Channel),
		rec.Provider, string(rec.Status), errMsg, extUserID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}

func (r *PGRecorder) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, notification_id, user_id, channel, provider, status,
			error_message, external_user_id, created_at
		 FROM delivery_records
		 WHERE notification_id = $1
		 ORDER BY created_at ASC`,
		notificationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list delivery records: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			rec               Record
			errMsg, extUserID *string
		)
		err := rows.Scan(
			&rec.ID, &rec.NotificationID, &rec.UserID, &rec.Channel,
			&rec.Provider, &rec.Status, &errMsg, &extUserID, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan delivery record: %w", err)
		}
		if errMsg != nil {
			rec.ErrorMessage = *errMsg
		}
		if extUserID != nil {
			rec.ExternalUserID = *extUserID
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list delivery records: %w", err)
	}

	return out, nil
}
