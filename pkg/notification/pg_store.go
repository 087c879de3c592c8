package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/practicedesk/notifier/pkg/pg"
)

// PGStore is the PostgreSQL-backed Store. Idempotency rests on a partial
// unique index on (dedupe_key, user_id) where dedupe_key is not null, so
// the atomicity guarantee holds across concurrent consumer instances.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Store backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const insertNotificationSQL = `
INSERT INTO notifications (
	id, user_id, practice_id, category, entity_type, entity_id,
	title, body, link, sender_id, sender_name, severity,
	metadata, dedupe_key, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (dedupe_key, user_id) WHERE dedupe_key IS NOT NULL DO NOTHING`

func (s *PGStore) Create(ctx context.Context, params CreateParams) (CreateResult, error) {
	id := uuid.New()
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var metadata []byte
	if len(params.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(params.Metadata)
		if err != nil {
			return CreateResult{}, fmt.Errorf("marshal notification metadata: %w", err)
		}
	}

	tag, err := s.pool.Exec(ctx, insertNotificationSQL,
		id, params.UserID, nullStr(params.PracticeID), string(params.Category),
		nullStr(params.EntityType), nullStr(params.EntityID),
		params.Title, params.Body, nullStr(params.Link),
		nullStr(params.SenderID), nullStr(params.SenderName), nullStr(params.Severity),
		metadata, nullStr(params.DedupeKey), createdAt,
	)
	if err != nil {
		// A duplicate-key error can still surface here for races the
		// conflict target does not cover; fall through to the winner
		// lookup in that case.
		if !pg.IsDuplicateKeyError(err) || params.DedupeKey == "" {
			return CreateResult{}, fmt.Errorf("insert notification: %w", err)
		}
	} else if tag.RowsAffected() == 1 {
		return CreateResult{ID: id, CreatedAt: createdAt, Inserted: true}, nil
	}

	// Lost the dedupe race: return the winning row's identity.
	var winnerID uuid.UUID
	var winnerCreatedAt time.Time
	err = s.pool.QueryRow(ctx,
		`SELECT id, created_at FROM notifications WHERE dedupe_key = $1 AND user_id = $2`,
		params.DedupeKey, params.UserID,
	).Scan(&winnerID, &winnerCreatedAt)
	if err != nil {
		return CreateResult{}, fmt.Errorf("select winning notification: %w", err)
	}

	return CreateResult{ID: winnerID, CreatedAt: winnerCreatedAt, Inserted: false}, nil
}

const selectNotificationSQL = `
SELECT id, user_id, practice_id, category, entity_type, entity_id,
	title, body, link, sender_id, sender_name, severity,
	metadata, dedupe_key, created_at
FROM notifications`

func (s *PGStore) Get(ctx context.Context, userID string, id string) (*Notification, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	row := s.pool.QueryRow(ctx, selectNotificationSQL+` WHERE id = $1 AND user_id = $2`, parsed, userID)
	notif, err := scanNotification(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select notification: %w", err)
	}
	return notif, nil
}

func (s *PGStore) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	query := selectNotificationSQL + ` WHERE user_id = $1`
	args := []any{userID}

	if len(opts.Categories) > 0 {
		cats := make([]string, len(opts.Categories))
		for i, c := range opts.Categories {
			cats[i] = string(c)
		}
		args = append(args, cats)
		query += fmt.Sprintf(` AND category = ANY($%d)`, len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(` AND created_at > $%d`, len(args))
	}

	query += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifs := []Notification{}
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifs = append(notifs, *notif)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return notifs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	var (
		n                                    Notification
		practiceID, entityType, entityID     *string
		link, senderID, senderName, severity *string
		dedupeKey                            *string
		metadata                             []byte
	)

	err := row.Scan(
		&n.ID, &n.UserID, &practiceID, &n.Category, &entityType, &entityID,
		&n.Title, &n.Body, &link, &senderID, &senderName, &severity,
		&metadata, &dedupeKey, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.PracticeID = strVal(practiceID)
	n.EntityType = strVal(entityType)
	n.EntityID = strVal(entityID)
	n.Link = strVal(link)
	n.SenderID = strVal(senderID)
	n.SenderName = strVal(senderName)
	n.Severity = strVal(severity)
	n.DedupeKey = strVal(dedupeKey)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal notification metadata: %w", err)
		}
	}

	return &n, nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
