package destination

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRegistry is the PostgreSQL-backed Registry. The (provider, provider_id)
// unique constraint carries the upsert; disables are plain conditional
// updates, naturally idempotent.
type PGRegistry struct {
	pool *pgxpool.Pool
}

// NewPGRegistry creates a Registry backed by the given connection pool.
func NewPGRegistry(pool *pgxpool.Pool) *PGRegistry {
	return &PGRegistry{pool: pool}
}

const upsertDestinationSQL = `
INSERT INTO destinations (
	id, user_id, provider, provider_id, platform, external_user_id,
	user_agent, created_at, updated_at, last_seen_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now(), now())
ON CONFLICT (provider, provider_id) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	platform = EXCLUDED.platform,
	external_user_id = EXCLUDED.external_user_id,
	user_agent = COALESCE(EXCLUDED.user_agent, destinations.user_agent),
	updated_at = now(),
	last_seen_at = now(),
	disabled_at = NULL
RETURNING id, user_id, provider, provider_id, platform, external_user_id,
	user_agent, created_at, updated_at, last_seen_at, disabled_at`

func (r *PGRegistry) Upsert(ctx context.Context, params UpsertParams) (Destination, error) {
	provider := params.Provider
	if provider == "" {
		provider = DefaultProvider
	}

	var userAgent *string
	if params.UserAgent != "" {
		userAgent = &params.UserAgent
	}

	var (
		dest   Destination
		scanUA *string
	)
	err := r.pool.QueryRow(ctx, upsertDestinationSQL,
		uuid.New(), params.UserID, provider, params.ProviderID,
		params.Platform, params.ExternalUserID, userAgent,
	).Scan(
		&dest.ID, &dest.UserID, &dest.Provider, &dest.ProviderID,
		&dest.Platform, &dest.ExternalUserID, &scanUA,
		&dest.CreatedAt, &dest.UpdatedAt, &dest.LastSeenAt, &dest.DisabledAt,
	)
	if err != nil {
		return Destination{}, fmt.Errorf("upsert destination: %w", err)
	}
	if scanUA != nil {
		dest.UserAgent = *scanUA
	}

	return dest, nil
}

func (r *PGRegistry) DisableForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE destinations SET disabled_at = now(), updated_at = now()
		 WHERE user_id = $1 AND disabled_at IS NULL`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("disable destinations for user: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PGRegistry) Disable(ctx context.Context, providerID, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE destinations SET disabled_at = now(), updated_at = now()
		 WHERE provider_id = $1 AND user_id = $2 AND disabled_at IS NULL`,
		providerID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("disable destination: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PGRegistry) ListEnabled(ctx context.Context, userID string) ([]Destination, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, provider, provider_id, platform, external_user_id,
			user_agent, created_at, updated_at, last_seen_at, disabled_at
		 FROM destinations
		 WHERE user_id = $1 AND disabled_at IS NULL
		 ORDER BY last_seen_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list enabled destinations: %w", err)
	}
	defer rows.Close()

	out := []Destination{}
	for rows.Next() {
		var (
			dest   Destination
			scanUA *string
		)
		err := rows.Scan(
			&dest.ID, &dest.UserID, &dest.Provider, &dest.ProviderID,
			&dest.Platform, &dest.ExternalUserID, &scanUA,
			&dest.CreatedAt, &dest.UpdatedAt, &dest.LastSeenAt, &dest.DisabledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan destination: %w", err)
		}
		if scanUA != nil {
			dest.UserAgent = *scanUA
		}
		out = append(out, dest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list enabled destinations: %w", err)
	}

	return out, nil
}
