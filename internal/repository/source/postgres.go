package source

import (
	"context"

	"channelmart/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Upsert(ctx context.Context, in UpsertInput) (*domain.MonitoredSource, error) {
	const q = `
INSERT INTO monitored_sources (channel_id, post_id, category, is_used, price_kind, is_active)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, true)
ON CONFLICT (channel_id, post_id) DO UPDATE SET
    category = EXCLUDED.category,
    is_used = EXCLUDED.is_used,
    price_kind = EXCLUDED.price_kind,
    is_active = true,
    updated_at = now()
RETURNING id::text, channel_id, post_id, COALESCE(category, ''), is_used, price_kind, is_active, created_at, updated_at
`
	var s domain.MonitoredSource
	if err := r.pool.QueryRow(ctx, q,
		in.ChannelID, in.PostID, in.Category, in.IsUsed, string(in.PriceKind),
	).Scan(&s.ID, &s.ChannelID, &s.PostID, &s.Category, &s.IsUsed, &s.PriceKind, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepo) Deactivate(ctx context.Context, channelID int64, postID int) error {
	const q = `
UPDATE monitored_sources SET is_active = false, updated_at = now()
WHERE channel_id = $1 AND post_id = $2
`
	tag, err := r.pool.Exec(ctx, q, channelID, postID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ListActive(ctx context.Context, channelID int64) ([]domain.MonitoredSource, error) {
	q := `
SELECT id::text, channel_id, post_id, COALESCE(category, ''), is_used, price_kind, is_active, created_at, updated_at
FROM monitored_sources
WHERE is_active = true
`
	args := []any{}
	if channelID != 0 {
		q += ` AND channel_id = $1`
		args = append(args, channelID)
	}
	q += ` ORDER BY channel_id, post_id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MonitoredSource
	for rows.Next() {
		var s domain.MonitoredSource
		if err := rows.Scan(&s.ID, &s.ChannelID, &s.PostID, &s.Category, &s.IsUsed, &s.PriceKind, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
