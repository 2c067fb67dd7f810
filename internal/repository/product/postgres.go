package product

import (
	"context"
	"errors"
	"fmt"

	"channelmart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func priceColumn(kind domain.PriceKind) (string, error) {
	switch kind {
	case domain.PriceRetail:
		return "price_retail", nil
	case domain.PriceWholesale:
		return "price_wholesale", nil
	default:
		return "", fmt.Errorf("unknown price kind %q", kind)
	}
}

func (r *postgresRepo) ReplacePost(ctx context.Context, in ReplacePostInput) (ReplaceStats, error) {
	var stats ReplaceStats

	col, err := priceColumn(in.Kind)
	if err != nil {
		return stats, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return stats, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	existing := map[string]bool{}
	rows, err := tx.Query(ctx, `
SELECT key FROM products
WHERE channel_id = $1 AND post_id = $2 AND is_used = $3
`, in.ChannelID, in.PostID, in.IsUsed)
	if err != nil {
		return stats, fmt.Errorf("load existing keys: %w", err)
	}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return stats, err
		}
		existing[key] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	updateQ := fmt.Sprintf(`
UPDATE products SET
    name = $5,
    %s = $6,
    category = COALESCE(NULLIF($7, ''), category),
    order_index = $8,
    available = true,
    extra_attrs = COALESCE(extra_attrs, '{}'::jsonb) || COALESCE($9::jsonb, '{}'::jsonb),
    updated_at = now()
WHERE channel_id = $1 AND post_id = $2 AND key = $3 AND is_used = $4
`, col)
	insertQ := fmt.Sprintf(`
INSERT INTO products (channel_id, post_id, name, key, %s, category, is_used, available, order_index, extra_attrs)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, true, $8, $9)
`, col)

	presentKeys := make([]string, 0, len(in.Rows))
	for _, row := range in.Rows {
		presentKeys = append(presentKeys, row.Key)
		attrs := row.ExtraAttrs
		if len(attrs) == 0 {
			attrs = nil
		}
		if existing[row.Key] {
			if _, err := tx.Exec(ctx, updateQ,
				in.ChannelID, in.PostID, row.Key, in.IsUsed,
				row.Name, row.Price, in.Category, row.OrderIndex, attrs,
			); err != nil {
				return stats, fmt.Errorf("update product %q: %w", row.Key, err)
			}
			stats.Updated++
		} else {
			if _, err := tx.Exec(ctx, insertQ,
				in.ChannelID, in.PostID, row.Name, row.Key,
				row.Price, in.Category, in.IsUsed, row.OrderIndex, attrs,
			); err != nil {
				return stats, fmt.Errorf("insert product %q: %w", row.Key, err)
			}
			existing[row.Key] = true
			stats.Inserted++
		}
	}

	// An empty parse deactivates nothing: a post whose fetch came back
	// blank must not wipe its catalog.
	if len(presentKeys) > 0 {
		deactivateQ := fmt.Sprintf(`
UPDATE products SET
    available = false,
    %s = NULL,
    updated_at = now()
WHERE channel_id = $1 AND post_id = $2 AND is_used = $3
  AND available = true
  AND NOT (key = ANY($4::text[]))
`, col)
		tag, err := tx.Exec(ctx, deactivateQ, in.ChannelID, in.PostID, in.IsUsed, presentKeys)
		if err != nil {
			return stats, fmt.Errorf("deactivate absent rows: %w", err)
		}
		stats.Deactivated = int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return stats, fmt.Errorf("commit: %w", err)
	}

	r.logger.Debug("post replaced",
		zap.Int64("channel_id", in.ChannelID),
		zap.Int("post_id", in.PostID),
		zap.Int("inserted", stats.Inserted),
		zap.Int("updated", stats.Updated),
		zap.Int("deactivated", stats.Deactivated),
	)
	return stats, nil
}

const productColumns = `
id::text, channel_id, post_id, name, key, price_retail, price_wholesale,
COALESCE(category, ''), is_used, available, order_index, extra_attrs, updated_at`

func (r *postgresRepo) ListAvailable(ctx context.Context, channelID int64, postIDs []int, isUsed bool) ([]domain.Product, error) {
	q := `
SELECT ` + productColumns + `
FROM products
WHERE channel_id = $1 AND is_used = $2 AND available = true
`
	args := []any{channelID, isUsed}
	if len(postIDs) > 0 {
		q += ` AND post_id = ANY($3::int[])`
		args = append(args, postIDs)
	}
	q += ` ORDER BY post_id, order_index NULLS LAST, name`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID, &p.ChannelID, &p.PostID, &p.Name, &p.Key,
		&p.PriceRetail, &p.PriceWholesale, &p.Category, &p.IsUsed,
		&p.Available, &p.OrderIndex, &p.ExtraAttrs, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
