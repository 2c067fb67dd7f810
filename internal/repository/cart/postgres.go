package cart

import (
	"context"
	"errors"

	"channelmart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Get(ctx context.Context, buyerID int64) (*domain.Cart, error) {
	const q = `
SELECT buyer_id, lines, created_at, updated_at
FROM carts
WHERE buyer_id = $1
`
	var c domain.Cart
	err := r.pool.QueryRow(ctx, q, buyerID).Scan(&c.BuyerID, &c.Lines, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) Save(ctx context.Context, buyerID int64, lines []domain.CartLine) (*domain.Cart, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	const q = `
INSERT INTO carts (buyer_id, lines)
VALUES ($1, $2)
ON CONFLICT (buyer_id) DO UPDATE SET
    lines = EXCLUDED.lines,
    updated_at = now()
RETURNING buyer_id, lines, created_at, updated_at
`
	var c domain.Cart
	if err := r.pool.QueryRow(ctx, q, buyerID, lines).Scan(&c.BuyerID, &c.Lines, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) Delete(ctx context.Context, buyerID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE buyer_id = $1`, buyerID)
	return err
}
