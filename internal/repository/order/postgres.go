package order

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

const orderColumns = `
id::text, buyer_id, COALESCE(buyer_username, ''), product_id::text, product_name,
quantity, unit_price, total_price, order_kind, status, moderator_id,
proof_photo_ref, proof_text, decision_message_ref, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	q := `
INSERT INTO orders (buyer_id, buyer_username, product_id, product_name, quantity, unit_price, total_price, order_kind, status)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, 'pending')
RETURNING ` + orderColumns
	return scanOrder(r.pool.QueryRow(ctx, q,
		in.BuyerID, in.BuyerUsername, in.ProductID, in.ProductName,
		in.Quantity, in.UnitPrice, in.TotalPrice, string(in.Kind),
	))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) SetDecisionMessageRef(ctx context.Context, id, ref string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE orders SET decision_message_ref = $2, updated_at = now() WHERE id = $1
`, id, ref)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Decide(ctx context.Context, id string, moderatorID int64, to domain.OrderStatus) (*domain.Order, error) {
	if to != domain.OrderApproved && to != domain.OrderRejected {
		return nil, errors.New("decide: target status must be approved or rejected")
	}
	q := `
UPDATE orders SET status = $2, moderator_id = $3, updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING ` + orderColumns
	return r.guardedUpdate(ctx, id, q, string(to), moderatorID)
}

func (r *postgresRepo) CompleteWithProof(ctx context.Context, id, photoRef string, proofText string) (*domain.Order, error) {
	q := `
UPDATE orders SET status = 'completed', proof_photo_ref = $2, proof_text = NULLIF($3, ''), updated_at = now()
WHERE id = $1 AND status = 'approved'
RETURNING ` + orderColumns
	return r.guardedUpdate(ctx, id, q, photoRef, proofText)
}

func (r *postgresRepo) CompleteWithoutProof(ctx context.Context, id string) (*domain.Order, error) {
	q := `
UPDATE orders SET status = 'completed', updated_at = now()
WHERE id = $1 AND status = 'approved'
RETURNING ` + orderColumns
	return r.guardedUpdate(ctx, id, q)
}

// guardedUpdate runs a status-guarded update; a miss is ErrAlreadyDecided
// when the order exists and ErrNotFound when it does not.
func (r *postgresRepo) guardedUpdate(ctx context.Context, id, q string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, q, append([]any{id}, args...)...))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAlreadyDecided
	}
	return nil, domain.ErrNotFound
}

func (r *postgresRepo) ListPending(ctx context.Context) ([]domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE status = 'pending' ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID, &o.BuyerID, &o.BuyerUsername, &o.ProductID, &o.ProductName,
		&o.Quantity, &o.UnitPrice, &o.TotalPrice, &o.Kind, &o.Status,
		&o.ModeratorID, &o.ProofPhotoRef, &o.ProofText, &o.DecisionMessageRef,
		&o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}
