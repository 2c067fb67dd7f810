package order

import (
	"context"

	"channelmart/internal/domain"
)

// CreateInput carries the snapshotted fields of a new pending order.
type CreateInput struct {
	BuyerID       int64
	BuyerUsername string
	ProductID     string
	ProductName   string
	Quantity      int
	UnitPrice     int64
	TotalPrice    int64
	Kind          domain.PriceKind
}

// Repository persists orders. The transition methods are guarded
// conditional updates: the status check and the mutation execute as one
// statement, so under concurrent moderator actions exactly one caller
// wins and the rest get domain.ErrAlreadyDecided.
type Repository interface {
	Create(ctx context.Context, in CreateInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	SetDecisionMessageRef(ctx context.Context, id, ref string) error

	// Decide moves a pending order to approved or rejected.
	Decide(ctx context.Context, id string, moderatorID int64, to domain.OrderStatus) (*domain.Order, error)

	// CompleteWithProof moves an approved order to completed, recording the
	// proof photo and optional extracted text.
	CompleteWithProof(ctx context.Context, id, photoRef string, proofText string) (*domain.Order, error)

	// CompleteWithoutProof moves an approved order to completed with no
	// proof recorded.
	CompleteWithoutProof(ctx context.Context, id string) (*domain.Order, error)

	ListPending(ctx context.Context) ([]domain.Order, error)
}
