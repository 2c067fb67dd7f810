package cart

import (
	"context"

	"channelmart/internal/domain"
)

type Repository interface {
	// Get returns the buyer's cart, or domain.ErrNotFound when none exists.
	Get(ctx context.Context, buyerID int64) (*domain.Cart, error)
	// Save persists the full line list, creating the cart on first use.
	// Last write wins across concurrent saves by the same buyer.
	Save(ctx context.Context, buyerID int64, lines []domain.CartLine) (*domain.Cart, error)
	Delete(ctx context.Context, buyerID int64) error
}
