package product

import (
	"context"

	"channelmart/internal/domain"
)

// Row is one parsed product candidate to be applied to a post.
type Row struct {
	Name       string
	Key        string
	Price      int64
	OrderIndex int
	ExtraAttrs map[string]string
}

// ReplacePostInput carries everything needed to make one post's stored
// products reflect its latest parse.
type ReplacePostInput struct {
	ChannelID int64
	PostID    int
	Category  string
	IsUsed    bool
	Kind      domain.PriceKind
	Rows      []Row
}

// ReplaceStats summarizes one reconciliation write-set.
type ReplaceStats struct {
	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	Deactivated int `json:"deactivated"`
}

type Repository interface {
	// ReplacePost applies a post's parsed rows in a single transaction:
	// present rows are inserted or updated, rows whose key is absent are
	// soft-deactivated with their price for the post's kind cleared.
	ReplacePost(ctx context.Context, in ReplacePostInput) (ReplaceStats, error)

	// ListAvailable returns available products for a channel and condition,
	// optionally narrowed to specific posts, in source display order.
	ListAvailable(ctx context.Context, channelID int64, postIDs []int, isUsed bool) ([]domain.Product, error)

	GetByID(ctx context.Context, id string) (*domain.Product, error)
}
