package source

import (
	"context"

	"channelmart/internal/domain"
)

// UpsertInput registers or reactivates a monitored source post.
type UpsertInput struct {
	ChannelID int64
	PostID    int
	Category  string
	IsUsed    bool
	PriceKind domain.PriceKind
}

type Repository interface {
	Upsert(ctx context.Context, in UpsertInput) (*domain.MonitoredSource, error)
	// Deactivate stops tracking a source without deleting it.
	Deactivate(ctx context.Context, channelID int64, postID int) error
	ListActive(ctx context.Context, channelID int64) ([]domain.MonitoredSource, error)
}
