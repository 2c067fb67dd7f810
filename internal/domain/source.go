package domain

import "time"

// MonitoredSource is one channel post under active catalog tracking. A
// source that is removed from tracking is deactivated, never deleted.
type MonitoredSource struct {
	ID        string    `json:"id"`
	ChannelID int64     `json:"channelId"`
	PostID    int       `json:"postId"`
	Category  string    `json:"category,omitempty"`
	IsUsed    bool      `json:"isUsed"`
	PriceKind PriceKind `json:"priceKind"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
