package domain

import "time"

// PriceKind selects which price column a channel's posts populate.
type PriceKind string

const (
	PriceRetail    PriceKind = "retail"
	PriceWholesale PriceKind = "wholesale"
)

// Valid reports whether k is one of the two known kinds.
func (k PriceKind) Valid() bool {
	return k == PriceRetail || k == PriceWholesale
}

// Product is one purchasable line parsed out of a source post. Rows are
// created and mutated only by catalog reconciliation; a line that vanishes
// from the post marks the row unavailable instead of deleting it, so orders
// placed against it keep a valid reference.
type Product struct {
	ID             string            `json:"id"`
	ChannelID      int64             `json:"channelId"`
	PostID         int               `json:"postId"`
	Name           string            `json:"name"`
	Key            string            `json:"key"`
	PriceRetail    *int64            `json:"priceRetail,omitempty"`
	PriceWholesale *int64            `json:"priceWholesale,omitempty"`
	Category       string            `json:"category,omitempty"`
	IsUsed         bool              `json:"isUsed"`
	Available      bool              `json:"available"`
	OrderIndex     *int              `json:"orderIndex,omitempty"`
	ExtraAttrs     map[string]string `json:"extraAttrs,omitempty"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// Price returns the price for the given kind, or nil when unset.
func (p *Product) Price(kind PriceKind) *int64 {
	if kind == PriceWholesale {
		return p.PriceWholesale
	}
	return p.PriceRetail
}
