package domain

import "time"

// Cart holds a buyer's pending line items. One row per buyer; the line
// list is persisted whole, so the totals below are always derived.
type Cart struct {
	BuyerID   int64      `json:"buyerId"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// Total sums quantity times unit price over all lines.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.Lines {
		total += int64(l.Quantity) * l.UnitPrice
	}
	return total
}

// Count sums line quantities, not distinct positions.
func (c *Cart) Count() int {
	var n int
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}
