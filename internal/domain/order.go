package domain

import "time"

// OrderStatus is the moderation state of an order.
//
// pending -> approved -> completed
// pending -> rejected
//
// Once a status leaves pending it is terminal except for the
// approved -> completed proof step.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderRejected  OrderStatus = "rejected"
	OrderCompleted OrderStatus = "completed"
)

// Order is one buyer request for one product line. Name and unit price are
// snapshotted at creation and never re-read from the live product.
type Order struct {
	ID                 string      `json:"id"`
	BuyerID            int64       `json:"buyerId"`
	BuyerUsername      string      `json:"buyerUsername,omitempty"`
	ProductID          string      `json:"productId"`
	ProductName        string      `json:"productName"`
	Quantity           int         `json:"quantity"`
	UnitPrice          int64       `json:"unitPrice"`
	TotalPrice         int64       `json:"totalPrice"`
	Kind               PriceKind   `json:"orderKind"`
	Status             OrderStatus `json:"status"`
	ModeratorID        *int64      `json:"moderatorId,omitempty"`
	ProofPhotoRef      *string     `json:"proofPhotoRef,omitempty"`
	ProofText          *string     `json:"proofText,omitempty"`
	DecisionMessageRef *string     `json:"decisionMessageRef,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}
