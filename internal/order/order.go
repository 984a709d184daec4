// Package order defines the canonical client-side order model, the
// normalization of heterogeneous backend order payloads into it, and the
// delivery-progress tracking derived from order status.
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/agriteranga/storefront/internal/delivery"
)

// Item is a single normalized order line.
type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// Totals holds the order amounts. When the backend omits or sends
// non-positive values these are recomputed client-side, in which case
// Total always equals Subtotal + DeliveryFee.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
}

// Deliverer identifies the courier assigned to an order.
type Deliverer struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// Order is the canonical client-side view of a backend order. Its JSON form
// uses the canonical field names, which the normalizer probes first, so
// normalizing an already-normalized order is a no-op.
type Order struct {
	OrderNumber  string        `json:"orderNumber"`
	CreatedAt    time.Time     `json:"createdAt"`
	Status       Status        `json:"status"`
	Items        []Item        `json:"items"`
	Totals       Totals        `json:"totals"`
	DeliveryInfo delivery.Info `json:"deliveryInfo"`
	Deliverer    *Deliverer    `json:"deliverer,omitempty"`
	AssignmentID string        `json:"assignmentId,omitempty"`
}
