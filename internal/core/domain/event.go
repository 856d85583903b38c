package domain

import "time"

type OrderEventType string

const (
	OrderEventCreated   OrderEventType = "order.created"
	OrderEventUpdated   OrderEventType = "order.updated"
	OrderEventCancelled OrderEventType = "order.cancelled"
)

// OrderEvent is emitted after a unit of work commits.
type OrderEvent struct {
	Type       OrderEventType `json:"type"`
	OrderID    string         `json:"order_id"`
	CustomerID string         `json:"customer_id"`
	ProductID  string         `json:"product_id"`
	Quantity   int            `json:"quantity"`
	// Previous* are set on updates only.
	PreviousProductID string    `json:"previous_product_id,omitempty"`
	PreviousQuantity  int       `json:"previous_quantity,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func NewOrderEvent(t OrderEventType, o Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:       t,
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		ProductID:  o.ProductID,
		Quantity:   o.Quantity,
		OccurredAt: at,
	}
}
