package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID          string
	OrderNumber string
	CustomerID  string
	ProductID   string
	Quantity    int
	Status      OrderStatus
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder builds an active order. Stock must already be reserved by the caller.
func NewOrder(customerID, productID string, quantity int, now time.Time) Order {
	id := uuid.New().String()
	return Order{
		ID:          id,
		OrderNumber: fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(id[:8])),
		CustomerID:  customerID,
		ProductID:   productID,
		Quantity:    quantity,
		Status:      OrderStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (o Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}
