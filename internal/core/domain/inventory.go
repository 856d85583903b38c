package domain

import "time"

// InventoryRecord is the single stock counter kept for a product.
type InventoryRecord struct {
	ProductID          string
	QuantityOnHand     int
	IsAvailableForSale bool
	Version            int // optimistic locking
	IsDeleted          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Availability is the read-only view returned to callers.
type Availability struct {
	ProductID          string `json:"product_id"`
	QuantityOnHand     int    `json:"quantity_on_hand"`
	IsAvailableForSale bool   `json:"is_available_for_sale"`
}

func (r InventoryRecord) Availability() Availability {
	return Availability{
		ProductID:          r.ProductID,
		QuantityOnHand:     r.QuantityOnHand,
		IsAvailableForSale: r.IsAvailableForSale,
	}
}

type InventoryReportItem struct {
	ProductID          string `json:"product_id"`
	QuantityOnHand     int    `json:"quantity_on_hand"`
	IsAvailableForSale bool   `json:"is_available_for_sale"`
	ReservedByOrders   int    `json:"reserved_by_orders"`
}

type InventoryReport struct {
	Items         []InventoryReportItem `json:"items"`
	TotalProducts int                   `json:"total_products"`
	OutOfStock    int                   `json:"out_of_stock"`
}
