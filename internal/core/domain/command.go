package domain

import "errors"

var errMissingField = errors.New("missing required field")

type CreateOrderCommand struct {
	// RequestID is optional; when set, replays of the same request are rejected.
	RequestID  string
	CustomerID string
	ProductID  string
	Quantity   int
}

func (c CreateOrderCommand) Validate() error {
	if c.CustomerID == "" || c.ProductID == "" {
		return errMissingField
	}
	if c.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

type UpdateOrderCommand struct {
	OrderID   string
	ProductID string
	Quantity  int
}

func (c UpdateOrderCommand) Validate() error {
	if c.OrderID == "" || c.ProductID == "" {
		return errMissingField
	}
	if c.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

type DeleteOrderCommand struct {
	OrderID string
}

func (c DeleteOrderCommand) Validate() error {
	if c.OrderID == "" {
		return errMissingField
	}
	return nil
}

type OpenInventoryCommand struct {
	ProductID          string
	QuantityOnHand     int
	IsAvailableForSale bool
}

func (c OpenInventoryCommand) Validate() error {
	if c.ProductID == "" {
		return errMissingField
	}
	if c.QuantityOnHand < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

type SetStockCommand struct {
	ProductID          string
	QuantityOnHand     int
	IsAvailableForSale bool
}

func (c SetStockCommand) Validate() error {
	if c.ProductID == "" {
		return errMissingField
	}
	if c.QuantityOnHand < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// IsMissingField reports whether err came from a command missing an identifier.
func IsMissingField(err error) bool {
	return errors.Is(err, errMissingField)
}
