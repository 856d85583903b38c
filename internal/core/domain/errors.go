package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrNotAvailableForSale = errors.New("product not available for sale")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrConcurrencyConflict = errors.New("concurrent modification, retry the operation")
	ErrAlreadyCancelled    = errors.New("order already cancelled")
	ErrAlreadyExists       = errors.New("already exists")
	ErrDuplicateRequest    = errors.New("duplicate request")
)

// StockError is a reservation rejection. It unwraps to ErrInsufficientStock or
// ErrNotAvailableForSale and carries what the caller needs to adjust and retry.
type StockError struct {
	Reason    error
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v: product %s requested %d available %d", e.Reason, e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return e.Reason
}

func NewInsufficientStock(productID string, requested, available int) *StockError {
	return &StockError{Reason: ErrInsufficientStock, ProductID: productID, Requested: requested, Available: available}
}

func NewNotAvailableForSale(productID string, requested, available int) *StockError {
	return &StockError{Reason: ErrNotAvailableForSale, ProductID: productID, Requested: requested, Available: available}
}

// NotFoundError names the missing entity ("order", "product", "customer", "inventory").
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}
