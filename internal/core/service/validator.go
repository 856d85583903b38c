package service

import (
	"context"
	"fmt"

	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/port"
)

// ReservationValidator runs the read-only admissibility checks that let a
// request fail fast with a domain error before anything is written. The ledger
// still re-checks under lock when it mutates.
type ReservationValidator struct {
	catalog port.Catalog
	ledger  *StockLedger
}

func NewReservationValidator(catalog port.Catalog, ledger *StockLedger) *ReservationValidator {
	return &ReservationValidator{catalog: catalog, ledger: ledger}
}

func (v *ReservationValidator) ValidateCreate(ctx context.Context, uow port.UnitOfWork, cmd domain.CreateOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	ok, err := v.catalog.CustomerExists(ctx, cmd.CustomerID)
	if err != nil {
		return fmt.Errorf("check customer: %w", err)
	}
	if !ok {
		return domain.NewNotFound("customer", cmd.CustomerID)
	}

	if err := v.requireProduct(ctx, cmd.ProductID); err != nil {
		return err
	}

	avail, err := v.ledger.ReadAvailable(ctx, uow.Inventory(), cmd.ProductID)
	if err != nil {
		return err
	}
	return checkAvailability(avail, cmd.Quantity, 0)
}

// ValidateUpdate returns the order being edited. When the product is unchanged
// the order's own reservation counts as available.
func (v *ReservationValidator) ValidateUpdate(ctx context.Context, uow port.UnitOfWork, cmd domain.UpdateOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	order, err := uow.Orders().Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order.IsCancelled() {
		return nil, domain.NewNotFound("order", cmd.OrderID)
	}

	if err := v.requireProduct(ctx, cmd.ProductID); err != nil {
		return nil, err
	}

	avail, err := v.ledger.ReadAvailable(ctx, uow.Inventory(), cmd.ProductID)
	if err != nil {
		return nil, err
	}

	credit := 0
	if order.ProductID == cmd.ProductID {
		credit = order.Quantity
	}
	if err := checkAvailability(avail, cmd.Quantity, credit); err != nil {
		return nil, err
	}
	return order, nil
}

func (v *ReservationValidator) ValidateDelete(ctx context.Context, uow port.UnitOfWork, cmd domain.DeleteOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	order, err := uow.Orders().Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order.IsCancelled() {
		return nil, fmt.Errorf("order %s: %w", cmd.OrderID, domain.ErrAlreadyCancelled)
	}
	return order, nil
}

func (v *ReservationValidator) requireProduct(ctx context.Context, productID string) error {
	ok, err := v.catalog.ProductExists(ctx, productID)
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return domain.NewNotFound("product", productID)
	}
	return nil
}

func checkAvailability(avail domain.Availability, requested, credit int) error {
	available := avail.QuantityOnHand + credit
	if !avail.IsAvailableForSale {
		return domain.NewNotAvailableForSale(avail.ProductID, requested, available)
	}
	if available < requested {
		return domain.NewInsufficientStock(avail.ProductID, requested, available)
	}
	return nil
}
