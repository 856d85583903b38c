package port

import (
	"context"

	"github.com/rl1809/order-reservation/internal/core/domain"
)

// UnitOfWorkFactory opens database transactions.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork scopes every read and write to one transaction. Nothing is visible
// to other units of work until Commit; Rollback after Commit is a no-op.
type UnitOfWork interface {
	Inventory() InventoryRepository
	Orders() OrderRepository
	Commit() error
	Rollback() error
}

// InventoryReader is the read side used for reporting and pre-flight checks.
type InventoryReader interface {
	// Get returns domain.ErrNotFound when no record exists for the product.
	Get(ctx context.Context, productID string) (*domain.InventoryRecord, error)
	List(ctx context.Context) ([]domain.InventoryRecord, error)
}

type InventoryRepository interface {
	InventoryReader

	// GetForUpdate reads the record and holds its row lock until the unit of work ends.
	GetForUpdate(ctx context.Context, productID string) (*domain.InventoryRecord, error)

	// Create inserts a new record, domain.ErrAlreadyExists if the product already has one.
	Create(ctx context.Context, record domain.InventoryRecord) error

	// Update writes the record if its stored version still equals record.Version
	// and bumps the stored version. A stale version is an error wrapping
	// domain.ErrConcurrencyConflict.
	Update(ctx context.Context, record domain.InventoryRecord) error
}

type OrderRepository interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	GetForUpdate(ctx context.Context, orderID string) (*domain.Order, error)
	Create(ctx context.Context, order domain.Order) error

	// Update is version checked like InventoryRepository.Update.
	Update(ctx context.Context, order domain.Order) error

	// ActiveQuantity sums the quantity of active orders for a product.
	ActiveQuantity(ctx context.Context, productID string) (int, error)
}
