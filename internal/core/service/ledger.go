package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/port"
)

// StockLedger is the only code path that changes QuantityOnHand. Every mutation
// re-reads the record under its row lock inside the caller's unit of work.
type StockLedger struct {
	now func() time.Time
}

func NewStockLedger() *StockLedger {
	return &StockLedger{now: time.Now}
}

// TryReserve decrements stock by quantity or rejects with a *domain.StockError.
func (l *StockLedger) TryReserve(ctx context.Context, uow port.UnitOfWork, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	rec, err := l.lockActive(ctx, uow, productID)
	if err != nil {
		return err
	}

	if !rec.IsAvailableForSale {
		return domain.NewNotAvailableForSale(productID, quantity, rec.QuantityOnHand)
	}
	if rec.QuantityOnHand < quantity {
		return domain.NewInsufficientStock(productID, quantity, rec.QuantityOnHand)
	}

	rec.QuantityOnHand -= quantity
	return l.write(ctx, uow, rec)
}

// Release returns previously reserved stock. It never rejects on availability
// and credits retired records too.
func (l *StockLedger) Release(ctx context.Context, uow port.UnitOfWork, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	rec, err := uow.Inventory().GetForUpdate(ctx, productID)
	if err != nil {
		return fmt.Errorf("release %s: %w", productID, err)
	}

	rec.QuantityOnHand += quantity
	return l.write(ctx, uow, rec)
}

// ReadAvailable has no side effects and takes no locks.
func (l *StockLedger) ReadAvailable(ctx context.Context, reader port.InventoryReader, productID string) (domain.Availability, error) {
	rec, err := reader.Get(ctx, productID)
	if err != nil {
		return domain.Availability{}, err
	}
	if rec.IsDeleted {
		return domain.Availability{}, domain.NewNotFound("inventory", productID)
	}
	return rec.Availability(), nil
}

// LockInOrder takes the row locks of the given products in ascending ID order.
// Transactions touching several products call it first so they cannot deadlock.
func (l *StockLedger) LockInOrder(ctx context.Context, uow port.UnitOfWork, productIDs ...string) error {
	ids := make([]string, 0, len(productIDs))
	seen := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, err := uow.Inventory().GetForUpdate(ctx, id); err != nil {
			return fmt.Errorf("lock %s: %w", id, err)
		}
	}
	return nil
}

// Open creates the stock record of a product.
func (l *StockLedger) Open(ctx context.Context, uow port.UnitOfWork, productID string, quantity int, available bool) (*domain.InventoryRecord, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	now := l.now()
	rec := domain.InventoryRecord{
		ProductID:          productID,
		QuantityOnHand:     quantity,
		IsAvailableForSale: available,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := uow.Inventory().Create(ctx, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetLevel overwrites the administrative stock level and sale flag.
func (l *StockLedger) SetLevel(ctx context.Context, uow port.UnitOfWork, productID string, quantity int, available bool) (*domain.InventoryRecord, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	rec, err := l.lockActive(ctx, uow, productID)
	if err != nil {
		return nil, err
	}

	rec.QuantityOnHand = quantity
	rec.IsAvailableForSale = available
	if err := l.write(ctx, uow, rec); err != nil {
		return nil, err
	}
	rec.Version++
	return rec, nil
}

// Retire soft-deletes the record. Quantity is left as is.
func (l *StockLedger) Retire(ctx context.Context, uow port.UnitOfWork, productID string) error {
	rec, err := l.lockActive(ctx, uow, productID)
	if err != nil {
		return err
	}

	rec.IsDeleted = true
	return l.write(ctx, uow, rec)
}

func (l *StockLedger) lockActive(ctx context.Context, uow port.UnitOfWork, productID string) (*domain.InventoryRecord, error) {
	rec, err := uow.Inventory().GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if rec.IsDeleted {
		return nil, domain.NewNotFound("inventory", productID)
	}
	return rec, nil
}

func (l *StockLedger) write(ctx context.Context, uow port.UnitOfWork, rec *domain.InventoryRecord) error {
	if rec.QuantityOnHand < 0 {
		return domain.NewInsufficientStock(rec.ProductID, 0, rec.QuantityOnHand)
	}

	rec.UpdatedAt = l.now()
	if err := uow.Inventory().Update(ctx, *rec); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		return fmt.Errorf("update inventory %s: %w", rec.ProductID, err)
	}
	return nil
}
