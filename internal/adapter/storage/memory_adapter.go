package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/port"
)

// MemoryAdapter is an in-process UnitOfWorkFactory. Writes are staged per unit
// of work and applied on Commit; row locks are held from first lock or write
// until the unit of work ends, like InnoDB row locks.
type MemoryAdapter struct {
	mu        sync.Mutex
	inventory map[string]domain.InventoryRecord
	orders    map[string]domain.Order
	rowLocks  map[string]chan struct{}
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		inventory: make(map[string]domain.InventoryRecord),
		orders:    make(map[string]domain.Order),
		rowLocks:  make(map[string]chan struct{}),
	}
}

func (m *MemoryAdapter) Begin(ctx context.Context) (port.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryUnitOfWork{
		store:     m,
		ctx:       ctx,
		held:      make(map[string]chan struct{}),
		inventory: make(map[string]domain.InventoryRecord),
		orders:    make(map[string]domain.Order),
	}, nil
}

// PutInventory stores a record directly, outside any unit of work. Used for seeding.
func (m *MemoryAdapter) PutInventory(rec domain.InventoryRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory[rec.ProductID] = rec
}

func (m *MemoryAdapter) rowLock(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.rowLocks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.rowLocks[key] = ch
	}
	return ch
}

func (m *MemoryAdapter) committedInventory(productID string) (domain.InventoryRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.inventory[productID]
	return rec, ok
}

func (m *MemoryAdapter) committedOrder(orderID string) (domain.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	return o, ok
}

type memoryUnitOfWork struct {
	store *MemoryAdapter
	ctx   context.Context

	mu        sync.Mutex
	held      map[string]chan struct{}
	inventory map[string]domain.InventoryRecord
	orders    map[string]domain.Order
	done      bool
}

func (u *memoryUnitOfWork) Inventory() port.InventoryRepository {
	return &memoryInventoryRepository{uow: u}
}

func (u *memoryUnitOfWork) Orders() port.OrderRepository {
	return &memoryOrderRepository{uow: u}
}

func (u *memoryUnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done {
		return errTxDone
	}
	if err := u.ctx.Err(); err != nil {
		u.finish()
		return err
	}

	u.store.mu.Lock()
	for id, rec := range u.inventory {
		u.store.inventory[id] = rec
	}
	for id, o := range u.orders {
		u.store.orders[id] = o
	}
	u.store.mu.Unlock()

	u.finish()
	return nil
}

func (u *memoryUnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done {
		return nil
	}
	u.finish()
	return nil
}

// finish drops staged writes and releases row locks. Caller holds u.mu.
func (u *memoryUnitOfWork) finish() {
	u.inventory = nil
	u.orders = nil
	for _, ch := range u.held {
		<-ch
	}
	u.held = nil
	u.done = true
}

func (u *memoryUnitOfWork) lock(ctx context.Context, key string) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return errTxDone
	}
	if _, ok := u.held[key]; ok {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()

	ch := u.store.rowLock(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		<-ch
		return errTxDone
	}
	u.held[key] = ch
	return nil
}

func (u *memoryUnitOfWork) inventoryRecord(productID string) (domain.InventoryRecord, bool) {
	u.mu.Lock()
	rec, ok := u.inventory[productID]
	u.mu.Unlock()
	if ok {
		return rec, true
	}
	return u.store.committedInventory(productID)
}

func (u *memoryUnitOfWork) order(orderID string) (domain.Order, bool) {
	u.mu.Lock()
	o, ok := u.orders[orderID]
	u.mu.Unlock()
	if ok {
		return o, true
	}
	return u.store.committedOrder(orderID)
}

func (u *memoryUnitOfWork) stageInventory(rec domain.InventoryRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return errTxDone
	}
	u.inventory[rec.ProductID] = rec
	return nil
}

func (u *memoryUnitOfWork) stageOrder(o domain.Order) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return errTxDone
	}
	u.orders[o.ID] = o
	return nil
}

func inventoryKey(productID string) string { return "inventory:" + productID }
func orderKey(orderID string) string       { return "order:" + orderID }

type memoryInventoryRepository struct {
	uow *memoryUnitOfWork
}

func (r *memoryInventoryRepository) Get(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	rec, ok := r.uow.inventoryRecord(productID)
	if !ok {
		return nil, domain.NewNotFound("inventory", productID)
	}
	return &rec, nil
}

func (r *memoryInventoryRepository) GetForUpdate(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	if err := r.uow.lock(ctx, inventoryKey(productID)); err != nil {
		return nil, err
	}
	return r.Get(ctx, productID)
}

func (r *memoryInventoryRepository) List(ctx context.Context) ([]domain.InventoryRecord, error) {
	r.uow.store.mu.Lock()
	merged := make(map[string]domain.InventoryRecord, len(r.uow.store.inventory))
	for id, rec := range r.uow.store.inventory {
		merged[id] = rec
	}
	r.uow.store.mu.Unlock()

	r.uow.mu.Lock()
	for id, rec := range r.uow.inventory {
		merged[id] = rec
	}
	r.uow.mu.Unlock()

	records := make([]domain.InventoryRecord, 0, len(merged))
	for _, rec := range merged {
		if rec.IsDeleted {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ProductID < records[j].ProductID })
	return records, nil
}

func (r *memoryInventoryRepository) Create(ctx context.Context, rec domain.InventoryRecord) error {
	if err := r.uow.lock(ctx, inventoryKey(rec.ProductID)); err != nil {
		return err
	}
	if _, ok := r.uow.inventoryRecord(rec.ProductID); ok {
		return domain.ErrAlreadyExists
	}
	rec.Version = 0
	return r.uow.stageInventory(rec)
}

func (r *memoryInventoryRepository) Update(ctx context.Context, rec domain.InventoryRecord) error {
	if err := r.uow.lock(ctx, inventoryKey(rec.ProductID)); err != nil {
		return err
	}
	current, ok := r.uow.inventoryRecord(rec.ProductID)
	if !ok {
		return domain.NewNotFound("inventory", rec.ProductID)
	}
	if current.Version != rec.Version {
		return ErrOptimisticLock
	}
	rec.Version++
	return r.uow.stageInventory(rec)
}

type memoryOrderRepository struct {
	uow *memoryUnitOfWork
}

func (r *memoryOrderRepository) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	o, ok := r.uow.order(orderID)
	if !ok {
		return nil, domain.NewNotFound("order", orderID)
	}
	return &o, nil
}

func (r *memoryOrderRepository) GetForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	if err := r.uow.lock(ctx, orderKey(orderID)); err != nil {
		return nil, err
	}
	return r.Get(ctx, orderID)
}

func (r *memoryOrderRepository) Create(ctx context.Context, o domain.Order) error {
	if err := r.uow.lock(ctx, orderKey(o.ID)); err != nil {
		return err
	}
	if _, ok := r.uow.order(o.ID); ok {
		return domain.ErrAlreadyExists
	}
	o.Version = 0
	return r.uow.stageOrder(o)
}

func (r *memoryOrderRepository) Update(ctx context.Context, o domain.Order) error {
	if err := r.uow.lock(ctx, orderKey(o.ID)); err != nil {
		return err
	}
	current, ok := r.uow.order(o.ID)
	if !ok {
		return domain.NewNotFound("order", o.ID)
	}
	if current.Version != o.Version {
		return ErrOptimisticLock
	}
	o.Version++
	return r.uow.stageOrder(o)
}

func (r *memoryOrderRepository) ActiveQuantity(ctx context.Context, productID string) (int, error) {
	r.uow.store.mu.Lock()
	merged := make(map[string]domain.Order, len(r.uow.store.orders))
	for id, o := range r.uow.store.orders {
		merged[id] = o
	}
	r.uow.store.mu.Unlock()

	r.uow.mu.Lock()
	for id, o := range r.uow.orders {
		merged[id] = o
	}
	r.uow.mu.Unlock()

	total := 0
	for _, o := range merged {
		if o.ProductID == productID && o.Status == domain.OrderStatusActive {
			total += o.Quantity
		}
	}
	return total, nil
}
