package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/order-reservation/internal/adapter/storage"
	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/port"
)

type testEnv struct {
	store   *storage.MemoryAdapter
	catalog *storage.MemoryCatalog
	svc     *OrderService
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	store := storage.NewMemoryAdapter()
	catalog := storage.NewMemoryCatalog()
	catalog.AddCustomer("c1")
	catalog.AddCustomer("c2")

	cfg := DefaultConfig()
	cfg.MaxRetries = 20
	cfg.RetryInitialInterval = time.Millisecond

	opts = append([]Option{WithConfig(cfg)}, opts...)
	return &testEnv{
		store:   store,
		catalog: catalog,
		svc:     NewOrderService(store, catalog, zap.NewNop(), opts...),
	}
}

// stock seeds a sellable product with the given quantity.
func (e *testEnv) stock(productID string, quantity int) {
	e.catalog.AddProduct(productID)
	e.store.PutInventory(domain.InventoryRecord{
		ProductID:          productID,
		QuantityOnHand:     quantity,
		IsAvailableForSale: true,
	})
}

func (e *testEnv) onHand(t *testing.T, productID string) int {
	t.Helper()
	uow, err := e.store.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer uow.Rollback()

	rec, err := uow.Inventory().Get(context.Background(), productID)
	if err != nil {
		t.Fatalf("get inventory %s: %v", productID, err)
	}
	return rec.QuantityOnHand
}

// inTx runs fn in a unit of work and commits it when fn succeeds.
func inTx(t *testing.T, f port.UnitOfWorkFactory, fn func(uow port.UnitOfWork) error) error {
	t.Helper()
	uow, err := f.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}

type mockCacheRepo struct {
	idempotencySet map[string]bool
	cleared        []string
	setErr         error
	mu             sync.Mutex
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{idempotencySet: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setErr != nil {
		return false, m.setErr
	}
	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.idempotencySet, key)
	m.cleared = append(m.cleared, key)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, ev domain.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) published() []domain.OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderEvent(nil), m.events...)
}
