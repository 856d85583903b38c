package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-reservation/internal/core/domain"
)

func TestMemoryAdapter_StagedUntilCommit(t *testing.T) {
	store := NewMemoryAdapter()
	ctx := context.Background()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Inventory().Create(ctx, domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 5}))

	reader, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = reader.Inventory().Get(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, reader.Rollback())

	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback())

	reader, err = store.Begin(ctx)
	require.NoError(t, err)
	defer reader.Rollback()
	rec, err := reader.Inventory().Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.QuantityOnHand)
	assert.Equal(t, 0, rec.Version)
}

func TestMemoryAdapter_RollbackDiscards(t *testing.T) {
	store := NewMemoryAdapter()
	store.PutInventory(domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 5})
	ctx := context.Background()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	rec, err := uow.Inventory().GetForUpdate(ctx, "p1")
	require.NoError(t, err)
	rec.QuantityOnHand = 1
	require.NoError(t, uow.Inventory().Update(ctx, *rec))

	staged, err := uow.Inventory().Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, staged.QuantityOnHand)
	assert.Equal(t, 1, staged.Version)

	require.NoError(t, uow.Rollback())
	assert.Error(t, uow.Commit())

	rec2, ok := store.committedInventory("p1")
	require.True(t, ok)
	assert.Equal(t, 5, rec2.QuantityOnHand)
}

func TestMemoryAdapter_StaleVersion(t *testing.T) {
	store := NewMemoryAdapter()
	store.PutInventory(domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 5, Version: 3})
	ctx := context.Background()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()

	err = uow.Inventory().Update(ctx, domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 4, Version: 2})
	assert.ErrorIs(t, err, ErrOptimisticLock)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestMemoryAdapter_RowLockBlocksUntilCommit(t *testing.T) {
	store := NewMemoryAdapter()
	store.PutInventory(domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 5})
	ctx := context.Background()

	first, err := store.Begin(ctx)
	require.NoError(t, err)
	rec, err := first.Inventory().GetForUpdate(ctx, "p1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var seen int
	wg.Add(1)
	go func() {
		defer wg.Done()
		second, err := store.Begin(ctx)
		if err != nil {
			t.Errorf("begin: %v", err)
			return
		}
		defer second.Rollback()
		got, err := second.Inventory().GetForUpdate(ctx, "p1")
		if err != nil {
			t.Errorf("lock: %v", err)
			return
		}
		seen = got.QuantityOnHand
	}()

	time.Sleep(10 * time.Millisecond)
	rec.QuantityOnHand = 2
	require.NoError(t, first.Inventory().Update(ctx, *rec))
	require.NoError(t, first.Commit())

	wg.Wait()
	assert.Equal(t, 2, seen)
}

func TestMemoryAdapter_LockWaitHonoursContext(t *testing.T) {
	store := NewMemoryAdapter()
	store.PutInventory(domain.InventoryRecord{ProductID: "p1"})

	holder, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer holder.Rollback()
	_, err = holder.Inventory().GetForUpdate(context.Background(), "p1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	waiter, err := store.Begin(ctx)
	require.NoError(t, err)
	defer waiter.Rollback()

	_, err = waiter.Inventory().GetForUpdate(ctx, "p1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryAdapter_CommitAfterCancelRollsBack(t *testing.T) {
	store := NewMemoryAdapter()
	store.PutInventory(domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 5})

	ctx, cancel := context.WithCancel(context.Background())
	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	rec, err := uow.Inventory().GetForUpdate(ctx, "p1")
	require.NoError(t, err)
	rec.QuantityOnHand = 0
	require.NoError(t, uow.Inventory().Update(ctx, *rec))

	cancel()
	assert.ErrorIs(t, uow.Commit(), context.Canceled)

	committed, _ := store.committedInventory("p1")
	assert.Equal(t, 5, committed.QuantityOnHand)

	// The row lock was released.
	next, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer next.Rollback()
	_, err = next.Inventory().GetForUpdate(context.Background(), "p1")
	assert.NoError(t, err)
}

func TestMemoryAdapter_Orders(t *testing.T) {
	store := NewMemoryAdapter()
	ctx := context.Background()
	now := time.Now()

	a := domain.NewOrder("c1", "p1", 2, now)
	b := domain.NewOrder("c1", "p1", 3, now)
	c := domain.NewOrder("c1", "p2", 4, now)

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	for _, o := range []domain.Order{a, b, c} {
		require.NoError(t, uow.Orders().Create(ctx, o))
	}
	assert.ErrorIs(t, uow.Orders().Create(ctx, a), domain.ErrAlreadyExists)

	b.Status = domain.OrderStatusCancelled
	require.NoError(t, uow.Orders().Update(ctx, b))
	require.NoError(t, uow.Commit())

	uow, err = store.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()

	total, err := uow.Orders().ActiveQuantity(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	got, err := uow.Orders().Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCancelled())
	assert.Equal(t, 1, got.Version)

	_, err = uow.Orders().Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryAdapter_ListSkipsRetired(t *testing.T) {
	store := NewMemoryAdapter()
	store.PutInventory(domain.InventoryRecord{ProductID: "b"})
	store.PutInventory(domain.InventoryRecord{ProductID: "a"})
	store.PutInventory(domain.InventoryRecord{ProductID: "z", IsDeleted: true})

	uow, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer uow.Rollback()

	records, err := uow.Inventory().List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ProductID)
	assert.Equal(t, "b", records[1].ProductID)
}

func TestMemoryCatalog(t *testing.T) {
	c := NewMemoryCatalog()
	c.AddProduct("p1")
	c.AddCustomer("c1")
	ctx := context.Background()

	ok, _ := c.ProductExists(ctx, "p1")
	assert.True(t, ok)
	ok, _ = c.CustomerExists(ctx, "c1")
	assert.True(t, ok)
	ok, _ = c.CustomerExists(ctx, "c2")
	assert.False(t, ok)

	c.RetireProduct("p1")
	ok, _ = c.ProductExists(ctx, "p1")
	assert.False(t, ok)
}
