package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/port"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
	mysqlErrCheckViolated   = 3819
)

type MySQLAdapter struct {
	db *sqlx.DB
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Begin opens a READ COMMITTED transaction. Row locks come from SELECT ... FOR
// UPDATE; writes are additionally guarded by the version column.
func (m *MySQLAdapter) Begin(ctx context.Context) (port.UnitOfWork, error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", translateError(err))
	}
	return &mysqlUnitOfWork{tx: tx}, nil
}

type mysqlUnitOfWork struct {
	tx *sqlx.Tx
}

func (u *mysqlUnitOfWork) Inventory() port.InventoryRepository {
	return &mysqlInventoryRepository{tx: u.tx}
}

func (u *mysqlUnitOfWork) Orders() port.OrderRepository {
	return &mysqlOrderRepository{tx: u.tx}
}

func (u *mysqlUnitOfWork) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return translateError(err)
	}
	return nil
}

func (u *mysqlUnitOfWork) Rollback() error {
	err := u.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type inventoryRow struct {
	ProductID          string    `db:"product_id"`
	QuantityOnHand     int       `db:"quantity_on_hand"`
	IsAvailableForSale bool      `db:"is_available_for_sale"`
	Version            int       `db:"version"`
	IsDeleted          bool      `db:"is_deleted"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r inventoryRow) toDomain() *domain.InventoryRecord {
	return &domain.InventoryRecord{
		ProductID:          r.ProductID,
		QuantityOnHand:     r.QuantityOnHand,
		IsAvailableForSale: r.IsAvailableForSale,
		Version:            r.Version,
		IsDeleted:          r.IsDeleted,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

const selectInventory = `
	SELECT product_id, quantity_on_hand, is_available_for_sale, version, is_deleted, created_at, updated_at
	FROM inventory`

type mysqlInventoryRepository struct {
	tx *sqlx.Tx
}

func (r *mysqlInventoryRepository) Get(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	return r.get(ctx, selectInventory+` WHERE product_id = ?`, productID)
}

func (r *mysqlInventoryRepository) GetForUpdate(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	return r.get(ctx, selectInventory+` WHERE product_id = ? FOR UPDATE`, productID)
}

func (r *mysqlInventoryRepository) get(ctx context.Context, query, productID string) (*domain.InventoryRecord, error) {
	var row inventoryRow
	err := r.tx.GetContext(ctx, &row, query, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("inventory", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", translateError(err))
	}
	return row.toDomain(), nil
}

func (r *mysqlInventoryRepository) List(ctx context.Context) ([]domain.InventoryRecord, error) {
	var rows []inventoryRow
	if err := r.tx.SelectContext(ctx, &rows, selectInventory+` WHERE is_deleted = 0 ORDER BY product_id`); err != nil {
		return nil, fmt.Errorf("list inventory: %w", translateError(err))
	}

	records := make([]domain.InventoryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, *row.toDomain())
	}
	return records, nil
}

func (r *mysqlInventoryRepository) Create(ctx context.Context, rec domain.InventoryRecord) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO inventory (product_id, quantity_on_hand, is_available_for_sale, version, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?)`,
		rec.ProductID, rec.QuantityOnHand, rec.IsAvailableForSale, rec.IsDeleted, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", translateError(err))
	}
	return nil
}

func (r *mysqlInventoryRepository) Update(ctx context.Context, rec domain.InventoryRecord) error {
	result, err := r.tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity_on_hand = ?, is_available_for_sale = ?, is_deleted = ?, version = version + 1, updated_at = ?
		WHERE product_id = ? AND version = ?`,
		rec.QuantityOnHand, rec.IsAvailableForSale, rec.IsDeleted, rec.UpdatedAt,
		rec.ProductID, rec.Version,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", translateError(err))
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	return nil
}

type orderRow struct {
	ID          string    `db:"id"`
	OrderNumber string    `db:"order_number"`
	CustomerID  string    `db:"customer_id"`
	ProductID   string    `db:"product_id"`
	Quantity    int       `db:"quantity"`
	Status      string    `db:"status"`
	Version     int       `db:"version"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r orderRow) toDomain() *domain.Order {
	return &domain.Order{
		ID:          r.ID,
		OrderNumber: r.OrderNumber,
		CustomerID:  r.CustomerID,
		ProductID:   r.ProductID,
		Quantity:    r.Quantity,
		Status:      domain.OrderStatus(r.Status),
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const selectOrder = `
	SELECT id, order_number, customer_id, product_id, quantity, status, version, created_at, updated_at
	FROM orders`

type mysqlOrderRepository struct {
	tx *sqlx.Tx
}

func (r *mysqlOrderRepository) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.get(ctx, selectOrder+` WHERE id = ?`, orderID)
}

func (r *mysqlOrderRepository) GetForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.get(ctx, selectOrder+` WHERE id = ? FOR UPDATE`, orderID)
}

func (r *mysqlOrderRepository) get(ctx context.Context, query, orderID string) (*domain.Order, error) {
	var row orderRow
	err := r.tx.GetContext(ctx, &row, query, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("order", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", translateError(err))
	}
	return row.toDomain(), nil
}

func (r *mysqlOrderRepository) Create(ctx context.Context, o domain.Order) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, customer_id, product_id, quantity, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		o.ID, o.OrderNumber, o.CustomerID, o.ProductID, o.Quantity, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", translateError(err))
	}
	return nil
}

func (r *mysqlOrderRepository) Update(ctx context.Context, o domain.Order) error {
	result, err := r.tx.ExecContext(ctx, `
		UPDATE orders
		SET product_id = ?, quantity = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		o.ProductID, o.Quantity, o.Status, o.UpdatedAt,
		o.ID, o.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", translateError(err))
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (r *mysqlOrderRepository) ActiveQuantity(ctx context.Context, productID string) (int, error) {
	var total int
	err := r.tx.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(quantity), 0) FROM orders WHERE product_id = ? AND status = ?`,
		productID, domain.OrderStatusActive,
	)
	if err != nil {
		return 0, fmt.Errorf("sum active orders: %w", translateError(err))
	}
	return total, nil
}

// translateError maps MySQL error numbers onto domain errors; anything else is
// returned unchanged.
func translateError(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}

	switch myErr.Number {
	case mysqlErrDuplicateEntry:
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, myErr.Message)
	case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
		return fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, myErr.Message)
	case mysqlErrCheckViolated:
		return fmt.Errorf("%w: %s", domain.ErrInsufficientStock, myErr.Message)
	}
	return err
}
