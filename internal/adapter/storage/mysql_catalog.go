package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// MySQLCatalog reads the products and customers tables owned by the master-data
// services that share this schema.
type MySQLCatalog struct {
	db *sqlx.DB
}

func NewMySQLCatalog(db *sqlx.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

func (c *MySQLCatalog) ProductExists(ctx context.Context, productID string) (bool, error) {
	return c.exists(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = ? AND is_deleted = 0)`, productID)
}

func (c *MySQLCatalog) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	return c.exists(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = ? AND is_deleted = 0)`, customerID)
}

func (c *MySQLCatalog) exists(ctx context.Context, query, id string) (bool, error) {
	var found bool
	if err := c.db.GetContext(ctx, &found, query, id); err != nil {
		return false, fmt.Errorf("query catalog: %w", err)
	}
	return found, nil
}
