package storage

import (
	"context"
	"sync"
)

// MemoryCatalog is a port.Catalog backed by maps. The value records whether
// the entry is soft deleted.
type MemoryCatalog struct {
	mu        sync.RWMutex
	products  map[string]bool
	customers map[string]bool
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products:  make(map[string]bool),
		customers: make(map[string]bool),
	}
}

func (c *MemoryCatalog) AddProduct(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[productID] = false
}

func (c *MemoryCatalog) RetireProduct(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[productID]; ok {
		c.products[productID] = true
	}
}

func (c *MemoryCatalog) AddCustomer(customerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.customers[customerID] = false
}

func (c *MemoryCatalog) ProductExists(ctx context.Context, productID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	deleted, ok := c.products[productID]
	return ok && !deleted, nil
}

func (c *MemoryCatalog) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	deleted, ok := c.customers[customerID]
	return ok && !deleted, nil
}
