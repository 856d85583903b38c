package port

import "context"

// Catalog answers existence questions about master data owned elsewhere.
// Soft-deleted products and customers do not exist.
type Catalog interface {
	ProductExists(ctx context.Context, productID string) (bool, error)
	CustomerExists(ctx context.Context, customerID string) (bool, error)
}
