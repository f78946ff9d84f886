package catalog

import "context"

// Repository defines data access for catalog products.
type Repository interface {
	// FetchPrices returns price/stock/name for each of the given ids.
	// Missing ids are simply absent from the result map.
	FetchPrices(ctx context.Context, ids []string) (map[string]PriceInfo, error)

	// Create persists a new product.
	Create(ctx context.Context, p *Product) error

	// GetByID retrieves a single product.
	GetByID(ctx context.Context, id string) (*Product, error)

	// List returns products, optionally filtered by category, newest first.
	List(ctx context.Context, category string, activeOnly bool) ([]*Product, error)

	// Update rewrites a product's descriptive fields and price. Stock is
	// owned by the inventory module and is not written here.
	Update(ctx context.Context, p *Product) error
}
