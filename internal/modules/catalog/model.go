package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Product is a storefront catalog item. Stock is mutated only through the
// inventory module's reservation manager, never here.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PriceInfo is the authoritative pricing snapshot for one product used during
// checkout. Client-supplied prices are never trusted.
type PriceInfo struct {
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
	Name  string  `json:"name"`
}

// ProductsNotFoundError reports every requested product id that does not
// exist. A partially-priced order must never proceed.
type ProductsNotFoundError struct {
	IDs []string
}

func (e *ProductsNotFoundError) Error() string {
	return fmt.Sprintf("products not found: %s", strings.Join(e.IDs, ", "))
}
