package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Service defines catalog business logic.
type Service interface {
	// FetchPrices returns authoritative price/stock/name for every requested
	// product id. It fails with *ProductsNotFoundError listing all missing
	// ids when any product does not exist; partial results are never
	// returned. Pure read, no mutation.
	FetchPrices(ctx context.Context, ids []string) (map[string]PriceInfo, error)

	CreateProduct(ctx context.Context, req UpsertProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, category string, activeOnly bool) ([]*Product, error)
	UpdateProduct(ctx context.Context, id string, req UpsertProductRequest) (*Product, error)
}

// UpsertProductRequest holds the data for creating or updating a product.
type UpsertProductRequest struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
}

type service struct {
	repo  Repository
	group singleflight.Group
}

// NewService creates a new catalog service.
func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) FetchPrices(ctx context.Context, ids []string) (map[string]PriceInfo, error) {
	if len(ids) == 0 {
		return map[string]PriceInfo{}, nil
	}

	// Concurrent checkouts for the same cart contents hit the store once.
	key := priceKey(ids)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.repo.FetchPrices(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	prices := v.(map[string]PriceInfo)

	var missing []string
	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &ProductsNotFoundError{IDs: missing}
	}
	return prices, nil
}

func (s *service) CreateProduct(ctx context.Context, req UpsertProductRequest) (*Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("price must not be negative")
	}
	id := req.ID
	if id == "" {
		id = slugify(req.Name)
	}
	p := &Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, category string, activeOnly bool) ([]*Product, error) {
	return s.repo.List(ctx, category, activeOnly)
}

func (s *service) UpdateProduct(ctx context.Context, id string, req UpsertProductRequest) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = req.Name
	p.Description = req.Description
	p.Category = req.Category
	if req.Price >= 0 {
		p.Price = req.Price
	}
	p.ImageURL = req.ImageURL
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func priceKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
	return strings.Trim(s, "-")
}
