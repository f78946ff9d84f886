package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) FetchPrices(ctx context.Context, ids []string) (map[string]PriceInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, price, stock, name FROM products WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]PriceInfo, len(ids))
	for rows.Next() {
		var id string
		var info PriceInfo
		if err := rows.Scan(&id, &info.Price, &info.Stock, &info.Name); err != nil {
			return nil, err
		}
		prices[id] = info
	}
	return prices, rows.Err()
}

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products
		  (id, name, description, category, price, stock, image_url, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.Stock, p.ImageURL, p.IsActive)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id,name,description,category,price,stock,image_url,is_active,created_at,updated_at
		FROM products WHERE id=$1`, id)
	return scanProduct(row.Scan)
}

func (r *postgresRepo) List(ctx context.Context, category string, activeOnly bool) ([]*Product, error) {
	query := `SELECT id,name,description,category,price,stock,image_url,is_active,created_at,updated_at
	          FROM products WHERE 1=1`
	args := []interface{}{}
	if category != "" {
		query += ` AND category=$1`
		args = append(args, category)
	}
	if activeOnly {
		query += ` AND is_active=true`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name=$1, description=$2, category=$3, price=$4, image_url=$5,
		    is_active=$6, updated_at=NOW()
		WHERE id=$7`,
		p.Name, p.Description, p.Category, p.Price, p.ImageURL, p.IsActive, p.ID)
	return err
}

func scanProduct(scan func(...interface{}) error) (*Product, error) {
	p := &Product{}
	err := scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock,
		&p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
