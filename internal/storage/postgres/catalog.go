package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agriteranga/storefront/internal/marketplace"
)

// ErrProductNotFound is returned when a product id is not in the cache.
var ErrProductNotFound = errors.New("product not found")

// CatalogRepository is the read-through product cache: the ingest tool fills
// it from catalog dumps and the gateway serves from it when the marketplace
// is unreachable.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Upsert inserts or refreshes one product.
func (r *CatalogRepository) Upsert(ctx context.Context, p marketplace.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO catalog_products (id, name, price, unit, category, producer, image_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			unit = EXCLUDED.unit,
			category = EXCLUDED.category,
			producer = EXCLUDED.producer,
			image_url = EXCLUDED.image_url,
			updated_at = now()`,
		p.ID, p.Name, p.Price, p.Unit, p.Category, p.Producer, p.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// List returns the cached catalog, optionally filtered by category.
func (r *CatalogRepository) List(ctx context.Context, category string) ([]marketplace.Product, error) {
	query := `SELECT id, name, price, unit, category, producer, image_url
		FROM catalog_products`
	args := []any{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []marketplace.Product
	for rows.Next() {
		var p marketplace.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Unit, &p.Category, &p.Producer, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading products: %w", err)
	}
	return products, nil
}

// Get returns one cached product by id.
func (r *CatalogRepository) Get(ctx context.Context, id string) (*marketplace.Product, error) {
	var p marketplace.Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, price, unit, category, producer, image_url
		FROM catalog_products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Unit, &p.Category, &p.Producer, &p.ImageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("finding product %q: %w", id, err)
	}
	return &p, nil
}
