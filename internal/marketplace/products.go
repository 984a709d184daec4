package marketplace

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// Product is a catalog item as served by the marketplace.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"unit,omitempty"`
	Category string          `json:"category,omitempty"`
	Producer string          `json:"producer,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
}

type productEnvelope struct {
	Products []Product `json:"products"`
}

// ListProducts fetches the product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var env productEnvelope
	if err := c.do(ctx, http.MethodGet, "/products", nil, &env); err != nil {
		return nil, err
	}
	return env.Products, nil
}

// GetProduct fetches a single catalog item.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type currentUserEnvelope struct {
	ID   string `json:"id"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

// CurrentUser resolves the user behind the context's token. Used by the
// session provider at bootstrap; an error simply means guest mode.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var env currentUserEnvelope
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &env); err != nil {
		return "", err
	}
	if env.ID != "" {
		return env.ID, nil
	}
	return env.User.ID, nil
}
