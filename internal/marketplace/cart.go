package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/agriteranga/storefront/internal/cart"
)

// Compile-time check: the client is the store's remote backend.
var _ cart.RemoteBackend = (*Client)(nil)

type cartEnvelope struct {
	Items []cart.Item `json:"items"`
}

// GetCart fetches the authenticated user's server cart.
func (c *Client) GetCart(ctx context.Context) ([]cart.Item, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// AddItem adds quantity units of a product to the server cart and returns
// the resulting cart.
func (c *Client) AddItem(ctx context.Context, productID string, quantity int) ([]cart.Item, error) {
	var env cartEnvelope
	body := map[string]any{"productId": productID, "quantity": quantity}
	if err := c.do(ctx, http.MethodPost, "/cart/items", body, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// UpdateItem sets the server-side quantity for a product line.
func (c *Client) UpdateItem(ctx context.Context, productID string, quantity int) ([]cart.Item, error) {
	var env cartEnvelope
	body := map[string]any{"quantity": quantity}
	path := fmt.Sprintf("/cart/items/%s", url.PathEscape(productID))
	if err := c.do(ctx, http.MethodPut, path, body, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// RemoveItem deletes a product line from the server cart.
func (c *Client) RemoveItem(ctx context.Context, productID string) ([]cart.Item, error) {
	var env cartEnvelope
	path := fmt.Sprintf("/cart/items/%s", url.PathEscape(productID))
	if err := c.do(ctx, http.MethodDelete, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// ClearCart empties the server cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart", nil, nil)
}
