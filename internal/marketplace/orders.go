package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/agriteranga/storefront/internal/delivery"
	"github.com/agriteranga/storefront/internal/order"
)

// Compile-time check: the client serves the tracker and its enrichment.
var (
	_ order.API             = (*Client)(nil)
	_ order.DelivererLookup = (*Client)(nil)
)

// OrderItemRef is a cart line as the backend expects it at creation time.
type OrderItemRef struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

// OrderTotals are the client-computed amounts attached to a new order.
type OrderTotals struct {
	ProductsTotal decimal.Decimal `json:"productsTotal"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	TotalToPay    decimal.Decimal `json:"totalToPay"`
}

// OrderPayload is the create-order request body.
type OrderPayload struct {
	OrderNumber   string          `json:"orderNumber"`
	Items         []OrderItemRef  `json:"items"`
	PaymentMethod string          `json:"paymentMethod"`
	DeliveryInfo  delivery.Info   `json:"deliveryInfo"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	Totals        OrderTotals     `json:"totals"`
}

// CreateOrder submits a new order and returns the backend's raw order
// payload for normalization.
func (c *Client) CreateOrder(ctx context.Context, payload OrderPayload) (map[string]any, error) {
	data, err := c.doRaw(ctx, http.MethodPost, "/orders", payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	raw, err := order.DecodeRaw(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode created order")
	}
	return raw, nil
}

// ListMyOrders fetches one page of the caller's orders as raw payloads. The
// backend answers either a bare array or an enveloped list.
func (c *Client) ListMyOrders(ctx context.Context, page, limit int) ([]map[string]any, error) {
	path := fmt.Sprintf("/orders?page=%d&limit=%d", page, limit)
	data, err := c.doRaw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if list, err := order.DecodeRawArray(data); err == nil {
		return list, nil
	}
	env, err := order.DecodeRaw(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode order list")
	}
	for _, key := range []string{"orders", "data", "items", "commandes"} {
		arr, ok := env[key].([]any)
		if !ok {
			continue
		}
		list := make([]map[string]any, 0, len(arr))
		for _, e := range arr {
			if m, ok := e.(map[string]any); ok {
				list = append(list, m)
			}
		}
		return list, nil
	}
	return nil, errors.New("order list not found in response")
}

// GetOrder fetches a single order as a raw payload.
func (c *Client) GetOrder(ctx context.Context, id string) (map[string]any, error) {
	data, err := c.doRaw(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	raw, err := order.DecodeRaw(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return raw, nil
}

// CancelOrder asks the backend to cancel an order.
func (c *Client) CancelOrder(ctx context.Context, id, reason string) error {
	body := map[string]any{"reason": reason}
	return c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(id)+"/cancel", body, nil)
}

// GetDeliveryDetails resolves a delivery assignment to its courier, used to
// enrich orders that reference an assignment without embedding the deliverer.
func (c *Client) GetDeliveryDetails(ctx context.Context, assignmentID string) (*order.Deliverer, error) {
	data, err := c.doRaw(ctx, http.MethodGet, "/deliveries/"+url.PathEscape(assignmentID), nil)
	if err != nil {
		return nil, err
	}
	raw, err := order.DecodeRaw(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode delivery details")
	}
	return order.ParseDeliverer(raw), nil
}
