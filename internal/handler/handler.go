// Package handler exposes the storefront gateway's HTTP surface: cart,
// checkout, payment simulation, order tracking and catalog passthrough.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/agriteranga/storefront/internal/cart"
	"github.com/agriteranga/storefront/internal/checkout"
	"github.com/agriteranga/storefront/internal/delivery"
	"github.com/agriteranga/storefront/internal/marketplace"
	"github.com/agriteranga/storefront/internal/order"
	"github.com/agriteranga/storefront/internal/payment"
)

// CatalogCache is the read-through product cache consulted when the
// marketplace is unreachable. Optional.
type CatalogCache interface {
	List(ctx context.Context, category string) ([]marketplace.Product, error)
	Get(ctx context.Context, id string) (*marketplace.Product, error)
}

// Handler serves the gateway API, keyed per device by the X-Device-ID
// header. Each device owns a cart store, a session provider, and at most one
// checkout flow at a time.
type Handler struct {
	client  *marketplace.Client
	carts   *cart.Registry
	catalog CatalogCache

	simOpts []payment.Option

	mu     sync.Mutex
	states map[string]*deviceState
}

// deviceState is the per-device checkout context. The cart entry lives for
// the device's lifetime; the flow and simulator exist only while a checkout
// is in progress.
type deviceState struct {
	entry   *cart.Entry
	tracker *order.Tracker

	mu        sync.Mutex
	flow      *checkout.Flow
	sim       *payment.Simulator
	result    *checkout.Result
	submitErr error
}

// Option configures a Handler.
type Option func(*Handler)

// WithSimulatorOptions forwards options to every payment simulator the
// handler creates.
func WithSimulatorOptions(opts ...payment.Option) Option {
	return func(h *Handler) { h.simOpts = opts }
}

// NewHandler constructs a Handler. catalog may be nil, disabling the product
// cache fallback.
func NewHandler(client *marketplace.Client, carts *cart.Registry, catalog CatalogCache, opts ...Option) *Handler {
	h := &Handler{
		client:  client,
		carts:   carts,
		catalog: catalog,
		states:  make(map[string]*deviceState),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the gateway's route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /products", h.listProducts)
	mux.HandleFunc("GET /products/{id}", h.getProduct)
	mux.HandleFunc("GET /delivery/options", h.deliveryOptions)

	mux.HandleFunc("GET /cart", h.device(h.getCart))
	mux.HandleFunc("POST /cart/items", h.device(h.addCartItem))
	mux.HandleFunc("PUT /cart/items/{id}", h.device(h.updateCartItem))
	mux.HandleFunc("DELETE /cart/items/{id}", h.device(h.removeCartItem))
	mux.HandleFunc("DELETE /cart", h.device(h.clearCart))

	mux.HandleFunc("GET /checkout", h.device(h.getCheckout))
	mux.HandleFunc("POST /checkout", h.device(h.beginCheckout))
	mux.HandleFunc("POST /checkout/back", h.device(h.checkoutBack))
	mux.HandleFunc("PUT /checkout/details", h.device(h.setCheckoutDetails))
	mux.HandleFunc("PUT /checkout/method", h.device(h.selectPaymentMethod))
	mux.HandleFunc("POST /checkout/submit", h.device(h.submitCheckout))
	mux.HandleFunc("POST /checkout/payment", h.device(h.startPayment))
	mux.HandleFunc("GET /checkout/payment", h.device(h.getPayment))
	mux.HandleFunc("POST /checkout/payment/cancel", h.device(h.cancelPayment))

	mux.HandleFunc("GET /orders", h.device(h.listOrders))
	mux.HandleFunc("GET /orders/{number}", h.device(h.getOrder))
	mux.HandleFunc("POST /orders/{number}/cancel", h.device(h.cancelOrder))

	return mux
}

// state returns the device's checkout context, creating it on first use.
func (h *Handler) state(deviceID string) *deviceState {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.states[deviceID]; ok {
		return st
	}
	st := &deviceState{
		entry:   h.carts.Get(deviceID),
		tracker: order.NewTracker(h.client, h.client, order.NewNormalizer()),
	}
	h.states[deviceID] = st
	return st
}

type deviceHandler func(w http.ResponseWriter, r *http.Request, st *deviceState)

// device resolves the calling device and its identity before dispatching.
// The bearer token, when present, rides the request context so every
// marketplace call downstream is made on the caller's behalf.
func (h *Handler) device(next deviceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.Header.Get("X-Device-ID")
		if deviceID == "" {
			respondError(w, http.StatusBadRequest, "X-Device-ID header required")
			return
		}

		st := h.state(deviceID)
		r = r.WithContext(h.authenticate(r, st))
		next(w, r, st)
	}
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondFromError maps domain errors onto HTTP statuses. Marketplace errors
// pass through with the backend's status and message verbatim.
func respondFromError(ctx context.Context, w http.ResponseWriter, err error) {
	var apiErr *marketplace.APIError
	if errors.As(err, &apiErr) {
		respondError(w, apiErr.StatusCode, apiErr.Message)
		return
	}

	var fields checkout.FieldErrors
	if errors.As(err, &fields) {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    http.StatusUnprocessableEntity,
			Message: "validation failed",
			Fields:  fields,
		})
		return
	}

	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNoPaymentMethod),
		errors.Is(err, payment.ErrInvalidPhone),
		errors.Is(err, payment.ErrBusy),
		errors.Is(err, delivery.ErrUnknownMethod):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	default:
		zctx.From(ctx).Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, out any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
