package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/agriteranga/storefront/internal/delivery"
	"github.com/agriteranga/storefront/internal/marketplace"
)

// listProducts proxies the marketplace catalog, serving the local cache when
// the marketplace is unreachable.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.client.ListProducts(ctx)
	if err != nil {
		if h.catalog == nil {
			respondFromError(ctx, w, err)
			return
		}
		zctx.From(ctx).Warn("Marketplace unreachable, serving catalog cache", zap.Error(err))
		products, err = h.catalog.List(ctx, r.URL.Query().Get("category"))
		if err != nil {
			respondFromError(ctx, w, err)
			return
		}
	}

	if products == nil {
		products = []marketplace.Product{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.lookupProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		var apiErr *marketplace.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondFromError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// lookupProduct resolves a product from the marketplace, falling back to the
// catalog cache on transport failure.
func (h *Handler) lookupProduct(ctx context.Context, id string) (*marketplace.Product, error) {
	p, err := h.client.GetProduct(ctx, id)
	if err == nil {
		return p, nil
	}
	if h.catalog == nil {
		return nil, err
	}
	var apiErr *marketplace.APIError
	if errors.As(err, &apiErr) {
		// The marketplace answered; its verdict stands.
		return nil, err
	}
	return h.catalog.Get(ctx, id)
}

// deliveryOptions returns the delivery methods with their locations and the
// fee table, so clients can render the details form without hardcoding them.
func (h *Handler) deliveryOptions(w http.ResponseWriter, _ *http.Request) {
	fees := delivery.DefaultFeeTable()
	respondJSON(w, http.StatusOK, map[string]any{
		"methods": []delivery.Method{
			delivery.MethodHomeDelivery,
			delivery.MethodPickupPoint,
			delivery.MethodFarmPickup,
		},
		"regions":       delivery.Regions,
		"pickupPoints":  delivery.PickupPoints,
		"farmLocations": delivery.FarmLocations,
		"cityFees":      fees.Cities,
		"defaultFee":    fees.Default,
	})
}
