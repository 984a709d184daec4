package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/agriteranga/storefront/internal/cart"
)

// cartResponse is the cart snapshot returned by every cart operation. Synced
// is false when the last mutation applied locally only; Reason then carries
// the server error text as a hint.
type cartResponse struct {
	Items      []cart.Item     `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Synced     bool            `json:"synced"`
	Reason     string          `json:"reason,omitempty"`
}

func newCartResponse(store *cart.Store, state cart.SyncState) cartResponse {
	resp := cartResponse{
		Items:      store.Items(),
		TotalPrice: store.TotalPrice(),
		Synced:     state.Synced,
	}
	if resp.Items == nil {
		resp.Items = []cart.Item{}
	}
	if state.Reason != nil {
		resp.Reason = state.Reason.Error()
	}
	return resp
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, st *deviceState) {
	state := st.entry.Store.Load(r.Context())
	respondJSON(w, http.StatusOK, newCartResponse(st.entry.Store, state))
}

// addCartItem adds one unit of a product. The product's name and price are
// resolved from the marketplace (or the catalog cache) so the local cart can
// render and total itself offline.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request, st *deviceState) {
	var req struct {
		ProductID string `json:"productId"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "productId required")
		return
	}

	item := cart.Item{ID: req.ProductID, Quantity: 1}
	if p, err := h.lookupProduct(r.Context(), req.ProductID); err == nil {
		item.Name = p.Name
		item.UnitPrice = p.Price
		item.Unit = p.Unit
		item.ImageURL = p.ImageURL
	}

	state := st.entry.Store.AddItem(r.Context(), item)
	respondJSON(w, http.StatusOK, newCartResponse(st.entry.Store, state))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request, st *deviceState) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state := st.entry.Store.UpdateQuantity(r.Context(), r.PathValue("id"), req.Quantity)
	respondJSON(w, http.StatusOK, newCartResponse(st.entry.Store, state))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request, st *deviceState) {
	state := st.entry.Store.RemoveItem(r.Context(), r.PathValue("id"))
	respondJSON(w, http.StatusOK, newCartResponse(st.entry.Store, state))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request, st *deviceState) {
	state := st.entry.Store.Clear(r.Context())
	respondJSON(w, http.StatusOK, newCartResponse(st.entry.Store, state))
}
