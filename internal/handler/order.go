package handler

import (
	"net/http"

	"github.com/agriteranga/storefront/internal/order"
)

// trackedOrder pairs a normalized order with its progress for the tracking
// view.
type trackedOrder struct {
	order.Order
	Progress order.ProgressInfo `json:"progress"`
}

func tracked(o order.Order) trackedOrder {
	return trackedOrder{Order: o, Progress: order.Progress(o.Status)}
}

// listOrders reloads the customer's orders from the marketplace and returns
// them normalized, newest first as the backend sends them.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, st *deviceState) {
	if err := st.tracker.Reload(r.Context()); err != nil {
		respondFromError(r.Context(), w, err)
		return
	}

	orders := st.tracker.Orders()
	out := make([]trackedOrder, len(orders))
	for i, o := range orders {
		out[i] = tracked(o)
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, st *deviceState) {
	number := r.PathValue("number")

	o, ok := st.tracker.Get(number)
	if !ok {
		// Not in the last snapshot; refresh once before giving up.
		if err := st.tracker.Reload(r.Context()); err != nil {
			respondFromError(r.Context(), w, err)
			return
		}
		if o, ok = st.tracker.Get(number); !ok {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
	}
	respondJSON(w, http.StatusOK, tracked(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, st *deviceState) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	number := r.PathValue("number")
	if err := st.tracker.Cancel(r.Context(), number, req.Reason); err != nil {
		respondFromError(r.Context(), w, err)
		return
	}

	o, ok := st.tracker.Get(number)
	if !ok {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	respondJSON(w, http.StatusOK, tracked(o))
}
