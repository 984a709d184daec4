package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/agriteranga/storefront/internal/checkout"
	"github.com/agriteranga/storefront/internal/marketplace"
	"github.com/agriteranga/storefront/internal/order"
	"github.com/agriteranga/storefront/internal/payment"
)

// checkoutResponse reflects the flow for the client to render: the current
// step, the immutable fee computed at the details step, and the submission
// outcome once the flow reached done.
type checkoutResponse struct {
	Step         checkout.Step    `json:"step"`
	Details      checkout.Details `json:"details"`
	DeliveryFee  decimal.Decimal  `json:"deliveryFee"`
	Method       string           `json:"method,omitempty"`
	Order        *order.Order     `json:"order,omitempty"`
	Acknowledged bool             `json:"acknowledged,omitempty"`
	Error        string           `json:"error,omitempty"`
}

func (st *deviceState) snapshot() checkoutResponse {
	st.mu.Lock()
	defer st.mu.Unlock()

	resp := checkoutResponse{Step: checkout.StepCart}
	if st.flow == nil {
		return resp
	}
	resp.Step = st.flow.Step()
	resp.Details = st.flow.Details()
	resp.DeliveryFee = st.flow.DeliveryFee()
	resp.Method = st.flow.Method()
	if st.result != nil {
		o := st.result.Order
		resp.Order = &o
		resp.Acknowledged = st.result.Acknowledged
	}
	if st.submitErr != nil {
		resp.Error = st.submitErr.Error()
	}
	return resp
}

func (h *Handler) getCheckout(w http.ResponseWriter, _ *http.Request, st *deviceState) {
	respondJSON(w, http.StatusOK, st.snapshot())
}

// beginCheckout opens a fresh flow over the device's cart. An abandoned or
// completed flow is discarded; the cart itself is untouched.
func (h *Handler) beginCheckout(w http.ResponseWriter, r *http.Request, st *deviceState) {
	st.mu.Lock()
	st.flow = checkout.NewFlow(st.entry.Store, h.client)
	st.sim = nil
	st.result = nil
	st.submitErr = nil
	flow := st.flow
	st.mu.Unlock()

	if err := flow.Begin(); err != nil {
		respondFromError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, st.snapshot())
}

// currentFlow returns the device's flow, or nil after writing the error.
func (st *deviceState) currentFlow(w http.ResponseWriter) *checkout.Flow {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.flow == nil {
		respondError(w, http.StatusConflict, "no checkout in progress")
		return nil
	}
	return st.flow
}

func (h *Handler) checkoutBack(w http.ResponseWriter, r *http.Request, st *deviceState) {
	flow := st.currentFlow(w)
	if flow == nil {
		return
	}
	// Backing out of payment discards any in-flight simulated attempt.
	st.mu.Lock()
	if st.sim != nil {
		st.sim.Cancel()
	}
	st.mu.Unlock()

	if err := flow.Back(); err != nil {
		respondFromError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, st.snapshot())
}

func (h *Handler) setCheckoutDetails(w http.ResponseWriter, r *http.Request, st *deviceState) {
	flow := st.currentFlow(w)
	if flow == nil {
		return
	}

	var details checkout.Details
	if err := decodeBody(r, &details); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := flow.SetDetails(details); err != nil {
		respondFromError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, st.snapshot())
}

func (h *Handler) selectPaymentMethod(w http.ResponseWriter, r *http.Request, st *deviceState) {
	flow := st.currentFlow(w)
	if flow == nil {
		return
	}

	var req struct {
		Method string `json:"method"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := flow.SelectMethod(req.Method); err != nil {
		respondFromError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, st.snapshot())
}

// submitCheckout places the order directly; it is the cash-on-delivery path.
// Mobile-money submissions go through the payment simulator instead.
func (h *Handler) submitCheckout(w http.ResponseWriter, r *http.Request, st *deviceState) {
	flow := st.currentFlow(w)
	if flow == nil {
		return
	}

	res, err := flow.Submit(r.Context())
	if err != nil {
		respondFromError(r.Context(), w, err)
		return
	}

	st.mu.Lock()
	st.result = &res
	st.submitErr = nil
	st.mu.Unlock()

	respondJSON(w, http.StatusCreated, st.snapshot())
}

// startPayment runs the simulated mobile-money attempt. The flow is
// submitted from the simulator's success callback, off the request, so the
// client polls GET /checkout/payment (or GET /checkout) for the outcome.
func (h *Handler) startPayment(w http.ResponseWriter, r *http.Request, st *deviceState) {
	flow := st.currentFlow(w)
	if flow == nil {
		return
	}

	var req struct {
		Phone string `json:"phone"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := flow.SelectMethod(checkout.MethodMobileMoney); err != nil {
		respondFromError(r.Context(), w, err)
		return
	}

	// The request context dies with this request; the callback re-derives a
	// context carrying the same credentials.
	token := bearerToken(r)

	st.mu.Lock()
	if st.sim == nil {
		st.sim = payment.New(func(payment.Receipt) {
			ctx := context.Background()
			if token != "" {
				ctx = marketplace.WithToken(ctx, token)
			}
			res, err := flow.Submit(ctx)
			st.mu.Lock()
			if err != nil {
				st.submitErr = err
			} else {
				st.result = &res
				st.submitErr = nil
			}
			st.mu.Unlock()
		}, h.simOpts...)
	}
	sim := st.sim
	st.mu.Unlock()

	if err := sim.Submit(req.Phone); err != nil {
		respondFromError(r.Context(), w, err)
		return
	}

	state, _ := sim.State()
	respondJSON(w, http.StatusAccepted, map[string]any{"state": state})
}

func (h *Handler) getPayment(w http.ResponseWriter, _ *http.Request, st *deviceState) {
	st.mu.Lock()
	sim := st.sim
	st.mu.Unlock()

	if sim == nil {
		respondError(w, http.StatusConflict, "no payment in progress")
		return
	}

	state, ref := sim.State()
	resp := map[string]any{"state": state}
	if ref != "" {
		resp["reference"] = ref
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) cancelPayment(w http.ResponseWriter, _ *http.Request, st *deviceState) {
	st.mu.Lock()
	sim := st.sim
	st.mu.Unlock()

	if sim != nil {
		sim.Cancel()
	}
	respondJSON(w, http.StatusOK, st.snapshot())
}
