package order

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

// enrichConcurrency bounds the deliverer lookups issued per reload.
const enrichConcurrency = 4

// API is the slice of the marketplace client the tracker needs.
type API interface {
	ListMyOrders(ctx context.Context, page, limit int) ([]map[string]any, error)
	CancelOrder(ctx context.Context, id, reason string) error
}

// DelivererLookup resolves a delivery assignment to its courier. Used to
// enrich orders whose payload carries an assignment ID but no deliverer.
type DelivererLookup interface {
	GetDeliveryDetails(ctx context.Context, assignmentID string) (*Deliverer, error)
}

// Tracker holds the customer's normalized order list and implements the
// tracking-view operations: reload and cancellation. Cancellation reflects
// Annulé locally as soon as the server accepts it, then reconciles with a
// full reload; a failed cancel leaves local state untouched.
type Tracker struct {
	api    API
	lookup DelivererLookup
	norm   Normalizer
	limit  int

	mu     sync.Mutex
	orders []Order
}

// NewTracker creates a Tracker. lookup may be nil, disabling deliverer
// enrichment.
func NewTracker(api API, lookup DelivererLookup, norm Normalizer) *Tracker {
	return &Tracker{api: api, lookup: lookup, norm: norm, limit: 50}
}

// Reload fetches the first page of orders, normalizes every payload, and
// enriches missing deliverers through the assignment lookup.
func (t *Tracker) Reload(ctx context.Context) error {
	raws, err := t.api.ListMyOrders(ctx, 1, t.limit)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}

	orders := make([]Order, len(raws))
	for i, raw := range raws {
		orders[i] = t.norm.Normalize(raw)
	}
	t.enrich(ctx, orders)

	t.mu.Lock()
	t.orders = orders
	t.mu.Unlock()
	return nil
}

// enrich fills in deliverers for orders that carry an assignment ID but no
// deliverer object. Lookups are best-effort: a failed fetch leaves the order
// unassigned. The fan-out is bounded; each goroutine writes a distinct index.
func (t *Tracker) enrich(ctx context.Context, orders []Order) {
	if t.lookup == nil {
		return
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range orders {
		if orders[i].Deliverer != nil || orders[i].AssignmentID == "" {
			continue
		}
		g.Go(func() error {
			d, err := t.lookup.GetDeliveryDetails(ctx, orders[i].AssignmentID)
			if err == nil && d != nil {
				orders[i].Deliverer = d
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Orders returns a snapshot of the tracked orders.
func (t *Tracker) Orders() []Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Order, len(t.orders))
	copy(out, t.orders)
	return out
}

// Get returns the tracked order with the given order number.
func (t *Tracker) Get(orderNumber string) (Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, o := range t.orders {
		if o.OrderNumber == orderNumber {
			return o, true
		}
	}
	return Order{}, false
}

// Cancel asks the server to cancel the order. On success the local view flips
// to Annulé immediately, then a best-effort reload reconciles with the server.
// On failure the error is returned and nothing changes locally.
func (t *Tracker) Cancel(ctx context.Context, orderNumber, reason string) error {
	if err := t.api.CancelOrder(ctx, orderNumber, reason); err != nil {
		return err
	}

	t.mu.Lock()
	for i := range t.orders {
		if t.orders[i].OrderNumber == orderNumber {
			t.orders[i].Status = StatusCancelled
		}
	}
	t.mu.Unlock()

	// Reconcile; the optimistic Annulé above survives a failed reload.
	_ = t.Reload(ctx)
	return nil
}
