// Package checkout sequences the cart-review, delivery-details,
// payment-selection and order-submission steps of a purchase.
package checkout

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/agriteranga/storefront/internal/cart"
	"github.com/agriteranga/storefront/internal/delivery"
	"github.com/agriteranga/storefront/internal/marketplace"
	"github.com/agriteranga/storefront/internal/order"
)

// Step identifies a position in the checkout sequence.
type Step string

const (
	StepCart       Step = "cart"
	StepDelivery   Step = "delivery-details"
	StepPayment    Step = "payment-selection"
	StepSubmitting Step = "submitting"
	StepDone       Step = "done"
)

// Payment method tags attached to the order payload.
const (
	MethodCashOnDelivery = "cash-on-delivery"
	MethodMobileMoney    = "mobile-money"
)

var (
	// ErrEmptyCart aborts a submission whose item list came out empty.
	ErrEmptyCart = errors.New("le panier est vide")
	// ErrInvalidTransition rejects a step change the sequence does not allow.
	ErrInvalidTransition = errors.New("invalid checkout transition")
	// ErrNoPaymentMethod rejects submission before a method was selected.
	ErrNoPaymentMethod = errors.New("aucun moyen de paiement sélectionné")
)

// OrderCreator is the slice of the marketplace client the flow needs.
type OrderCreator interface {
	CreateOrder(ctx context.Context, payload marketplace.OrderPayload) (map[string]any, error)
}

// Result is the outcome of a successful submission.
type Result struct {
	Order order.Order
	// Acknowledged is set for farm pickups: the flow ends on a thank-you
	// acknowledgment instead of redirecting to order tracking.
	Acknowledged bool
}

// Flow drives one checkout through
// Cart → DeliveryDetails → PaymentSelection → Submitting → Done.
// Back-navigation is allowed from PaymentSelection to DeliveryDetails and
// from DeliveryDetails to Cart; forward steps cannot be skipped.
type Flow struct {
	store *cart.Store
	api   OrderCreator
	fees  delivery.FeeTable
	norm  order.Normalizer
	now   func() time.Time
	rand  func() int

	mu      sync.Mutex
	step    Step
	details Details
	info    delivery.Info
	fee     decimal.Decimal
	method  string
}

// Option configures a Flow.
type Option func(*Flow)

// WithClock overrides the time source used for order numbers.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// WithRand overrides the random suffix source used for order numbers.
func WithRand(r func() int) Option {
	return func(f *Flow) { f.rand = r }
}

// NewFlow creates a checkout flow over the given cart at the cart-review step.
func NewFlow(store *cart.Store, api OrderCreator, opts ...Option) *Flow {
	f := &Flow{
		store: store,
		api:   api,
		fees:  delivery.DefaultFeeTable(),
		norm:  order.NewNormalizer(),
		now:   time.Now,
		rand:  func() int { return rand.IntN(1_000_000) },
		step:  StepCart,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Step returns the current position in the sequence.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// DeliveryFee returns the fee computed when the details step was completed.
func (f *Flow) DeliveryFee() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fee
}

// Begin moves from cart review to delivery-details capture.
func (f *Flow) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepCart {
		return errors.Wrapf(ErrInvalidTransition, "begin from %s", f.step)
	}
	f.step = StepDelivery
	return nil
}

// SetDetails validates the form and, on success, computes the delivery fee
// and advances to payment selection. The fee and delivery info are fixed
// from this point on; going back and resubmitting the form recomputes them.
func (f *Flow) SetDetails(d Details) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepDelivery {
		return errors.Wrapf(ErrInvalidTransition, "details from %s", f.step)
	}
	if errs := d.Validate(); errs != nil {
		return errs
	}
	f.details = d
	f.info = d.Info()
	f.fee = f.fees.Fee(f.info)
	f.step = StepPayment
	return nil
}

// SelectMethod records the payment method. Re-selection before submission is
// always allowed.
func (f *Flow) SelectMethod(method string) error {
	if method != MethodCashOnDelivery && method != MethodMobileMoney {
		return errors.Errorf("unknown payment method %q", method)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepPayment {
		return errors.Wrapf(ErrInvalidTransition, "select method from %s", f.step)
	}
	f.method = method
	return nil
}

// Back retreats one step: payment selection returns to delivery details, and
// delivery details closes back to cart review.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepPayment:
		f.step = StepDelivery
		f.method = ""
	case StepDelivery:
		f.step = StepCart
	default:
		return errors.Wrapf(ErrInvalidTransition, "back from %s", f.step)
	}
	return nil
}

// Submit creates the order from the authoritative cart contents. On success
// the cart is cleared and the flow ends at Done; a farm pickup yields an
// acknowledgment result instead of a redirect. On failure the flow stays at
// payment selection with the cart untouched so the user can retry, and the
// server's message is returned verbatim.
func (f *Flow) Submit(ctx context.Context) (Result, error) {
	f.mu.Lock()
	if f.step != StepPayment {
		f.mu.Unlock()
		return Result{}, errors.Wrapf(ErrInvalidTransition, "submit from %s", f.step)
	}
	if f.method == "" {
		f.mu.Unlock()
		return Result{}, ErrNoPaymentMethod
	}
	f.step = StepSubmitting
	info := f.info
	fee := f.fee
	method := f.method
	f.mu.Unlock()

	payload, err := f.buildPayload(ctx, info, fee, method)
	if err != nil {
		f.backToPayment()
		return Result{}, err
	}

	raw, err := f.api.CreateOrder(ctx, payload)
	if err != nil {
		f.backToPayment()
		return Result{}, err
	}

	created := f.norm.Normalize(raw)
	if created.OrderNumber == "" {
		created.OrderNumber = payload.OrderNumber
	}

	f.store.Clear(ctx)

	f.mu.Lock()
	f.step = StepDone
	f.mu.Unlock()

	return Result{
		Order:        created,
		Acknowledged: info.Method == delivery.MethodFarmPickup,
	}, nil
}

func (f *Flow) backToPayment() {
	f.mu.Lock()
	f.step = StepPayment
	f.mu.Unlock()
}

// buildPayload snapshots the cart into a create-order request. The cart is
// reloaded first so the server copy, when reachable, is authoritative.
func (f *Flow) buildPayload(ctx context.Context, info delivery.Info, fee decimal.Decimal, method string) (marketplace.OrderPayload, error) {
	f.store.Load(ctx)

	var (
		items    []marketplace.OrderItemRef
		subtotal = decimal.Zero
	)
	for _, it := range f.store.Items() {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			continue
		}
		items = append(items, marketplace.OrderItemRef{Product: id, Quantity: it.Quantity})
		subtotal = subtotal.Add(it.LineTotal())
	}
	if len(items) == 0 {
		return marketplace.OrderPayload{}, ErrEmptyCart
	}

	return marketplace.OrderPayload{
		OrderNumber:   f.orderNumber(),
		Items:         items,
		PaymentMethod: method,
		DeliveryInfo:  info,
		DeliveryFee:   fee,
		Totals: marketplace.OrderTotals{
			ProductsTotal: subtotal,
			DeliveryFee:   fee,
			TotalToPay:    subtotal.Add(fee),
		},
	}, nil
}

// orderNumber generates the client-side display id used when the backend
// does not assign one.
func (f *Flow) orderNumber() string {
	return fmt.Sprintf("CMD-%d-%06d", f.now().UnixMilli(), f.rand())
}

// Details returns the captured delivery-details form.
func (f *Flow) Details() Details {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details
}

// Method returns the currently selected payment method, if any.
func (f *Flow) Method() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.method
}
