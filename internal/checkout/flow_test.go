package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agriteranga/storefront/internal/cart"
	"github.com/agriteranga/storefront/internal/delivery"
	"github.com/agriteranga/storefront/internal/marketplace"
	"github.com/agriteranga/storefront/internal/order"
	"github.com/agriteranga/storefront/internal/session"
)

type memLocal struct {
	items    []cart.Item
	lastUser string
}

func (m *memLocal) LoadCart(context.Context) ([]cart.Item, error) { return m.items, nil }

func (m *memLocal) SaveCart(_ context.Context, items []cart.Item) error {
	m.items = items
	return nil
}

func (m *memLocal) LastSeenUser(context.Context) (string, error) { return m.lastUser, nil }

func (m *memLocal) SetLastSeenUser(_ context.Context, id string) error {
	m.lastUser = id
	return nil
}

type mockCreator struct {
	payloads []marketplace.OrderPayload
	response map[string]any
	err      error
}

func (m *mockCreator) CreateOrder(_ context.Context, p marketplace.OrderPayload) (map[string]any, error) {
	m.payloads = append(m.payloads, p)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func newTestStore(items ...cart.Item) *cart.Store {
	local := &memLocal{items: items}
	store := cart.NewStore(local, nil, session.NewProvider())
	store.Load(context.Background())
	return store
}

func validHomeDetails() Details {
	return Details{
		Name:       "Awa Diallo",
		Phone:      "+221771234567",
		Email:      "awa@example.sn",
		Method:     delivery.MethodHomeDelivery,
		City:       "Dakar",
		PostalCode: "12500",
	}
}

func TestDetailsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Details)
		wantErr []string
	}{
		{name: "valid home delivery", mutate: func(*Details) {}},
		{
			name:    "name too short",
			mutate:  func(d *Details) { d.Name = " A " },
			wantErr: []string{"name"},
		},
		{
			name:    "bad phone",
			mutate:  func(d *Details) { d.Phone = "call me" },
			wantErr: []string{"phone"},
		},
		{
			name:    "bad email",
			mutate:  func(d *Details) { d.Email = "not-an-email" },
			wantErr: []string{"email"},
		},
		{
			name:    "unknown city",
			mutate:  func(d *Details) { d.City = "Atlantis" },
			wantErr: []string{"city"},
		},
		{
			name:    "postal code too short",
			mutate:  func(d *Details) { d.PostalCode = "12" },
			wantErr: []string{"postalCode"},
		},
		{
			name:    "postal code bad characters",
			mutate:  func(d *Details) { d.PostalCode = "12_500!" },
			wantErr: []string{"postalCode"},
		},
		{
			name: "pickup point required",
			mutate: func(d *Details) {
				d.Method = delivery.MethodPickupPoint
				d.Location = ""
			},
			wantErr: []string{"location"},
		},
		{
			name: "valid pickup point",
			mutate: func(d *Details) {
				d.Method = delivery.MethodPickupPoint
				d.Location = delivery.PickupPoints[0]
			},
		},
		{
			name: "farm location required",
			mutate: func(d *Details) {
				d.Method = delivery.MethodFarmPickup
				d.Location = "somewhere"
			},
			wantErr: []string{"location"},
		},
		{
			name: "several failures reported together",
			mutate: func(d *Details) {
				d.Name = ""
				d.Email = "nope"
			},
			wantErr: []string{"name", "email"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validHomeDetails()
			tt.mutate(&d)
			errs := d.Validate()
			if len(tt.wantErr) == 0 {
				assert.Nil(t, errs)
				return
			}
			require.Len(t, errs, len(tt.wantErr))
			for _, field := range tt.wantErr {
				assert.Contains(t, errs, field)
			}
		})
	}
}

func TestFlowSequence(t *testing.T) {
	f := NewFlow(newTestStore(), &mockCreator{})

	assert.Equal(t, StepCart, f.Step())

	// No forward skips.
	assert.ErrorIs(t, f.SetDetails(validHomeDetails()), ErrInvalidTransition)
	assert.ErrorIs(t, f.SelectMethod(MethodCashOnDelivery), ErrInvalidTransition)
	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, f.Begin())
	assert.Equal(t, StepDelivery, f.Step())

	require.NoError(t, f.SetDetails(validHomeDetails()))
	assert.Equal(t, StepPayment, f.Step())

	// Back-navigation: payment returns to details, details closes to cart.
	require.NoError(t, f.Back())
	assert.Equal(t, StepDelivery, f.Step())
	require.NoError(t, f.Back())
	assert.Equal(t, StepCart, f.Step())
	assert.ErrorIs(t, f.Back(), ErrInvalidTransition)
}

func TestFlowValidationBlocksAdvance(t *testing.T) {
	f := NewFlow(newTestStore(), &mockCreator{})
	require.NoError(t, f.Begin())

	d := validHomeDetails()
	d.Email = "broken"
	err := f.SetDetails(d)

	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "email")
	assert.Equal(t, StepDelivery, f.Step())
}

func TestFlowFeeFixedAtDetailsStep(t *testing.T) {
	f := NewFlow(newTestStore(), &mockCreator{})
	require.NoError(t, f.Begin())
	require.NoError(t, f.SetDetails(validHomeDetails()))
	assert.True(t, f.DeliveryFee().Equal(decimal.NewFromInt(500)))

	// Going back and choosing a pickup point recomputes the fee to zero.
	require.NoError(t, f.Back())
	d := validHomeDetails()
	d.Method = delivery.MethodPickupPoint
	d.Location = delivery.PickupPoints[0]
	require.NoError(t, f.SetDetails(d))
	assert.True(t, f.DeliveryFee().IsZero())
}

func TestFlowSubmitCashOnDelivery(t *testing.T) {
	store := newTestStore(cart.Item{
		ID:        "prod-1",
		Name:      "Tomates Bio",
		UnitPrice: decimal.NewFromInt(1000),
		Quantity:  2,
	})
	creator := &mockCreator{response: map[string]any{"status": "pending"}}
	f := NewFlow(store, creator,
		WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }),
		WithRand(func() int { return 42 }),
	)

	require.NoError(t, f.Begin())
	require.NoError(t, f.SetDetails(validHomeDetails()))
	require.NoError(t, f.SelectMethod(MethodCashOnDelivery))

	res, err := f.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, creator.payloads, 1)
	p := creator.payloads[0]
	assert.Equal(t, "CMD-1700000000000-000042", p.OrderNumber)
	assert.Equal(t, MethodCashOnDelivery, p.PaymentMethod)
	assert.Equal(t, []marketplace.OrderItemRef{{Product: "prod-1", Quantity: 2}}, p.Items)
	assert.Equal(t, "Dakar", p.DeliveryInfo.City)
	assert.True(t, p.Totals.ProductsTotal.Equal(decimal.NewFromInt(2000)))
	assert.True(t, p.Totals.DeliveryFee.Equal(decimal.NewFromInt(500)))
	assert.True(t, p.Totals.TotalToPay.Equal(decimal.NewFromInt(2500)))

	assert.Equal(t, StepDone, f.Step())
	assert.False(t, res.Acknowledged)
	assert.Equal(t, order.StatusPending, res.Order.Status)
	assert.Equal(t, "CMD-1700000000000-000042", res.Order.OrderNumber)
	assert.Empty(t, store.Items(), "cart cleared after successful order")
}

func TestFlowSubmitFarmPickupAcknowledges(t *testing.T) {
	store := newTestStore(cart.Item{ID: "p1", UnitPrice: decimal.NewFromInt(500), Quantity: 1})
	f := NewFlow(store, &mockCreator{response: map[string]any{}})

	require.NoError(t, f.Begin())
	d := validHomeDetails()
	d.Method = delivery.MethodFarmPickup
	d.Location = delivery.FarmLocations[0]
	require.NoError(t, f.SetDetails(d))
	require.NoError(t, f.SelectMethod(MethodMobileMoney))

	res, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
}

func TestFlowSubmitFailureKeepsCartAndStep(t *testing.T) {
	store := newTestStore(cart.Item{ID: "p1", UnitPrice: decimal.NewFromInt(500), Quantity: 3})
	creator := &mockCreator{err: errors.New("stock épuisé pour Tomates Bio")}
	f := NewFlow(store, creator)

	require.NoError(t, f.Begin())
	require.NoError(t, f.SetDetails(validHomeDetails()))
	require.NoError(t, f.SelectMethod(MethodCashOnDelivery))

	_, err := f.Submit(context.Background())
	require.EqualError(t, err, "stock épuisé pour Tomates Bio")

	assert.Equal(t, StepPayment, f.Step(), "flow stays on payment step for retry")
	assert.Len(t, store.Items(), 1, "cart untouched on failure")

	// Retry succeeds once the backend recovers.
	creator.err = nil
	creator.response = map[string]any{}
	_, err = f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepDone, f.Step())
}

func TestFlowSubmitFiltersBlankIDs(t *testing.T) {
	store := newTestStore(
		cart.Item{ID: "  ", UnitPrice: decimal.NewFromInt(9999), Quantity: 1},
		cart.Item{ID: "p2", UnitPrice: decimal.NewFromInt(100), Quantity: 1},
	)
	creator := &mockCreator{response: map[string]any{}}
	f := NewFlow(store, creator)

	require.NoError(t, f.Begin())
	require.NoError(t, f.SetDetails(validHomeDetails()))
	require.NoError(t, f.SelectMethod(MethodCashOnDelivery))

	_, err := f.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, creator.payloads, 1)
	require.Len(t, creator.payloads[0].Items, 1)
	assert.Equal(t, "p2", creator.payloads[0].Items[0].Product)
	assert.True(t, creator.payloads[0].Totals.ProductsTotal.Equal(decimal.NewFromInt(100)))
}

func TestFlowSubmitEmptyCart(t *testing.T) {
	f := NewFlow(newTestStore(), &mockCreator{})

	require.NoError(t, f.Begin())
	require.NoError(t, f.SetDetails(validHomeDetails()))
	require.NoError(t, f.SelectMethod(MethodCashOnDelivery))

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StepPayment, f.Step())
}

func TestFlowSubmitRequiresMethod(t *testing.T) {
	f := NewFlow(newTestStore(cart.Item{ID: "p1", Quantity: 1}), &mockCreator{})

	require.NoError(t, f.Begin())
	require.NoError(t, f.SetDetails(validHomeDetails()))

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoPaymentMethod)
}
