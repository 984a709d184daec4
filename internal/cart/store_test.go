package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agriteranga/storefront/internal/session"
)

// --- Mock backends ---

type memLocal struct {
	items    []Item
	lastUser string
	loadErr  error
}

func (m *memLocal) LoadCart(_ context.Context) ([]Item, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *memLocal) SaveCart(_ context.Context, items []Item) error {
	m.items = make([]Item, len(items))
	copy(m.items, items)
	return nil
}

func (m *memLocal) LastSeenUser(_ context.Context) (string, error) { return m.lastUser, nil }

func (m *memLocal) SetLastSeenUser(_ context.Context, userID string) error {
	m.lastUser = userID
	return nil
}

// memRemote is an in-memory server cart. Setting fail makes every call error.
type memRemote struct {
	items []Item
	fail  error
	adds  []string
}

func (m *memRemote) snapshot() []Item {
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

func (m *memRemote) GetCart(_ context.Context) ([]Item, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return m.snapshot(), nil
}

func (m *memRemote) AddItem(_ context.Context, productID string, quantity int) ([]Item, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.adds = append(m.adds, productID)
	for i := range m.items {
		if m.items[i].ID == productID {
			m.items[i].Quantity += quantity
			return m.snapshot(), nil
		}
	}
	m.items = append(m.items, Item{ID: productID, Name: "srv-" + productID, Quantity: quantity})
	return m.snapshot(), nil
}

func (m *memRemote) UpdateItem(_ context.Context, productID string, quantity int) ([]Item, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	for i := range m.items {
		if m.items[i].ID == productID {
			m.items[i].Quantity = quantity
		}
	}
	return m.snapshot(), nil
}

func (m *memRemote) RemoveItem(_ context.Context, productID string) ([]Item, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	kept := m.items[:0]
	for _, it := range m.items {
		if it.ID != productID {
			kept = append(kept, it)
		}
	}
	m.items = kept
	return m.snapshot(), nil
}

func (m *memRemote) ClearCart(_ context.Context) error {
	if m.fail != nil {
		return m.fail
	}
	m.items = nil
	return nil
}

// --- Helpers ---

func guestStore(local *memLocal, remote *memRemote) (*Store, *session.Provider) {
	p := session.NewProvider()
	return NewStore(local, remote, p), p
}

func authedStore(local *memLocal, remote *memRemote, userID string) (*Store, *session.Provider) {
	s, p := guestStore(local, remote)
	p.Set(session.Identity{UserID: userID, Authenticated: true})
	return s, p
}

func item(id string, price int64) Item {
	return Item{ID: id, Name: "item-" + id, UnitPrice: decimal.NewFromInt(price), Quantity: 1}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// --- Tests ---

func TestStore_GuestAddRemoveUpdate(t *testing.T) {
	ctx := context.Background()
	local := &memLocal{}
	s, _ := guestStore(local, &memRemote{})

	require.True(t, s.AddItem(ctx, item("p1", 1000)).Synced)
	require.True(t, s.AddItem(ctx, item("p1", 1000)).Synced)
	require.True(t, s.AddItem(ctx, item("p2", 500)).Synced)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, []string{"p1", "p2"}, ids(items))

	// Every mutation re-persists the full cart locally.
	assert.Equal(t, []string{"p1", "p2"}, ids(local.items))

	s.UpdateQuantity(ctx, "p2", 4)
	assert.Equal(t, 4, s.Items()[1].Quantity)

	s.RemoveItem(ctx, "p1")
	assert.Equal(t, []string{"p2"}, ids(s.Items()))
	assert.Equal(t, []string{"p2"}, ids(local.items))
}

func TestStore_QuantityFloorRemoves(t *testing.T) {
	ctx := context.Background()
	s, _ := guestStore(&memLocal{}, &memRemote{})
	s.AddItem(ctx, item("p1", 1000))
	s.AddItem(ctx, item("p2", 500))

	s.UpdateQuantity(ctx, "p1", 0)
	s.UpdateQuantity(ctx, "p2", -5)

	assert.Empty(t, s.Items())
}

func TestStore_TotalPrice(t *testing.T) {
	ctx := context.Background()
	s, _ := guestStore(&memLocal{}, &memRemote{})
	s.AddItem(ctx, item("p1", 1000))
	s.AddItem(ctx, item("p1", 1000))
	s.AddItem(ctx, item("p2", 250))

	assert.True(t, s.TotalPrice().Equal(decimal.NewFromInt(2250)))
}

func TestStore_LoadMergesGuestCartForSameUser(t *testing.T) {
	ctx := context.Background()
	local := &memLocal{
		items:    []Item{item("A", 100), item("B", 200)},
		lastUser: "u1",
	}
	remote := &memRemote{items: []Item{{ID: "A", Name: "srv-A", Quantity: 3}}}
	s, _ := authedStore(local, remote, "u1")

	require.True(t, s.Load(ctx).Synced)

	items := s.Items()
	assert.Equal(t, []string{"A", "B"}, ids(items))
	// A keeps the server quantity; only B was pushed.
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, []string{"B"}, remote.adds)
}

func TestStore_LoadMergesOnFirstLogin(t *testing.T) {
	ctx := context.Background()
	local := &memLocal{items: []Item{item("A", 100)}}
	remote := &memRemote{}
	s, _ := authedStore(local, remote, "u1")

	require.True(t, s.Load(ctx).Synced)

	assert.Equal(t, []string{"A"}, ids(s.Items()))
	assert.Equal(t, "u1", local.lastUser)
}

func TestStore_LoadDiscardsGuestCartForDifferentUser(t *testing.T) {
	ctx := context.Background()
	local := &memLocal{
		items:    []Item{item("A", 100), item("B", 200)},
		lastUser: "u1",
	}
	remote := &memRemote{items: []Item{{ID: "C", Quantity: 1}}}
	s, _ := authedStore(local, remote, "u2")

	require.True(t, s.Load(ctx).Synced)

	assert.Equal(t, []string{"C"}, ids(s.Items()))
	assert.Empty(t, remote.adds)
	assert.Equal(t, "u2", local.lastUser)
	// The guest cart was replaced by the server cart on disk as well.
	assert.Equal(t, []string{"C"}, ids(local.items))
}

func TestStore_LoadFallsBackToLocalOnFetchFailure(t *testing.T) {
	ctx := context.Background()
	local := &memLocal{items: []Item{item("A", 100)}, lastUser: "u1"}
	remote := &memRemote{fail: errors.New("cart service down")}
	s, _ := authedStore(local, remote, "u1")

	state := s.Load(ctx)
	assert.False(t, state.Synced)
	assert.Error(t, state.Reason)
	assert.Equal(t, []string{"A"}, ids(s.Items()))
}

func TestStore_GuestLoadUsesLocalOnly(t *testing.T) {
	ctx := context.Background()
	local := &memLocal{items: []Item{item("A", 100)}}
	remote := &memRemote{fail: errors.New("must not be called")}
	s, _ := guestStore(local, remote)

	require.True(t, s.Load(ctx).Synced)
	assert.Equal(t, []string{"A"}, ids(s.Items()))
}

func TestStore_AuthedMutationAdoptsServerCart(t *testing.T) {
	ctx := context.Background()
	remote := &memRemote{}
	s, _ := authedStore(&memLocal{}, remote, "u1")

	state := s.AddItem(ctx, item("p1", 1000))
	require.True(t, state.Synced)
	assert.Equal(t, "srv-p1", s.Items()[0].Name)
}

func TestStore_AuthedMutationFallsBackLocally(t *testing.T) {
	ctx := context.Background()
	local := &memLocal{}
	remote := &memRemote{fail: errors.New("boom")}
	s, _ := authedStore(local, remote, "u1")

	state := s.AddItem(ctx, item("p1", 1000))
	assert.False(t, state.Synced)
	assert.Error(t, state.Reason)

	// The mutation still applied locally and was persisted.
	require.Len(t, s.Items(), 1)
	assert.Equal(t, 1, s.Items()[0].Quantity)
	assert.Equal(t, []string{"p1"}, ids(local.items))
}

func TestStore_ClearAlwaysClearsLocally(t *testing.T) {
	ctx := context.Background()
	local := &memLocal{}
	remote := &memRemote{}
	s, _ := authedStore(local, remote, "u1")
	s.AddItem(ctx, item("p1", 1000))

	remote.fail = errors.New("boom")
	state := s.Clear(ctx)

	assert.False(t, state.Synced)
	assert.Empty(t, s.Items())
	assert.Empty(t, local.items)
}

func TestStore_WatchReloadsOnIdentityChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := &memLocal{items: []Item{item("A", 100)}}
	remote := &memRemote{items: []Item{{ID: "C", Quantity: 2}}}
	s, p := guestStore(local, remote)
	require.True(t, s.Load(ctx).Synced)
	require.Equal(t, []string{"A"}, ids(s.Items()))

	s.Watch(ctx, p.Subscribe())
	p.Set(session.Identity{UserID: "u1", Authenticated: true})

	assert.Eventually(t, func() bool {
		got := ids(s.Items())
		return len(got) == 2 && got[0] == "C" && got[1] == "A"
	}, testWaitFor, testTick)
}
