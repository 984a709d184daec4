package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/agriteranga/storefront/internal/session"
)

// Store is the reconciling cart: the single source of truth for the in-memory
// cart, kept in sync with the local backend on every mutation and with the
// server cart whenever the session is authenticated.
//
// All operations serialize on one mutex; interleaved callers are last-write-
// wins on the local persistence, which is acceptable for a single shopper.
type Store struct {
	local  LocalBackend
	remote RemoteBackend
	idents *session.Provider

	mu    sync.Mutex
	items []Item
}

// NewStore creates a Store. It holds no items until Load resolves the active
// cart.
func NewStore(local LocalBackend, remote RemoteBackend, idents *session.Provider) *Store {
	return &Store{local: local, remote: remote, idents: idents}
}

// Watch reloads the cart on every identity change until ctx is cancelled.
// The updates channel comes from the session provider's Subscribe.
func (s *Store) Watch(ctx context.Context, updates <-chan session.Identity) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-updates:
				s.Load(ctx)
			}
		}
	}()
}

// Load resolves the active cart.
//
// Authenticated sessions fetch the server cart. When the device last saw the
// same user (or no user at all, a guest signing in for the first time), any
// locally held items absent from the server cart are merged in, one
// sequential add per item to keep server mutation order deterministic,
// followed by a refetch. A different last-seen user means the guest cart is
// discarded to prevent cross-account leakage. A fetch failure degrades to
// the local cart. Guest sessions load from local storage only.
func (s *Store) Load(ctx context.Context) SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident := s.idents.Current()
	if !ident.Authenticated {
		s.items = s.loadLocal(ctx)
		return Synced()
	}

	serverItems, err := s.remote.GetCart(ctx)
	if err != nil {
		s.items = s.loadLocal(ctx)
		return LocalFallback(err)
	}

	last, _ := s.local.LastSeenUser(ctx)
	if last == "" || last == ident.UserID {
		serverItems = s.mergeGuestItems(ctx, serverItems)
	}

	s.items = serverItems
	s.persist(ctx, ident)
	return Synced()
}

// mergeGuestItems pushes local items missing from the server cart, then
// refetches. Adds are best-effort and strictly sequential.
func (s *Store) mergeGuestItems(ctx context.Context, serverItems []Item) []Item {
	onServer := make(map[string]struct{}, len(serverItems))
	for _, it := range serverItems {
		onServer[it.ID] = struct{}{}
	}

	merged := 0
	for _, it := range s.loadLocal(ctx) {
		if _, ok := onServer[it.ID]; ok {
			continue
		}
		if _, err := s.remote.AddItem(ctx, it.ID, it.Quantity); err == nil {
			merged++
		}
	}
	if merged == 0 {
		return serverItems
	}
	if refreshed, err := s.remote.GetCart(ctx); err == nil {
		return refreshed
	}
	return serverItems
}

// AddItem adds one unit of the product. Server-first when authenticated,
// adopting the returned cart as ground truth; otherwise (or on failure) an
// optimistic local update increments the existing line or appends a new one.
func (s *Store) AddItem(ctx context.Context, product Item) SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident := s.idents.Current()
	if ident.Authenticated {
		if serverItems, err := s.remote.AddItem(ctx, product.ID, 1); err == nil {
			s.items = serverItems
			s.persist(ctx, ident)
			return Synced()
		} else {
			s.addLocal(product)
			s.persist(ctx, ident)
			return LocalFallback(err)
		}
	}

	s.addLocal(product)
	s.persist(ctx, ident)
	return Synced()
}

func (s *Store) addLocal(product Item) {
	for i := range s.items {
		if s.items[i].ID == product.ID {
			s.items[i].Quantity++
			return
		}
	}
	product.Quantity = 1
	s.items = append(s.items, product)
}

// RemoveItem deletes the line for productID.
func (s *Store) RemoveItem(ctx context.Context, productID string) SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, productID)
}

func (s *Store) removeLocked(ctx context.Context, productID string) SyncState {
	ident := s.idents.Current()
	if ident.Authenticated {
		if serverItems, err := s.remote.RemoveItem(ctx, productID); err == nil {
			s.items = serverItems
			s.persist(ctx, ident)
			return Synced()
		} else {
			s.removeLocal(productID)
			s.persist(ctx, ident)
			return LocalFallback(err)
		}
	}

	s.removeLocal(productID)
	s.persist(ctx, ident)
	return Synced()
}

func (s *Store) removeLocal(productID string) {
	kept := s.items[:0]
	for _, it := range s.items {
		if it.ID != productID {
			kept = append(kept, it)
		}
	}
	s.items = kept
}

// UpdateQuantity sets the line quantity. Quantities of zero or below remove
// the line; a stored zero or negative quantity never exists.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(ctx, productID)
	}

	ident := s.idents.Current()
	if ident.Authenticated {
		if serverItems, err := s.remote.UpdateItem(ctx, productID, quantity); err == nil {
			s.items = serverItems
			s.persist(ctx, ident)
			return Synced()
		} else {
			s.updateLocal(productID, quantity)
			s.persist(ctx, ident)
			return LocalFallback(err)
		}
	}

	s.updateLocal(productID, quantity)
	s.persist(ctx, ident)
	return Synced()
}

func (s *Store) updateLocal(productID string, quantity int) {
	for i := range s.items {
		if s.items[i].ID == productID {
			s.items[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the cart. A failed server clear still clears locally so the
// UI never shows a stuck cart.
func (s *Store) Clear(ctx context.Context) SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := Synced()
	ident := s.idents.Current()
	if ident.Authenticated {
		if err := s.remote.ClearCart(ctx); err != nil {
			state = LocalFallback(err)
		}
	}

	s.items = nil
	s.persist(ctx, ident)
	return state
}

// Items returns a snapshot of the cart in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// TotalPrice folds Σ(unitPrice × quantity) over the current items.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// loadLocal reads the guest cart, treating a read failure as an empty cart.
func (s *Store) loadLocal(ctx context.Context) []Item {
	items, err := s.local.LoadCart(ctx)
	if err != nil {
		return nil
	}
	return items
}

// persist mirrors the in-memory cart to the local backend and, for
// authenticated sessions, records the active user for future merge/discard
// decisions. Both writes are best-effort.
func (s *Store) persist(ctx context.Context, ident session.Identity) {
	_ = s.local.SaveCart(ctx, s.items)
	if ident.Authenticated {
		_ = s.local.SetLastSeenUser(ctx, ident.UserID)
	}
}
