// Package cart implements the authoritative client-side shopping cart: a
// reconciling store over a durable local backend (the guest cart) and the
// remote marketplace cart (the server cart for authenticated sessions).
package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Item is one cart line. There is at most one Item per product ID and
// Quantity is always at least 1; a quantity dropping to zero or below removes
// the line instead.
type Item struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Unit      string          `json:"unit,omitempty"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns UnitPrice × Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LocalBackend is the durable guest-side storage: the serialized cart plus
// the last authenticated user seen on this device. Implementations live in
// internal/storage.
type LocalBackend interface {
	LoadCart(ctx context.Context) ([]Item, error)
	SaveCart(ctx context.Context, items []Item) error
	LastSeenUser(ctx context.Context) (string, error)
	SetLastSeenUser(ctx context.Context, userID string) error
}

// RemoteBackend is the server cart, reachable only for authenticated
// sessions. Mutations return the server's resulting cart as ground truth.
type RemoteBackend interface {
	GetCart(ctx context.Context) ([]Item, error)
	AddItem(ctx context.Context, productID string, quantity int) ([]Item, error)
	UpdateItem(ctx context.Context, productID string, quantity int) ([]Item, error)
	RemoveItem(ctx context.Context, productID string) ([]Item, error)
	ClearCart(ctx context.Context) error
}

// SyncState reports how a cart operation settled. Transport failures never
// surface as errors from the store: the mutation applies locally and the
// state says so, letting the UI optionally show a "not yet synced" hint.
type SyncState struct {
	Synced bool
	// Reason carries the server error behind a local fallback, nil otherwise.
	Reason error
}

// Synced is the state of an operation fully reflected server-side (or a
// purely local operation for a guest session).
func Synced() SyncState { return SyncState{Synced: true} }

// LocalFallback is the state of an operation applied locally after the
// server call failed.
func LocalFallback(reason error) SyncState { return SyncState{Reason: reason} }
