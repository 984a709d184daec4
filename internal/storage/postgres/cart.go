package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agriteranga/storefront/internal/cart"
)

var _ cart.LocalBackend = (*CartStore)(nil)

// CartStore implements cart.LocalBackend on the guest_carts table, one row
// per device.
type CartStore struct {
	pool  *pgxpool.Pool
	owner string
}

// NewCartStore returns the cart backend for one device.
func NewCartStore(pool *pgxpool.Pool, owner string) *CartStore {
	return &CartStore{pool: pool, owner: owner}
}

// LoadCart reads the serialized cart. A device without a row has an empty
// cart.
func (s *CartStore) LoadCart(ctx context.Context) ([]cart.Item, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT items FROM guest_carts WHERE owner_id = $1`,
		s.owner,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "loading cart for %q", s.owner)
	}

	var items []cart.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(err, "decoding cart for %q", s.owner)
	}
	return items, nil
}

// SaveCart replaces the serialized cart, creating the device row on first
// write.
func (s *CartStore) SaveCart(ctx context.Context, items []cart.Item) error {
	if items == nil {
		items = []cart.Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return errors.Wrapf(err, "encoding cart for %q", s.owner)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO guest_carts (owner_id, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (owner_id)
		DO UPDATE SET items = EXCLUDED.items, updated_at = now()`,
		s.owner, raw,
	)
	if err != nil {
		return errors.Wrapf(err, "saving cart for %q", s.owner)
	}
	return nil
}

// LastSeenUser returns the last authenticated user recorded for this device.
func (s *CartStore) LastSeenUser(ctx context.Context) (string, error) {
	var last string
	err := s.pool.QueryRow(ctx,
		`SELECT last_seen_user FROM guest_carts WHERE owner_id = $1`,
		s.owner,
	).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrapf(err, "loading last seen user for %q", s.owner)
	}
	return last, nil
}

// SetLastSeenUser records the last authenticated user for this device.
func (s *CartStore) SetLastSeenUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guest_carts (owner_id, last_seen_user, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (owner_id)
		DO UPDATE SET last_seen_user = EXCLUDED.last_seen_user, updated_at = now()`,
		s.owner, userID,
	)
	if err != nil {
		return errors.Wrapf(err, "saving last seen user for %q", s.owner)
	}
	return nil
}
