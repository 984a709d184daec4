// Package localstore persists the guest cart on the gateway's filesystem,
// one directory per device.
package localstore

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/agriteranga/storefront/internal/cart"
)

const (
	cartFile     = "cart.json"
	lastUserFile = "last-user"
)

// Store is a file-backed cart.LocalBackend. Writes go through a temp file
// and rename, so a crashed write never leaves a truncated cart behind.
type Store struct {
	dir string
}

// New creates the per-device directory under root and returns its store.
// The owner id is hex-encoded into the directory name, so arbitrary device
// identifiers cannot escape root.
func New(root, owner string) (*Store, error) {
	dir := filepath.Join(root, hex.EncodeToString([]byte(owner)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create store dir")
	}
	return &Store{dir: dir}, nil
}

var _ cart.LocalBackend = (*Store)(nil)

// LoadCart reads the serialized cart. A missing file is an empty cart.
func (s *Store) LoadCart(context.Context) ([]cart.Item, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, cartFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read cart")
	}
	items, err := decodeItems(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return items, nil
}

// SaveCart replaces the serialized cart.
func (s *Store) SaveCart(_ context.Context, items []cart.Item) error {
	return s.writeFile(cartFile, encodeItems(items))
}

// LastSeenUser returns the last authenticated user id recorded on this
// device, or empty if none was.
func (s *Store) LastSeenUser(context.Context) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, lastUserFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "read last user")
	}
	return string(data), nil
}

// SetLastSeenUser records the last authenticated user id.
func (s *Store) SetLastSeenUser(_ context.Context, userID string) error {
	return s.writeFile(lastUserFile, []byte(userID))
}

func (s *Store) writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "replace file")
	}
	return nil
}

func encodeItems(items []cart.Item) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("unitPrice")
		e.Str(it.UnitPrice.String())
		if it.Unit != "" {
			e.FieldStart("unit")
			e.Str(it.Unit)
		}
		if it.ImageURL != "" {
			e.FieldStart("imageUrl")
			e.Str(it.ImageURL)
		}
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeItems(data []byte) ([]cart.Item, error) {
	d := jx.DecodeBytes(data)

	var items []cart.Item
	if err := d.Arr(func(d *jx.Decoder) error {
		var it cart.Item
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "id":
				v, err := d.Str()
				it.ID = v
				return err
			case "name":
				v, err := d.Str()
				it.Name = v
				return err
			case "unitPrice":
				v, err := d.Str()
				if err != nil {
					return err
				}
				price, err := decimal.NewFromString(v)
				if err != nil {
					return errors.Wrap(err, "unit price")
				}
				it.UnitPrice = price
				return nil
			case "unit":
				v, err := d.Str()
				it.Unit = v
				return err
			case "imageUrl":
				v, err := d.Str()
				it.ImageURL = v
				return err
			case "quantity":
				v, err := d.Int()
				it.Quantity = v
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, err
	}
	return items, nil
}
