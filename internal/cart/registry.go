package cart

import (
	"sync"

	"github.com/agriteranga/storefront/internal/session"
)

// BackendFactory builds the durable local backend scoped to one device. The
// owner ID is the device identifier presented by the storefront client.
type BackendFactory func(ownerID string) LocalBackend

// Entry groups the per-device store with its session provider.
type Entry struct {
	Store   *Store
	Session *session.Provider
}

// Registry hands out one cart store per device, creating stores lazily. The
// remote backend is shared: it scopes calls by the credentials carried in the
// request context.
type Registry struct {
	newLocal BackendFactory
	remote   RemoteBackend

	mu      sync.Mutex
	entries map[string]*Entry
}

// NewRegistry creates an empty Registry.
func NewRegistry(newLocal BackendFactory, remote RemoteBackend) *Registry {
	return &Registry{
		newLocal: newLocal,
		remote:   remote,
		entries:  make(map[string]*Entry),
	}
}

// Get returns the entry for ownerID, creating it on first use.
func (r *Registry) Get(ownerID string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[ownerID]; ok {
		return e
	}
	provider := session.NewProvider()
	e := &Entry{
		Store:   NewStore(r.newLocal(ownerID), r.remote, provider),
		Session: provider,
	}
	r.entries[ownerID] = e
	return e
}
