// Package session exposes the current identity and an identity-change stream.
// Consumers that must react to login/logout (the cart store) subscribe to the
// stream explicitly instead of listening on a global event bus.
package session

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// Identity is the authentication state the storefront branches on.
type Identity struct {
	UserID        string
	Authenticated bool
}

// Guest is the unauthenticated identity.
var Guest = Identity{}

// UserFetcher resolves the current user from the marketplace session
// endpoint. An authentication error means "not signed in", not a failure.
type UserFetcher interface {
	CurrentUser(ctx context.Context) (userID string, err error)
}

// ErrNotAuthenticated is returned by UserFetcher implementations when no
// session exists.
var ErrNotAuthenticated = errors.New("not authenticated")

// Provider holds the current identity and fans out changes to subscribers.
type Provider struct {
	mu    sync.Mutex
	ident Identity
	subs  []chan Identity
}

// NewProvider creates a Provider starting as Guest.
func NewProvider() *Provider {
	return &Provider{}
}

// Current returns the identity as of the last Set or Bootstrap.
func (p *Provider) Current() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ident
}

// Set replaces the identity and notifies subscribers when it changed.
// Notification is non-blocking: a subscriber that has not drained its channel
// misses intermediate states but always sees the latest on its next receive.
func (p *Provider) Set(ident Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ident == ident {
		return
	}
	p.ident = ident
	for _, ch := range p.subs {
		select {
		case ch <- ident:
		default:
			// Drop the stale value and replace it with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ident:
			default:
			}
		}
	}
}

// Subscribe registers an identity-change channel with a one-element buffer.
func (p *Provider) Subscribe() <-chan Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Identity, 1)
	p.subs = append(p.subs, ch)
	return ch
}

// Bootstrap resolves the session once from the marketplace and sets the
// identity accordingly. A fetch failure leaves the provider as Guest: the
// storefront degrades to guest mode rather than failing hard.
func (p *Provider) Bootstrap(ctx context.Context, fetcher UserFetcher) {
	userID, err := fetcher.CurrentUser(ctx)
	if err != nil {
		p.Set(Guest)
		return
	}
	p.Set(Identity{UserID: userID, Authenticated: true})
}
