package session

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	userID string
	err    error
}

func (m *mockFetcher) CurrentUser(_ context.Context) (string, error) {
	return m.userID, m.err
}

func TestProvider_SetNotifiesSubscribers(t *testing.T) {
	p := NewProvider()
	ch := p.Subscribe()

	p.Set(Identity{UserID: "u1", Authenticated: true})

	select {
	case got := <-ch:
		assert.Equal(t, "u1", got.UserID)
		assert.True(t, got.Authenticated)
	default:
		t.Fatal("expected buffered identity change")
	}
}

func TestProvider_SetSameIdentityIsSilent(t *testing.T) {
	p := NewProvider()
	p.Set(Identity{UserID: "u1", Authenticated: true})
	ch := p.Subscribe()

	p.Set(Identity{UserID: "u1", Authenticated: true})

	select {
	case <-ch:
		t.Fatal("no notification expected for identical identity")
	default:
	}
}

func TestProvider_SlowSubscriberSeesLatest(t *testing.T) {
	p := NewProvider()
	ch := p.Subscribe()

	p.Set(Identity{UserID: "u1", Authenticated: true})
	p.Set(Identity{UserID: "u2", Authenticated: true})
	p.Set(Guest)

	got := <-ch
	assert.Equal(t, Guest, got)
}

func TestProvider_Bootstrap(t *testing.T) {
	p := NewProvider()
	p.Bootstrap(context.Background(), &mockFetcher{userID: "u9"})

	ident := p.Current()
	require.True(t, ident.Authenticated)
	assert.Equal(t, "u9", ident.UserID)
}

func TestProvider_BootstrapFailureStaysGuest(t *testing.T) {
	p := NewProvider()
	p.Bootstrap(context.Background(), &mockFetcher{err: errors.New("session expired")})

	assert.Equal(t, Guest, p.Current())
}
