package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/agriteranga/storefront/internal/marketplace"
	"github.com/agriteranga/storefront/internal/session"
)

// authenticate resolves the caller's identity from the Authorization header
// and publishes it to the device's session provider. The returned context
// carries the bearer token for downstream marketplace calls.
//
// A failed probe means "not signed in", never a request failure: the device
// degrades to a guest session and keeps working against local state.
func (h *Handler) authenticate(r *http.Request, st *deviceState) context.Context {
	ctx := r.Context()

	token := bearerToken(r)
	if token == "" {
		st.entry.Session.Set(session.Guest)
		return ctx
	}

	ctx = marketplace.WithToken(ctx, token)
	userID, err := h.client.CurrentUser(ctx)
	st.entry.Session.Set(identityFor(userID, err))
	return ctx
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func identityFor(userID string, err error) session.Identity {
	if err != nil || userID == "" {
		return session.Guest
	}
	return session.Identity{UserID: userID, Authenticated: true}
}
