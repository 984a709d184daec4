package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, fn http.HandlerFunc) (int, statusResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func TestLiveEndpoint(t *testing.T) {
	svc := New()
	svc.AddLivenessCheck("always-ok", time.Second, func(context.Context) error { return nil })

	code, body := probe(t, svc.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)

	svc.AddLivenessCheck("always-broken", time.Second, func(context.Context) error {
		return errors.New("component down")
	})

	code, body = probe(t, svc.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "component down", body.Checks["always-broken"])
}

func TestReadyEndpointGate(t *testing.T) {
	svc := New()

	// Not ready until flagged, even with no checks registered.
	code, body := probe(t, svc.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "_readiness")

	svc.SetReady(true)
	code, body = probe(t, svc.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)

	// Shutdown flips the gate back.
	svc.SetReady(false)
	code, _ = probe(t, svc.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReadyEndpointRunsChecks(t *testing.T) {
	svc := New()
	svc.SetReady(true)

	failing := false
	svc.AddReadinessCheck("database", time.Second, func(context.Context) error {
		if failing {
			return errors.New("connection refused")
		}
		return nil
	})

	code, _ := probe(t, svc.ReadyEndpoint)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, svc.IsReady(context.Background()))

	failing = true
	code, body := probe(t, svc.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "connection refused", body.Checks["database"])
	assert.False(t, svc.IsReady(context.Background()))
}

func TestCheckTimeout(t *testing.T) {
	svc := New()
	svc.AddLivenessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	code, body := probe(t, svc.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks["slow"], "context deadline exceeded")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
