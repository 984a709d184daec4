// Package health provides Kubernetes-style liveness and readiness probes.
//
// Checks run on demand when a probe endpoint is hit, each under its own
// timeout. Readiness additionally gates on an explicit ready flag, flipped
// off first during graceful shutdown so load balancers drain the instance
// before the listener closes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports on one component: nil means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Service answers liveness and readiness probes.
type Service struct {
	ready atomic.Bool

	mu    sync.RWMutex
	live  []check
	readu []check
}

// New creates a Service in the not-ready state; call SetReady(true) once
// initialization completes.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a check for /livez: is the process functioning
// at all (goroutine leaks, deadlocks).
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = append(s.live, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check for /readyz: can the service take
// traffic (database reachable, dependencies up).
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readu = append(s.readu, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the readiness gate. Set false during graceful shutdown to
// stop receiving new traffic before the server closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness check passes.
func (s *Service) IsReady(ctx context.Context) bool {
	if !s.ready.Load() {
		return false
	}
	s.mu.RLock()
	checks := s.readu
	s.mu.RUnlock()
	return len(runChecks(ctx, checks)) == 0
}

// LiveEndpoint serves /livez: 200 when every liveness check passes, 503 with
// the failing checks otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checks := s.live
	s.mu.RUnlock()

	writeStatus(w, runChecks(r.Context(), checks))
}

// ReadyEndpoint serves /readyz: 200 when the gate is open and every
// readiness check passes, 503 with details otherwise.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checks := s.readu
	s.mu.RUnlock()

	failures := runChecks(r.Context(), checks)
	if !s.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

// runChecks executes every check under its timeout and returns the failures
// by name.
func runChecks(ctx context.Context, checks []check) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()
		if err != nil {
			failures[c.name] = err.Error()
		}
	}
	return failures
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp = statusResponse{Status: "unhealthy", Checks: failures}
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
