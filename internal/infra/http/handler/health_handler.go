package handler

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Pinger checks the liveness of a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version string
	checks  map[string]Pinger
}

// HealthHandlerOption configures the health handler.
type HealthHandlerOption func(*HealthHandler)

// WithDatabase registers the database readiness check.
func WithDatabase(p Pinger) HealthHandlerOption {
	return func(h *HealthHandler) {
		h.checks["database"] = p
	}
}

// WithRedis registers the Redis readiness check.
func WithRedis(p Pinger) HealthHandlerOption {
	return func(h *HealthHandler) {
		h.checks["redis"] = p
	}
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(version string, opts ...HealthHandlerOption) *HealthHandler {
	h := &HealthHandler{
		version: version,
		checks:  make(map[string]Pinger),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /healthz. It only reports process liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Ready handles GET /readyz. Dependencies are checked in parallel with a
// shared timeout; any failure makes the whole probe fail.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make(map[string]CheckResult, len(h.checks))
	healthy := true

	for name, check := range h.checks {
		wg.Add(1)
		go func(name string, check Pinger) {
			defer wg.Done()
			result := CheckResult{Status: "ok"}
			if err := check.Ping(ctx); err != nil {
				result = CheckResult{Status: "failed", Error: err.Error()}
			}
			mu.Lock()
			results[name] = result
			if result.Status != "ok" {
				healthy = false
			}
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	}

	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": results,
	})
}
