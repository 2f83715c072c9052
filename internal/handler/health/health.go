// Package health serves /healthz from a set of named dependency checks.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

type Handler struct {
	checks  map[string]Checker
	timeout time.Duration
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, checks map[string]Checker) *Handler {
	return &Handler{checks: checks, timeout: 3 * time.Second, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type result struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

// check runs every dependency check concurrently; one slow dependency does
// not hold up reporting on the others beyond the shared timeout.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]result, len(h.checks))
		status  = http.StatusOK
		g       errgroup.Group
	)

	for name, c := range h.checks {
		g.Go(func() error {
			start := time.Now()
			err := c.Check(ctx)
			res := result{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				h.logger.Error("health check failed", "name", name, "error", err)
				res.Status = "error"
				status = http.StatusServiceUnavailable
			}
			results[name] = res
			return nil
		})
	}
	g.Wait()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(results)
}
