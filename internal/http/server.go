// Package http exposes the JSON control surface of the recurring engine:
// definition CRUD-lite (create, list, pause, resume) and the on-demand
// catch-up trigger.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetwise/internal/services"
)

type Server struct {
	http.Server

	lifecycle *services.Lifecycle
	catchup   *services.CatchUp

	// now is swapped out in tests for deterministic schedules.
	now func() time.Time

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, lifecycle *services.Lifecycle, catchup *services.CatchUp) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		lifecycle:   lifecycle,
		catchup:     catchup,
		now:         time.Now,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/api/recurring", s.withMiddleware(s.handleRecurring))
	mux.HandleFunc("/api/recurring/pause", s.withMiddleware(s.handlePause))
	mux.HandleFunc("/api/recurring/resume", s.withMiddleware(s.handleResume))
	mux.HandleFunc("/api/recurring/sync", s.withMiddleware(s.handleSync))

	return s
}

// Shutdown stops the listener and the rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
