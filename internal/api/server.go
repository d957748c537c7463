// Package api serves the optional read-only status endpoint
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mqttsensord/internal/poller"
)

// connectionChecker reports broker connectivity for the status payload.
type connectionChecker interface {
	IsConnected() bool
}

// Server exposes daemon diagnostics over HTTP. Read-only, intended for
// localhost or a trusted network.
type Server struct {
	router    *chi.Mux
	poller    *poller.Poller
	conn      connectionChecker
	logger    *log.Logger
	startedAt time.Time
}

// NewServer creates the status server.
func NewServer(p *poller.Poller, conn connectionChecker, logger *log.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		poller:    p,
		conn:      conn,
		logger:    logger,
		startedAt: time.Now(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/status", s.handleStatus)
	s.router.Get("/api/sensors", s.handleSensors)

	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Printf("[API] Status server listening on %s", addr)
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snaps := s.poller.Snapshots()

	failing := 0
	for _, snap := range snaps {
		if snap.Error != "" {
			failing++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connected":       s.conn.IsConnected(),
		"uptime_seconds":  int(time.Since(s.startedAt).Seconds()),
		"sensors":         len(snaps),
		"sensors_failing": failing,
	})
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.poller.Snapshots())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: Failed to encode JSON response: %v", err)
	}
}
