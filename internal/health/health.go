// Package health serves the relay's health and debug endpoints.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/topicrelay/internal/routes"
	"github.com/rickgao/topicrelay/internal/version"
)

// debugRoutesLimit caps the entries returned by /debug/routes.
const debugRoutesLimit = 100

// RouteSource is the routing table as seen by the health endpoints.
type RouteSource interface {
	Ping(ctx context.Context) error
	Entries() []routes.Entry
	Stats() routes.Stats
}

// Deps are the components reported on.
type Deps struct {
	Routes RouteSource

	// Components adds named stats snapshots (poller, router, relay).
	Components map[string]func() any
}

// Server wraps the HTTP server for the health endpoints.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a server on the given port.
func NewServer(port int, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           NewHandler(deps, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting health server", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server error", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type healthResponse struct {
	Status     string         `json:"status"`
	Version    version.Info   `json:"version"`
	Components map[string]any `json:"components"`
}

// NewHandler creates the HTTP handler for health checks.
func NewHandler(deps Deps, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := healthResponse{
			Status:     "healthy",
			Version:    version.Get(),
			Components: make(map[string]any),
		}

		if err := deps.Routes.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["store"] = map[string]string{
				"status": "unreachable",
				"error":  err.Error(),
			}
		} else {
			health.Components["store"] = "connected"
		}

		health.Components["routes"] = deps.Routes.Stats()
		for name, stats := range deps.Components {
			health.Components[name] = stats()
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})

	mux.HandleFunc("/debug/routes", func(w http.ResponseWriter, r *http.Request) {
		entries := deps.Routes.Entries()
		count := len(entries)
		if len(entries) > debugRoutesLimit {
			entries = entries[:debugRoutesLimit]
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count":   count,
			"showing": len(entries),
			"routes":  entries,
		})
	})

	return mux
}
