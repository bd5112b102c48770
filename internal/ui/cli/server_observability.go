package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lazyresolve/internal/core/app"
)

type healthStatus struct {
	Status    string    `json:"status"`
	SessionID string    `json:"session_id,omitempty"`
	Files     int       `json:"files"`
	BuiltAt   time.Time `json:"built_at,omitempty"`
}

// ObservabilityServer serves /metrics and a /health probe that reports the latest session.
type ObservabilityServer struct {
	addr   string
	app    *app.App
	server *http.Server
}

func NewObservabilityServer(addr string, a *app.App) *ObservabilityServer {
	return &ObservabilityServer{
		addr: addr,
		app:  a,
	}
}

func (s *ObservabilityServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "starting"}
		if snap := s.app.Snapshot(); snap != nil {
			status = healthStatus{
				Status:    "up",
				SessionID: snap.Session.ID(),
				Files:     len(snap.Files),
				BuiltAt:   snap.BuiltAt,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	return mux
}

func (s *ObservabilityServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
