// Package server exposes the local control API: health, a status
// snapshot, and a manual pass trigger.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ewhitmore/postpilot/internal/orchestrator"
)

// Controller is the orchestrator surface the API needs.
type Controller interface {
	ProcessNow(ctx context.Context) (orchestrator.PassResult, error)
	Status(ctx context.Context) orchestrator.Status
}

// Server wires the control endpoints onto a mux.
type Server struct {
	controller  Controller
	passTimeout time.Duration
}

func New(controller Controller, passTimeout time.Duration) *Server {
	return &Server{controller: controller, passTimeout: passTimeout}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /process-now", s.handleProcessNow)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.controller.Status(r.Context())); err != nil {
		slog.Error("Failed to encode status response", "error", err)
	}
}

// handleProcessNow kicks off a pass in the background and returns
// immediately. A pass already in progress absorbs the trigger, so
// hammering the endpoint cannot stack work.
func (s *Server) handleProcessNow(w http.ResponseWriter, _ *http.Request) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Recovered from panic in triggered pass", "panic", rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.passTimeout)
		defer cancel()

		result, err := s.controller.ProcessNow(ctx)
		if err != nil {
			slog.Error("Triggered pass failed", "error", err)
			return
		}
		slog.Info("Triggered pass complete",
			"fetched", result.Fetched, "published", result.Published,
			"skipped", result.Skipped, "failed", result.Failed)
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"message": "Pass triggered"})
}
