// Package health exposes the checkpoint backend's health over HTTP.
package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/YvodeRooij/spendcube/internal/checkpoint"
)

// DefaultAddr is the listen address used when none is given.
const DefaultAddr = ":8080"

// Checker reports backend health. *checkpoint.Factory satisfies it.
type Checker interface {
	Health(ctx context.Context) checkpoint.HealthReport
}

// Server provides the /healthz endpoint.
type Server struct {
	checker Checker
	addr    string
	server  *http.Server
}

// NewServer creates a health server listening on addr.
func NewServer(checker Checker, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		checker: checker,
		addr:    addr,
	}
}

// Handler returns the HTTP handler serving /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthCheckHandler)
	return mux
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Health] Server error: %v", err)
		}
	}()

	log.Printf("[Health] Listening on %s", s.addr)
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK if the checkpoint backend is usable, 503 Service Unavailable otherwise.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := s.checker.Health(ctx)

	response := Response{
		Status:  "healthy",
		Backend: string(report.Kind),
	}
	status := http.StatusOK
	if !report.Healthy {
		response.Status = "unhealthy"
		response.Error = report.Error
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// Response is the JSON response structure for health checks.
type Response struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Error   string `json:"error,omitempty"`
}
