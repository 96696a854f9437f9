package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wesm/listenview/internal/config"
	"github.com/wesm/listenview/internal/dashboard"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Server is the HTTP server for the dashboard API.
type Server struct {
	mu      sync.RWMutex
	cfg     config.Config
	svc     *dashboard.Service
	mux     *http.ServeMux
	httpSrv *http.Server
	version VersionInfo

	// handlerDelay is injected before each timeout-wrapped
	// handler, used only by tests to guarantee handlers
	// exceed a short timeout. Zero in production.
	handlerDelay time.Duration
}

// New creates a new Server.
func New(
	cfg config.Config, svc *dashboard.Service, opts ...Option,
) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

func (s *Server) routes() {
	s.mux.Handle("GET /{$}", s.withTimeout(s.handleHealth))
	s.mux.Handle("GET /version", s.withTimeout(s.handleGetVersion))

	// Upload: no timeout handler, bodies can be large and
	// parsing scales with them.
	s.mux.HandleFunc("POST /upload/", s.handleUpload)

	s.mux.Handle(
		"GET /metrics/{dataset_id}", s.withTimeout(s.handleMetrics),
	)
	s.mux.Handle(
		"GET /datasets/{id}", s.withTimeout(s.handleGetDataset),
	)
	s.mux.Handle(
		"DELETE /datasets/{id}", s.withTimeout(s.handleDeleteDataset),
	)

	s.mux.Handle("GET /debug/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "listenview is alive!",
	})
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

// SetPort updates the listen port (for testing).
func (s *Server) SetPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Port = port
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(logMiddleware(s.mux))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.mu.RLock()
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.mu.RUnlock()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()
	log.Printf("Starting server at http://%s", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}
