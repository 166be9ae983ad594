package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/adfharrison1/go-jsondb/pkg/api"
	"github.com/adfharrison1/go-jsondb/pkg/storage"
)

// Server holds references to storage, router, etc.
type Server struct {
	router   *mux.Router
	registry *storage.Registry
	logger   zerolog.Logger

	version    string
	backupFile string
	rateLimit  float64
	rateBurst  int
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithBackupFile enables POST /admin/backup, writing to path.
func WithBackupFile(path string) Option {
	return func(s *Server) {
		s.backupFile = path
	}
}

// WithRateLimit limits each client address to perSecond requests with the
// given burst. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.rateLimit = perSecond
		s.rateBurst = burst
	}
}

// NewServer creates a new instance of Server around registry.
func NewServer(registry *storage.Registry, options ...Option) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		registry: registry,
		logger:   zerolog.Nop(),
		version:  "dev",
	}
	for _, option := range options {
		option(s)
	}

	handler := api.NewHandler(registry,
		api.WithLogger(s.logger),
		api.WithVersion(s.version),
		api.WithBackupFile(s.backupFile),
	)
	handler.RegisterRoutes(s.router)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.router.Use(requestIDMiddleware)
	s.router.Use(requestLoggerMiddleware(s.logger))
	s.router.Use(metricsMiddleware)
	if s.rateLimit > 0 {
		s.router.Use(newRateLimiter(s.rateLimit, s.rateBurst, maxTrackedClients).middleware)
	}

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Warn().Str("method", r.Method).Str("path", r.URL.Path).Msg("No route found")
		api.WriteJSONError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})

	return s
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}

// Registry exposes the document store the server serves.
func (s *Server) Registry() *storage.Registry {
	return s.registry
}

// StartBackgroundWorkers starts the registry's periodic compaction, if configured.
func (s *Server) StartBackgroundWorkers() {
	s.registry.StartBackgroundWorkers()
}

// Close stops background workers and releases log handles.
func (s *Server) Close() error {
	return s.registry.Close()
}
