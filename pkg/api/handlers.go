package api

import (
	"github.com/rs/zerolog"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// Handler provides HTTP handlers for the database API
type Handler struct {
	store      domain.DocumentStore
	logger     zerolog.Logger
	version    string
	backupFile string
}

type HandlerOption func(*Handler)

func WithLogger(logger zerolog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithVersion sets the version reported at the root endpoint.
func WithVersion(version string) HandlerOption {
	return func(h *Handler) {
		h.version = version
	}
}

// WithBackupFile sets where POST /admin/backup writes. Without it the
// endpoint answers 404.
func WithBackupFile(path string) HandlerOption {
	return func(h *Handler) {
		h.backupFile = path
	}
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(store domain.DocumentStore, options ...HandlerOption) *Handler {
	h := &Handler{
		store:   store,
		logger:  zerolog.Nop(),
		version: "dev",
	}
	for _, option := range options {
		option(h)
	}
	return h
}
