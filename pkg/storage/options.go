package storage

import (
	"time"

	"github.com/rs/zerolog"
)

type RegistryOption func(*Registry)

// WithDataDir resolves relative collection log paths against dir.
func WithDataDir(dir string) RegistryOption {
	return func(r *Registry) {
		r.dataDir = dir
	}
}

// WithDurability sets whether log appends are fsynced (default: DurabilityOS)
func WithDurability(level DurabilityLevel) RegistryOption {
	return func(r *Registry) {
		r.durability = level
	}
}

// WithCompactionInterval enables a background worker that compacts every
// persistent collection at the given interval. Zero disables it.
func WithCompactionInterval(interval time.Duration) RegistryOption {
	return func(r *Registry) {
		r.compactionInterval = interval
	}
}

func WithLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}
