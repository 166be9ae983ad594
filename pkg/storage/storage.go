package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// Registry maps collection names to collections. The registry lock guards
// the name map only; each collection carries its own lock.
type Registry struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	compactor   *CompactionManager
	logger      zerolog.Logger

	// Configuration
	dataDir            string
	durability         DurabilityLevel
	compactionInterval time.Duration

	// Background workers
	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

var _ domain.DocumentStore = (*Registry)(nil)

// NewRegistry creates an empty registry
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		collections: make(map[string]*Collection),
		logger:      zerolog.Nop(),
		durability:  DurabilityOS,
		stopChan:    make(chan struct{}),
	}

	for _, option := range options {
		option(r)
	}

	r.compactor = NewCompactionManager(r.logger)
	return r
}

// lookup returns the collection registered under name.
func (r *Registry) lookup(name string) (*Collection, error) {
	r.mu.RLock()
	c, exists := r.collections[name]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: collection %s", domain.ErrNotFound, name)
	}
	return c, nil
}

// resolvePath joins relative log paths onto the data directory.
func (r *Registry) resolvePath(file string) string {
	if file == "" || filepath.IsAbs(file) || r.dataDir == "" {
		return file
	}
	return filepath.Join(r.dataDir, file)
}

// Durability reports the append durability this registry was built with.
func (r *Registry) Durability() DurabilityLevel {
	return r.durability
}
