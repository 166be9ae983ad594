package storage

import (
	"fmt"
	"sort"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// CreateCollection registers a new collection. Declared indexes exist
// before the log is replayed, so replayed documents populate them. A replay
// failure leaves nothing registered.
func (r *Registry) CreateCollection(spec domain.CollectionSpec) (err error) {
	defer func() { observeOp("create_collection", err) }()

	if spec.Name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", domain.ErrMalformedInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collections[spec.Name]; exists {
		return fmt.Errorf("%w: collection %s already exists", domain.ErrConflict, spec.Name)
	}

	var log *PersistenceLog
	if spec.File != "" {
		log = NewPersistenceLog(r.resolvePath(spec.File), r.durability)
	}

	c := newCollection(spec.Name, log)
	for _, index := range spec.Indexes {
		if err := c.indexes.CreateIndex(index.Name, index.Key); err != nil {
			return fmt.Errorf("collection %s: %w", spec.Name, err)
		}
	}

	if log != nil {
		applied, err := Replay(log.Path(), c.applyRecord)
		if err != nil {
			r.logger.Error().Err(err).Str("collection", spec.Name).Str("file", log.Path()).Msg("Replay failed")
			return err
		}
		r.logger.Info().
			Str("collection", spec.Name).
			Str("file", log.Path()).
			Int("records", applied).
			Int("documents", len(c.documents)).
			Msg("Replayed collection log")
	}

	r.collections[spec.Name] = c
	DocumentsResident.WithLabelValues(spec.Name).Set(float64(len(c.documents)))
	r.logger.Info().Str("collection", spec.Name).Int("indexes", len(spec.Indexes)).Msg("Collection created")
	return nil
}

// DeleteCollection unregisters a collection. Its log file is left on disk.
func (r *Registry) DeleteCollection(name string) (err error) {
	defer func() { observeOp("delete_collection", err) }()

	r.mu.Lock()
	c, exists := r.collections[name]
	if !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: collection %s", domain.ErrNotFound, name)
	}
	delete(r.collections, name)
	r.mu.Unlock()

	DocumentsResident.DeleteLabelValues(name)
	if err := c.drop(); err != nil {
		r.logger.Warn().Err(err).Str("collection", name).Msg("closing log of deleted collection")
	}
	r.logger.Info().Str("collection", name).Msg("Collection deleted")
	return nil
}

// ListCollections snapshots every collection, sorted by name.
func (r *Registry) ListCollections() []domain.CollectionSnapshot {
	r.mu.RLock()
	colls := make([]*Collection, 0, len(r.collections))
	for _, c := range r.collections {
		colls = append(colls, c)
	}
	r.mu.RUnlock()

	sort.Slice(colls, func(i, j int) bool { return colls[i].name < colls[j].name })

	snaps := make([]domain.CollectionSnapshot, 0, len(colls))
	for _, c := range colls {
		snaps = append(snaps, c.snapshot())
	}
	return snaps
}

// Reset drops every collection. Log files are left on disk.
func (r *Registry) Reset() {
	r.mu.Lock()
	dropped := r.collections
	r.collections = make(map[string]*Collection)
	r.mu.Unlock()

	for name, c := range dropped {
		DocumentsResident.DeleteLabelValues(name)
		if err := c.drop(); err != nil {
			r.logger.Warn().Err(err).Str("collection", name).Msg("closing log during reset")
		}
	}
	observeOp("reset", nil)
	r.logger.Info().Int("collections", len(dropped)).Msg("Registry reset")
}
