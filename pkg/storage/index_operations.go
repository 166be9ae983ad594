package storage

import (
	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// CreateIndex declares a new index on a live collection. Documents already
// stored are not scanned; only later inserts and deletes populate it.
func (r *Registry) CreateIndex(collName string, index domain.IndexSpec) (err error) {
	defer func() { observeOp("create_index", err) }()

	c, err := r.lookup(collName)
	if err != nil {
		return err
	}
	if err := c.createIndex(index); err != nil {
		return err
	}
	r.logger.Info().Str("collection", collName).Str("index", index.Name).Str("key", index.Key).Msg("Index created")
	return nil
}

// Indexes returns the index declarations of a collection, sorted by name.
func (r *Registry) Indexes(collName string) ([]domain.IndexSpec, error) {
	c, err := r.lookup(collName)
	if err != nil {
		return nil, err
	}
	return c.indexSpecs()
}

// RetrieveByIndex returns the documents whose indexed field maps to key.
// An unknown key yields an empty result, an unknown index NotFound.
func (r *Registry) RetrieveByIndex(collName, indexName, key string) (docs []domain.Value, err error) {
	defer func() { observeOp("retrieve_by_index", err) }()

	c, err := r.lookup(collName)
	if err != nil {
		return nil, err
	}
	return c.queryByIndex(indexName, key)
}
