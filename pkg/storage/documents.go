package storage

import (
	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// Insert stores doc under docID, replacing any previous version. The log
// append happens first; if it fails nothing changes in memory.
func (r *Registry) Insert(collName, docID string, doc domain.Value) (stored domain.Value, err error) {
	defer func() { observeOp("insert", err) }()

	c, err := r.lookup(collName)
	if err != nil {
		return domain.Value{}, err
	}

	stored, err = c.insert(docID, doc)
	if err != nil {
		return domain.Value{}, err
	}
	r.refreshGauge(c)
	return stored, nil
}

// Retrieve returns one document. The lookup latency is recorded in the
// collection's latency ring whether or not the document exists.
func (r *Registry) Retrieve(collName, docID string) (doc domain.Value, err error) {
	defer func() { observeOp("retrieve", err) }()

	c, err := r.lookup(collName)
	if err != nil {
		return domain.Value{}, err
	}
	return c.retrieve(docID)
}

// RetrieveBulk returns one entry per requested id, in request order, with
// null for ids that are not present.
func (r *Registry) RetrieveBulk(collName string, docIDs []string) (docs []domain.Value, err error) {
	defer func() { observeOp("retrieve_bulk", err) }()

	c, err := r.lookup(collName)
	if err != nil {
		return nil, err
	}
	return c.retrieveBulk(docIDs)
}

// Delete removes a document and returns the removed version.
func (r *Registry) Delete(collName, docID string) (removed domain.Value, err error) {
	defer func() { observeOp("delete", err) }()

	c, err := r.lookup(collName)
	if err != nil {
		return domain.Value{}, err
	}

	removed, err = c.remove(docID)
	if err != nil {
		return domain.Value{}, err
	}
	r.refreshGauge(c)
	return removed, nil
}

func (r *Registry) Count(collName string) (int, error) {
	c, err := r.lookup(collName)
	if err != nil {
		return 0, err
	}
	return c.count()
}

// LatencySnapshot returns the retained retrieve latencies, oldest first.
func (r *Registry) LatencySnapshot(collName string) ([]domain.LatencySample, error) {
	c, err := r.lookup(collName)
	if err != nil {
		return nil, err
	}
	return c.latencySnapshot()
}

func (r *Registry) refreshGauge(c *Collection) {
	if n, err := c.count(); err == nil {
		DocumentsResident.WithLabelValues(c.name).Set(float64(n))
	}
}
