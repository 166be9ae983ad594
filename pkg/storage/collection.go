package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
	"github.com/adfharrison1/go-jsondb/pkg/indexing"
)

// Collection owns a document map, its indexes and an optional log. Every
// method takes the collection lock, so the map and the indexes are never
// observed out of step.
type Collection struct {
	mu        sync.RWMutex
	name      string
	documents map[string]domain.Value
	indexes   *indexing.IndexEngine
	log       *PersistenceLog // nil for in-memory collections
	latency   *LatencyRing
	dropped   bool
}

func newCollection(name string, log *PersistenceLog) *Collection {
	return &Collection{
		name:      name,
		documents: make(map[string]domain.Value),
		indexes:   indexing.NewIndexEngine(),
		log:       log,
		latency:   NewLatencyRing(LatencyRingCapacity),
	}
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) notFound() error {
	return fmt.Errorf("%w: collection %s", domain.ErrNotFound, c.name)
}

// validateDocument rejects anything replay could not route back.
func validateDocument(doc domain.Value) error {
	if !doc.IsObject() {
		return fmt.Errorf("%w: document must be a JSON object, got %s", domain.ErrMalformedInput, doc.Kind())
	}
	for _, reserved := range []string{deletedMarker, indexCreatedMarker} {
		if _, ok := doc.Field(reserved); ok {
			return fmt.Errorf("%w: field %s is reserved", domain.ErrMalformedInput, reserved)
		}
	}
	return nil
}

// insert appends the document to the log, then upserts it in memory.
// The stored document carries docID under IDField.
func (c *Collection) insert(docID string, doc domain.Value) (domain.Value, error) {
	if docID == "" {
		return domain.Value{}, fmt.Errorf("%w: document id cannot be empty", domain.ErrMalformedInput)
	}
	if err := validateDocument(doc); err != nil {
		return domain.Value{}, err
	}
	stored := doc.WithField(IDField, domain.String(docID))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return domain.Value{}, c.notFound()
	}

	if c.log != nil {
		if err := c.log.AppendUpsert(stored); err != nil {
			return domain.Value{}, err
		}
	}

	c.applyUpsert(docID, stored)
	return stored, nil
}

// applyUpsert replaces the document and moves its index memberships from
// the previous version, if any, to the new one. Caller holds c.mu.
func (c *Collection) applyUpsert(docID string, doc domain.Value) {
	var previous *domain.Value
	if old, exists := c.documents[docID]; exists {
		previous = &old
	}
	c.documents[docID] = doc
	c.indexes.UpdateIndexForDocument(docID, previous, &doc)
}

// applyDelete removes the document and its index memberships, derived from
// the removed version. Caller holds c.mu.
func (c *Collection) applyDelete(docID string) (domain.Value, bool) {
	old, exists := c.documents[docID]
	if !exists {
		return domain.Value{}, false
	}
	delete(c.documents, docID)
	c.indexes.UpdateIndexForDocument(docID, &old, nil)
	return old, true
}

// applyRecord is the replay path: same mutations as live traffic, no append.
// Tombstones for ids that are already gone are ignored.
func (c *Collection) applyRecord(rec Record) error {
	if rec.Deleted {
		c.applyDelete(rec.ID)
		return nil
	}
	c.applyUpsert(rec.ID, rec.Document)
	return nil
}

// retrieve looks up a document and records the lookup latency.
func (c *Collection) retrieve(docID string) (domain.Value, error) {
	start := time.Now()

	c.mu.RLock()
	if c.dropped {
		c.mu.RUnlock()
		return domain.Value{}, c.notFound()
	}
	doc, exists := c.documents[docID]
	c.mu.RUnlock()

	elapsed := time.Since(start)
	c.latency.Record(start, elapsed)
	observeRetrieve(c.name, elapsed)

	if !exists {
		return domain.Value{}, fmt.Errorf("%w: document %s in collection %s", domain.ErrNotFound, docID, c.name)
	}
	return doc, nil
}

// retrieveBulk returns one entry per id; absent ids yield null.
func (c *Collection) retrieveBulk(docIDs []string) ([]domain.Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dropped {
		return nil, c.notFound()
	}

	results := make([]domain.Value, len(docIDs))
	for i, id := range docIDs {
		if doc, exists := c.documents[id]; exists {
			results[i] = doc
		} else {
			results[i] = domain.Null()
		}
	}
	return results, nil
}

// remove appends a tombstone and deletes the document, returning it.
func (c *Collection) remove(docID string) (domain.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return domain.Value{}, c.notFound()
	}

	if _, exists := c.documents[docID]; !exists {
		return domain.Value{}, fmt.Errorf("%w: document %s in collection %s", domain.ErrNotFound, docID, c.name)
	}

	if c.log != nil {
		if err := c.log.AppendTombstone(docID); err != nil {
			return domain.Value{}, err
		}
	}

	removed, _ := c.applyDelete(docID)
	return removed, nil
}

// queryByIndex returns the documents in the bucket for key, in bucket order.
func (c *Collection) queryByIndex(indexName, key string) ([]domain.Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dropped {
		return nil, c.notFound()
	}

	idx, ok := c.indexes.GetIndex(indexName)
	if !ok {
		return nil, fmt.Errorf("%w: index %s in collection %s", domain.ErrNotFound, indexName, c.name)
	}

	ids := idx.Query(key)
	results := make([]domain.Value, 0, len(ids))
	for _, id := range ids {
		if doc, exists := c.documents[id]; exists {
			results = append(results, doc)
		}
	}
	return results, nil
}

func (c *Collection) createIndex(spec domain.IndexSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return c.notFound()
	}
	return c.indexes.CreateIndex(spec.Name, spec.Key)
}

func (c *Collection) indexSpecs() ([]domain.IndexSpec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dropped {
		return nil, c.notFound()
	}
	return c.indexes.GetIndexes(), nil
}

func (c *Collection) count() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dropped {
		return 0, c.notFound()
	}
	return len(c.documents), nil
}

func (c *Collection) latencySnapshot() ([]domain.LatencySample, error) {
	c.mu.RLock()
	dropped := c.dropped
	c.mu.RUnlock()
	if dropped {
		return nil, c.notFound()
	}
	return c.latency.Snapshot(), nil
}

// snapshot copies the collection for listing and backups. Values are
// immutable, so a shallow copy of the map is enough.
func (c *Collection) snapshot() domain.CollectionSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := make(map[string]domain.Value, len(c.documents))
	for id, doc := range c.documents {
		docs[id] = doc
	}

	snap := domain.CollectionSnapshot{
		Name:      c.name,
		Indexes:   c.indexes.GetIndexes(),
		Documents: docs,
	}
	if c.log != nil {
		snap.File = c.log.Path()
	}
	return snap
}

// sortedIDs returns the document ids in ascending order. Caller holds c.mu.
func (c *Collection) sortedIDs() []string {
	ids := make([]string, 0, len(c.documents))
	for id := range c.documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// drop detaches the collection from the registry. In-memory state goes
// away; the log file stays on disk.
func (c *Collection) drop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropped = true
	c.documents = make(map[string]domain.Value)
	c.indexes = indexing.NewIndexEngine()
	c.latency.Clear()
	if c.log != nil {
		return c.log.Close()
	}
	return nil
}
