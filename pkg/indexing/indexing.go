package indexing

import (
	"container/list"
	"fmt"
	"sort"

	"github.com/google/btree"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// Sentinel is the bucket key for documents whose indexed field is absent
// or not a string.
const Sentinel = "$$none"

// IndexEngine holds the equality indexes of one collection. It does no
// locking; the owning collection serializes access.
type IndexEngine struct {
	indexes map[string]*Index // index name -> index
}

// NewIndexEngine creates a new index engine
func NewIndexEngine() *IndexEngine {
	return &IndexEngine{
		indexes: make(map[string]*Index),
	}
}

// bucket holds the ids sharing one field value, in insertion order.
// members points into order so add and remove are constant time.
type bucket struct {
	key     string
	order   *list.List
	members map[string]*list.Element
}

func newBucket(key string) *bucket {
	return &bucket{key: key, order: list.New(), members: make(map[string]*list.Element)}
}

func (b *bucket) add(id string) {
	if _, ok := b.members[id]; ok {
		return
	}
	b.members[id] = b.order.PushBack(id)
}

func (b *bucket) remove(id string) {
	if e, ok := b.members[id]; ok {
		b.order.Remove(e)
		delete(b.members, id)
	}
}

func (b *bucket) ids() []string {
	out := make([]string, 0, len(b.members))
	for e := b.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(string))
	}
	return out
}

func bucketLess(a, b *bucket) bool { return a.key < b.key }

// Index stores a mapping from a field's value to document IDs. Buckets are
// kept in key order.
type Index struct {
	Name  string
	Field string

	buckets *btree.BTreeG[*bucket]
}

// NewIndex creates an index on a specific field.
func NewIndex(name, field string) *Index {
	return &Index{
		Name:    name,
		Field:   field,
		buckets: btree.NewG(16, bucketLess),
	}
}

// KeyFor projects the bucket key of doc for field.
func KeyFor(doc domain.Value, field string) string {
	if v, ok := doc.Field(field); ok {
		if s, ok := v.Str(); ok {
			return s
		}
	}
	return Sentinel
}

// Add files docID under the bucket for doc's field value.
func (idx *Index) Add(docID string, doc domain.Value) {
	key := KeyFor(doc, idx.Field)
	b, ok := idx.buckets.Get(&bucket{key: key})
	if !ok {
		b = newBucket(key)
		idx.buckets.ReplaceOrInsert(b)
	}
	b.add(docID)
}

// Remove drops docID from the bucket derived from doc. Empty buckets are
// removed so the key space only holds live values.
func (idx *Index) Remove(docID string, doc domain.Value) {
	key := KeyFor(doc, idx.Field)
	b, ok := idx.buckets.Get(&bucket{key: key})
	if !ok {
		return
	}
	b.remove(docID)
	if len(b.members) == 0 {
		idx.buckets.Delete(b)
	}
}

// UpdateIndex moves docID from the bucket of oldDoc to the bucket of newDoc.
// A nil oldDoc means the document is new; a nil newDoc means it was deleted.
func (idx *Index) UpdateIndex(docID string, oldDoc, newDoc *domain.Value) {
	if oldDoc != nil {
		idx.Remove(docID, *oldDoc)
	}
	if newDoc != nil {
		idx.Add(docID, *newDoc)
	}
}

// Query returns document IDs that match a given value in the indexed field.
func (idx *Index) Query(key string) []string {
	b, ok := idx.buckets.Get(&bucket{key: key})
	if !ok {
		return nil
	}
	return b.ids()
}

// Keys returns the bucket keys in ascending order.
func (idx *Index) Keys() []string {
	keys := make([]string, 0, idx.buckets.Len())
	idx.buckets.Ascend(func(b *bucket) bool {
		keys = append(keys, b.key)
		return true
	})
	return keys
}

// Len is the number of distinct keys.
func (idx *Index) Len() int {
	return idx.buckets.Len()
}

// Spec returns the declaration this index was created from.
func (idx *Index) Spec() domain.IndexSpec {
	return domain.IndexSpec{Name: idx.Name, Key: idx.Field}
}

// CreateIndex declares an empty index. Existing documents are not scanned.
func (ie *IndexEngine) CreateIndex(name, field string) error {
	if name == "" {
		return fmt.Errorf("%w: index name cannot be empty", domain.ErrMalformedInput)
	}
	if field == "" {
		return fmt.Errorf("%w: index %s needs a field key", domain.ErrMalformedInput, name)
	}
	if _, exists := ie.indexes[name]; exists {
		return fmt.Errorf("%w: index %s already exists", domain.ErrConflict, name)
	}
	ie.indexes[name] = NewIndex(name, field)
	return nil
}

// GetIndex returns the index with the given name.
func (ie *IndexEngine) GetIndex(name string) (*Index, bool) {
	idx, ok := ie.indexes[name]
	return idx, ok
}

// GetIndexes returns every index declaration, sorted by name.
func (ie *IndexEngine) GetIndexes() []domain.IndexSpec {
	specs := make([]domain.IndexSpec, 0, len(ie.indexes))
	for _, idx := range ie.indexes {
		specs = append(specs, idx.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// UpdateIndexForDocument applies a document change to every index.
func (ie *IndexEngine) UpdateIndexForDocument(docID string, oldDoc, newDoc *domain.Value) {
	for _, idx := range ie.indexes {
		idx.UpdateIndex(docID, oldDoc, newDoc)
	}
}
