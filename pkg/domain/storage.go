package domain

import "time"

// CollectionSpec describes a collection to create. File is optional; when
// empty the collection lives in memory only.
type CollectionSpec struct {
	Name    string      `json:"name"`
	File    string      `json:"file,omitempty"`
	Indexes []IndexSpec `json:"indexes,omitempty"`
}

// CollectionSnapshot is a point-in-time copy of a collection, for diagnostics.
type CollectionSnapshot struct {
	Name      string           `json:"name"`
	File      string           `json:"file,omitempty"`
	Indexes   []IndexSpec      `json:"indexes"`
	Documents map[string]Value `json:"documents"`
}

// LatencySample is one observed retrieve latency.
type LatencySample struct {
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration_ns"`
}

// DocumentStore defines the operations the transport layer invokes.
// This is the core business interface that implementations must conform to
type DocumentStore interface {
	CreateCollection(spec CollectionSpec) error
	DeleteCollection(name string) error
	ListCollections() []CollectionSnapshot
	Reset()

	CreateIndex(collName string, index IndexSpec) error
	Indexes(collName string) ([]IndexSpec, error)

	Insert(collName, docID string, doc Value) (Value, error)
	Retrieve(collName, docID string) (Value, error)
	RetrieveBulk(collName string, docIDs []string) ([]Value, error)
	RetrieveByIndex(collName, indexName, key string) ([]Value, error)
	Delete(collName, docID string) (Value, error)
	Count(collName string) (int, error)

	Compact(collName string) error
	LatencySnapshot(collName string) ([]LatencySample, error)
	Backup(path string) error
}
