package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

const (
	// IDField carries the document identifier inside every upsert record.
	IDField = "_id"

	deletedMarker      = "$$deleted"
	indexCreatedMarker = "$$indexCreated"
)

// DurabilityLevel represents the level of durability guarantee for log appends
type DurabilityLevel int

const (
	DurabilityOS   DurabilityLevel = iota // Written to the OS page cache (default)
	DurabilityFull                        // fsync after every append
)

func (d DurabilityLevel) String() string {
	switch d {
	case DurabilityOS:
		return "os"
	case DurabilityFull:
		return "full"
	default:
		return fmt.Sprintf("durability(%d)", int(d))
	}
}

// PersistenceLog is the append-only newline-delimited JSON log of one
// collection. The file handle is opened lazily and reopened after compaction.
type PersistenceLog struct {
	path       string
	durability DurabilityLevel
	file       *os.File
}

// NewPersistenceLog creates a log bound to path. Nothing is opened until
// the first append.
func NewPersistenceLog(path string, durability DurabilityLevel) *PersistenceLog {
	return &PersistenceLog{
		path:       path,
		durability: durability,
	}
}

func (l *PersistenceLog) Path() string {
	return l.path
}

// AppendUpsert writes doc as one line. doc must carry its IDField.
func (l *PersistenceLog) AppendUpsert(doc domain.Value) error {
	line, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", domain.ErrMalformedInput, err)
	}
	return l.appendLine(line)
}

// AppendTombstone records the deletion of docID.
func (l *PersistenceLog) AppendTombstone(docID string) error {
	line, err := tombstone(docID).MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: encode tombstone: %v", domain.ErrMalformedInput, err)
	}
	return l.appendLine(line)
}

func tombstone(docID string) domain.Value {
	return domain.Object(
		domain.Member{Key: deletedMarker, Value: domain.Bool(true)},
		domain.Member{Key: IDField, Value: domain.String(docID)},
	)
}

func (l *PersistenceLog) appendLine(line []byte) error {
	if err := l.ensureOpen(); err != nil {
		return err
	}

	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("%w: append to %s: %w", domain.ErrIOFailure, l.path, err)
	}

	if l.durability == DurabilityFull {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("%w: sync %s: %w", domain.ErrIOFailure, l.path, err)
		}
	}
	return nil
}

func (l *PersistenceLog) ensureOpen() error {
	if l.file != nil {
		return nil
	}

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create log directory: %w", domain.ErrIOFailure, err)
		}
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("%w: open log %s: %w", domain.ErrIOFailure, l.path, err)
	}
	l.file = file
	return nil
}

// Close releases the file handle; a later append reopens it.
func (l *PersistenceLog) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Record is one decoded log line.
type Record struct {
	Deleted  bool
	ID       string
	Document domain.Value // zero for tombstones
}

// ReplayError identifies the log line that stopped a replay.
type ReplayError struct {
	Path string
	Line int
	Err  error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay %s line %d: %v", e.Path, e.Line, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }

// Replay reads the log at path in order and hands each record to apply.
// A missing file replays nothing. Blank lines and legacy index markers are
// skipped; any other undecodable line stops the replay with a *ReplayError.
func Replay(path string, apply func(Record) error) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: open log %s: %w", domain.ErrIOFailure, path, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	applied := 0
	lineNo := 0

	for {
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return applied, &ReplayError{Path: path, Line: lineNo + 1, Err: fmt.Errorf("%w: %w", domain.ErrIOFailure, readErr)}
		}
		if len(line) > 0 {
			lineNo++
			trimmed := bytes.TrimSpace(line)
			if len(trimmed) > 0 {
				rec, skip, err := decodeRecord(trimmed)
				if err != nil {
					return applied, &ReplayError{Path: path, Line: lineNo, Err: err}
				}
				if !skip {
					if err := apply(rec); err != nil {
						return applied, &ReplayError{Path: path, Line: lineNo, Err: err}
					}
					applied++
				}
			}
		}
		if readErr != nil {
			return applied, nil
		}
	}
}

// decodeRecord classifies a log line by the reserved markers it carries.
func decodeRecord(line []byte) (Record, bool, error) {
	v, err := domain.Parse(line)
	if err != nil {
		return Record{}, false, err
	}
	if !v.IsObject() {
		return Record{}, false, fmt.Errorf("%w: record is a JSON %s, not an object", domain.ErrMalformedInput, v.Kind())
	}

	if _, ok := v.Field(indexCreatedMarker); ok {
		return Record{}, true, nil
	}

	idVal, ok := v.Field(IDField)
	if !ok {
		return Record{}, false, fmt.Errorf("%w: record has no %s field", domain.ErrMalformedInput, IDField)
	}
	id, ok := idVal.Str()
	if !ok {
		return Record{}, false, fmt.Errorf("%w: record %s is a JSON %s, not a string", domain.ErrMalformedInput, IDField, idVal.Kind())
	}

	if marker, ok := v.Field(deletedMarker); ok {
		if deleted, isBool := marker.BoolValue(); !isBool || !deleted {
			return Record{}, false, fmt.Errorf("%w: %s must be true, got %s", domain.ErrMalformedInput, deletedMarker, marker)
		}
		return Record{Deleted: true, ID: id}, false, nil
	}

	return Record{ID: id, Document: v}, false, nil
}
