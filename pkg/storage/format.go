package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

const (
	// Magic bytes to identify our file format
	MagicBytes = "GODB"
	// Current version
	FormatVersion = 2
	// File extension for backup snapshots
	FileExtension = ".godb"
)

// Header flags
const (
	FlagLZ4Frame uint8 = 1 << iota // payload is an lz4 frame
)

// FileHeader represents the header of a backup file
type FileHeader struct {
	Magic    [4]byte // "GODB"
	Version  uint8   // Format version
	Flags    uint8
	Reserved [2]byte // Reserved for future use
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer, flags uint8) error {
	header := FileHeader{
		Magic:   [4]byte{'G', 'O', 'D', 'B'},
		Version: FormatVersion,
		Flags:   flags,
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %w", domain.ErrMalformedInput, err)
	}

	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("%w: invalid file format: expected %s, got %q", domain.ErrMalformedInput, MagicBytes, string(header.Magic[:]))
	}

	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported file version: %d", domain.ErrMalformedInput, header.Version)
	}

	return &header, nil
}

// BackupData is the msgpack payload of a backup file.
type BackupData struct {
	CreatedAt   time.Time                    `msgpack:"created_at"`
	Collections map[string]*BackupCollection `msgpack:"collections"`
}

// BackupCollection holds one collection's documents and index declarations.
type BackupCollection struct {
	File      string                 `msgpack:"file,omitempty"`
	Indexes   []domain.IndexSpec     `msgpack:"indexes,omitempty"`
	Documents map[string]interface{} `msgpack:"documents"`
}

// NewBackupData creates a new empty backup payload
func NewBackupData() *BackupData {
	return &BackupData{
		CreatedAt:   time.Now().UTC(),
		Collections: make(map[string]*BackupCollection),
	}
}

// Values converts the stored documents back into JSON values. Object keys
// come back sorted; msgpack maps do not keep insertion order.
func (bc *BackupCollection) Values() (map[string]domain.Value, error) {
	docs := make(map[string]domain.Value, len(bc.Documents))
	for id, raw := range bc.Documents {
		v, err := domain.ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		docs[id] = v
	}
	return docs, nil
}
