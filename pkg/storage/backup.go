package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// Backup writes a point-in-time snapshot of every collection to path: the
// GODB header followed by an lz4 frame of msgpack. The file is written to a
// temporary name and renamed into place. Collection logs are not touched.
func (r *Registry) Backup(path string) (err error) {
	defer func() { observeOp("backup", err) }()

	if path == "" {
		return fmt.Errorf("%w: backup path cannot be empty", domain.ErrMalformedInput)
	}
	path = r.resolvePath(path)

	start := time.Now()
	data := NewBackupData()
	docCount := 0
	for _, snap := range r.ListCollections() {
		bc := &BackupCollection{
			File:      snap.File,
			Indexes:   snap.Indexes,
			Documents: make(map[string]interface{}, len(snap.Documents)),
		}
		for id, doc := range snap.Documents {
			bc.Documents[id] = doc.Interface()
		}
		data.Collections[snap.Name] = bc
		docCount += len(snap.Documents)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create backup directory: %w", domain.ErrIOFailure, err)
		}
	}

	tempPath := path + ".tmp"
	if err := writeBackup(tempPath, data); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: write backup %s: %w", domain.ErrIOFailure, path, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: rename backup %s: %w", domain.ErrIOFailure, path, err)
	}

	r.logger.Info().
		Str("file", path).
		Int("collections", len(data.Collections)).
		Int("documents", docCount).
		Dur("elapsed", time.Since(start)).
		Msg("Backup written")
	return nil
}

func writeBackup(path string, data *BackupData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := WriteHeader(w, FlagLZ4Frame); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	zw := lz4.NewWriter(w)
	if err := msgpack.NewEncoder(zw).Encode(data); err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	return file.Close()
}

// ReadBackup decodes a file written by Backup.
func ReadBackup(path string) (*BackupData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open backup %s: %w", domain.ErrIOFailure, path, err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if header.Flags&FlagLZ4Frame == 0 {
		return nil, fmt.Errorf("%w: backup %s has unknown payload flags %#x", domain.ErrMalformedInput, path, header.Flags)
	}

	var data BackupData
	if err := msgpack.NewDecoder(lz4.NewReader(r)).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decode backup %s: %w", domain.ErrMalformedInput, path, err)
	}
	if data.Collections == nil {
		data.Collections = make(map[string]*BackupCollection)
	}
	return &data, nil
}
