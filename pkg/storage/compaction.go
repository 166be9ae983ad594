package storage

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// compactSuffix marks the temporary file a compaction writes before it
// replaces the log.
const compactSuffix = ".compact"

// CompactionResult describes a finished compaction.
type CompactionResult struct {
	Documents   int
	BytesBefore int64
	BytesAfter  int64
	Elapsed     time.Duration
}

// CompactionManager rewrites collection logs down to their live documents.
type CompactionManager struct {
	logger zerolog.Logger
}

func NewCompactionManager(logger zerolog.Logger) *CompactionManager {
	return &CompactionManager{logger: logger}
}

// Compact writes every live document of c to a temporary file and renames
// it over the log. It holds the collection's write lock throughout, so no
// append can slip in between the snapshot and the rename. On failure the
// original log is untouched.
func (cm *CompactionManager) Compact(c *Collection) (CompactionResult, error) {
	start := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dropped {
		return CompactionResult{}, c.notFound()
	}
	if c.log == nil {
		return CompactionResult{}, fmt.Errorf("%w: collection %s has no persistence file", domain.ErrNotFound, c.name)
	}

	path := c.log.Path()
	result := CompactionResult{Documents: len(c.documents)}
	if info, err := os.Stat(path); err == nil {
		result.BytesBefore = info.Size()
	}

	tempPath := path + compactSuffix
	written, err := writeCompacted(tempPath, c)
	if err != nil {
		os.Remove(tempPath)
		return CompactionResult{}, fmt.Errorf("%w: compact %s: %w", domain.ErrIOFailure, c.name, err)
	}

	// The open append handle points at the old inode; drop it so the next
	// append opens the compacted file.
	if err := c.log.Close(); err != nil {
		cm.logger.Warn().Err(err).Str("collection", c.name).Msg("closing log before compaction rename")
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return CompactionResult{}, fmt.Errorf("%w: replace log of %s: %w", domain.ErrIOFailure, c.name, err)
	}

	result.BytesAfter = written
	result.Elapsed = time.Since(start)

	cm.logger.Info().
		Str("collection", c.name).
		Int("documents", result.Documents).
		Int64("bytes_before", result.BytesBefore).
		Int64("bytes_after", result.BytesAfter).
		Dur("elapsed", result.Elapsed).
		Msg("Compaction completed")

	return result, nil
}

// writeCompacted writes one line per document, sorted by id, and syncs the
// file before returning. Caller holds c.mu.
func writeCompacted(tempPath string, c *Collection) (int64, error) {
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", tempPath, err)
	}

	w := bufio.NewWriter(file)
	var written int64
	for _, id := range c.sortedIDs() {
		line, err := c.documents[id].MarshalJSON()
		if err != nil {
			file.Close()
			return 0, fmt.Errorf("encode document %s: %w", id, err)
		}
		n, err := w.Write(append(line, '\n'))
		if err != nil {
			file.Close()
			return 0, fmt.Errorf("write %s: %w", tempPath, err)
		}
		written += int64(n)
	}

	if err := w.Flush(); err != nil {
		file.Close()
		return 0, fmt.Errorf("flush %s: %w", tempPath, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return 0, fmt.Errorf("sync %s: %w", tempPath, err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", tempPath, err)
	}
	return written, nil
}

// Compact rewrites the log of a persistent collection. In-memory
// collections return NotFound.
func (r *Registry) Compact(collName string) (err error) {
	defer func() { observeOp("compact", err) }()

	c, err := r.lookup(collName)
	if err != nil {
		return err
	}

	_, err = r.compactor.Compact(c)
	CompactionsTotal.WithLabelValues(collName, resultLabel(err)).Inc()
	return err
}
