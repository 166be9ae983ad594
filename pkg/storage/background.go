package storage

import (
	"time"
)

// StartBackgroundWorkers starts the periodic compaction worker when a
// compaction interval is configured.
func (r *Registry) StartBackgroundWorkers() {
	if r.compactionInterval <= 0 {
		return
	}

	r.backgroundWg.Add(1)
	go func() {
		defer r.backgroundWg.Done()
		ticker := time.NewTicker(r.compactionInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.compactPersistentCollections()
			case <-r.stopChan:
				return
			}
		}
	}()
	r.logger.Info().Dur("interval", r.compactionInterval).Msg("Background compaction started")
}

// StopBackgroundWorkers stops background workers and waits for them. Safe
// to call more than once.
func (r *Registry) StopBackgroundWorkers() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.backgroundWg.Wait()
}

// compactPersistentCollections compacts every collection that has a log.
// Failures are logged and do not stop the sweep.
func (r *Registry) compactPersistentCollections() {
	r.mu.RLock()
	persistent := make([]*Collection, 0, len(r.collections))
	for _, c := range r.collections {
		if c.log != nil {
			persistent = append(persistent, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range persistent {
		_, err := r.compactor.Compact(c)
		CompactionsTotal.WithLabelValues(c.name, resultLabel(err)).Inc()
		if err != nil {
			r.logger.Error().Err(err).Str("collection", c.name).Msg("Background compaction failed")
		}
	}
}

// Close stops background workers and releases every open log handle.
func (r *Registry) Close() error {
	r.StopBackgroundWorkers()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for _, c := range r.collections {
		c.mu.Lock()
		if c.log != nil {
			if err := c.log.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		c.mu.Unlock()
	}
	return firstErr
}
