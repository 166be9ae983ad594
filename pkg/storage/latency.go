package storage

import (
	"sync"
	"time"

	"github.com/adfharrison1/go-jsondb/pkg/domain"
)

// LatencyRingCapacity is how many retrieve samples a collection keeps.
const LatencyRingCapacity = 2500

// LatencyRing is a fixed-capacity FIFO of latency samples. It has its own
// lock so concurrent readers of a collection can record into it.
type LatencyRing struct {
	mu       sync.Mutex
	capacity int
	samples  []domain.LatencySample
	start    int // index of the oldest sample once the ring is full
}

func NewLatencyRing(capacity int) *LatencyRing {
	if capacity <= 0 {
		capacity = LatencyRingCapacity
	}
	return &LatencyRing{capacity: capacity}
}

// Record pushes a sample, evicting the oldest when the ring is full.
func (r *LatencyRing) Record(ts time.Time, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sample := domain.LatencySample{Timestamp: ts, Duration: d}
	if len(r.samples) < r.capacity {
		r.samples = append(r.samples, sample)
		return
	}
	r.samples[r.start] = sample
	r.start = (r.start + 1) % r.capacity
}

// Snapshot returns the samples oldest first.
func (r *LatencyRing) Snapshot() []domain.LatencySample {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.LatencySample, 0, len(r.samples))
	out = append(out, r.samples[r.start:]...)
	out = append(out, r.samples[:r.start]...)
	return out
}

func (r *LatencyRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *LatencyRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = nil
	r.start = 0
}
