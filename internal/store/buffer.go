// Package store owns the process-wide mutable state of the engine: the
// bounded ingest buffer, the scenario singleton, and the anomaly counters.
// All mutation is funneled through methods holding the owning mutex so
// readers always observe consistent snapshots.
package store

import (
	"sort"
	"sync"

	"github.com/connectedopslab/fleet-engine/internal/models"
)

// Buffer is a fixed-capacity, insertion-ordered ring of telemetry samples
// across all vehicles. Appending past capacity evicts the oldest sample.
type Buffer struct {
	mu       sync.RWMutex
	samples  []models.TelemetrySample
	start    int
	count    int
	capacity int
}

// NewBuffer creates a buffer holding at most capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 3000
	}
	return &Buffer{
		samples:  make([]models.TelemetrySample, capacity),
		capacity: capacity,
	}
}

// Append stores a sample unconditionally; validation happens downstream.
// Returns the occupancy after the append.
func (b *Buffer) Append(sample models.TelemetrySample) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == b.capacity {
		// Overwrite the oldest slot.
		b.samples[b.start] = sample
		b.start = (b.start + 1) % b.capacity
		return b.count
	}

	b.samples[(b.start+b.count)%b.capacity] = sample
	b.count++
	return b.count
}

// Len reports the current occupancy.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Capacity reports the fixed maximum occupancy.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Latest returns the most recently appended sample, by insertion order.
func (b *Buffer) Latest() (models.TelemetrySample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return models.TelemetrySample{}, false
	}
	return b.samples[(b.start+b.count-1)%b.capacity], true
}

// Recent returns a copy of the most recent limit samples in ascending time
// order. A limit below 1 is treated as 1; the buffer tolerates out-of-order
// arrival by re-sorting the snapshot on read.
func (b *Buffer) Recent(limit int) []models.TelemetrySample {
	if limit < 1 {
		limit = 1
	}

	b.mu.RLock()
	snapshot := make([]models.TelemetrySample, b.count)
	for i := 0; i < b.count; i++ {
		snapshot[i] = b.samples[(b.start+i)%b.capacity]
	}
	b.mu.RUnlock()

	// Stable sort keeps insertion order among equal timestamps.
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Timestamp.Before(snapshot[j].Timestamp)
	})

	if len(snapshot) > limit {
		snapshot = snapshot[len(snapshot)-limit:]
	}
	return snapshot
}
