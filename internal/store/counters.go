package store

import (
	"sync"

	"github.com/connectedopslab/fleet-engine/internal/models"
)

// Counters tracks anomaly occurrences per type since process start. Counts
// are only ever incremented, never windowed or decremented.
type Counters struct {
	mu     sync.RWMutex
	counts map[models.AnomalyType]int
}

// NewCounters returns zero-initialized counters for every anomaly type.
func NewCounters() *Counters {
	counts := make(map[models.AnomalyType]int, 3)
	for _, kind := range models.AnomalyTypes() {
		counts[kind] = 0
	}
	return &Counters{counts: counts}
}

// Increment records one occurrence of the given type.
func (c *Counters) Increment(kind models.AnomalyType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[kind]++
}

// Stats returns the current counts with all three keys present.
func (c *Counters) Stats() models.AnomalyStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.AnomalyStats{
		CoolantOverheat: c.counts[models.AnomalyCoolantOverheat],
		VibrationSpike:  c.counts[models.AnomalyVibrationSpike],
		SpeedAnomaly:    c.counts[models.AnomalySpeedAnomaly],
	}
}
