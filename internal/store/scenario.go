package store

import (
	"sync"
	"time"

	"github.com/connectedopslab/fleet-engine/internal/models"
)

// Scenario tracks at most one active anomaly scenario. Starting a new
// scenario overwrites the previous one; both fields change under one lock so
// a reader can never observe a fresh start time with a stale type.
type Scenario struct {
	mu        sync.RWMutex
	active    bool
	kind      models.AnomalyType
	startedAt time.Time
}

// NewScenario returns an idle scenario container.
func NewScenario() *Scenario {
	return &Scenario{}
}

// Activate starts (or restarts) a scenario of the given type at the given
// instant. Activation never retroactively affects risk already rendered for
// samples before startedAt.
func (s *Scenario) Activate(kind models.AnomalyType, startedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.kind = kind
	s.startedAt = startedAt
}

// Clear returns the scenario to idle. There is no automatic timeout; this is
// the only path back.
func (s *Scenario) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.kind = ""
	s.startedAt = time.Time{}
}

// Snapshot returns an internally consistent view of the scenario. Scoring
// passes take one snapshot per pass; a concurrent Activate or Clear lands on
// the next pass (last writer wins).
func (s *Scenario) Snapshot() models.ScenarioState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.active {
		return models.ScenarioState{}
	}
	return models.ScenarioState{
		Active:    true,
		Type:      s.kind,
		StartedAt: s.startedAt,
	}
}
