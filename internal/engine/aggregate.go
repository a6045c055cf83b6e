package engine

import (
	"sort"
	"time"

	"github.com/connectedopslab/fleet-engine/internal/models"
)

// FleetAggregator reduces scored samples to one current risk value per
// vehicle over a trailing window. The window is anchored at the latest known
// sample time and is independent of any scenario window.
type FleetAggregator struct {
	scorer        *Scorer
	windowSeconds int
}

// NewFleetAggregator creates an aggregator over the given trailing window.
func NewFleetAggregator(scorer *Scorer, windowSeconds int) *FleetAggregator {
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	return &FleetAggregator{scorer: scorer, windowSeconds: windowSeconds}
}

// WindowSeconds reports the configured trailing window length.
func (a *FleetAggregator) WindowSeconds() int {
	return a.windowSeconds
}

// Summarize takes the maximum boosted score per vehicle among samples inside
// the trailing window and bands it with the same cut points. Vehicles with no
// samples in the window are excluded, not zero-filled.
func (a *FleetAggregator) Summarize(scored []models.ScoredSample) []models.VehicleWindowRisk {
	if len(scored) == 0 {
		return nil
	}

	latest := scored[0].Sample.Timestamp
	for _, s := range scored[1:] {
		if s.Sample.Timestamp.After(latest) {
			latest = s.Sample.Timestamp
		}
	}
	windowStart := latest.Add(-time.Duration(a.windowSeconds) * time.Second)

	maxByVehicle := make(map[string]float64)
	for _, s := range scored {
		if s.Sample.Timestamp.Before(windowStart) {
			continue
		}
		if current, ok := maxByVehicle[s.Sample.VehicleID]; !ok || s.Risk.Score > current {
			maxByVehicle[s.Sample.VehicleID] = s.Risk.Score
		}
	}

	result := make([]models.VehicleWindowRisk, 0, len(maxByVehicle))
	for vehicleID, score := range maxByVehicle {
		result = append(result, models.VehicleWindowRisk{
			VehicleID: vehicleID,
			Score:     score,
			Band:      a.scorer.Band(score),
		})
	}

	// Highest risk first; vehicle id breaks ties for a deterministic order.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].VehicleID < result[j].VehicleID
	})
	return result
}
