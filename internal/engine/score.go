package engine

import (
	"math"

	"github.com/connectedopslab/fleet-engine/internal/config"
	"github.com/connectedopslab/fleet-engine/internal/models"
)

// Scorer maps raw signals to a bounded baseline risk score and a discrete
// band. Weights, normalization constants, and band cut points come from
// configuration.
type Scorer struct {
	cfg config.RiskConfig
}

// NewScorer creates a scorer with the given tuning.
func NewScorer(cfg config.RiskConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Baseline computes the pre-boost risk score in [0,100]. NaN signals
// contribute zero so rejected rows still render a usable number.
func (s *Scorer) Baseline(sample models.TelemetrySample) float64 {
	tempNorm := clamp((sample.CoolantTempF-s.cfg.CoolantBaselineF)/s.cfg.CoolantSpreadF, 0, 2)
	vibNorm := clamp(sample.VibrationScore/s.cfg.VibrationScale, 0, 2)
	hoursNorm := clamp(sample.EngineHours/s.cfg.EngineHoursScale, 0, 1)

	score := (s.cfg.CoolantWeight*tempNorm + s.cfg.VibrationWeight*vibNorm + s.cfg.HoursWeight*hoursNorm) * 100
	return clamp(score, 0, 100)
}

// Band assigns the discrete tier for a score. When a scenario is active the
// caller passes the boosted score, never the baseline alone.
func (s *Scorer) Band(score float64) models.Band {
	switch {
	case score <= s.cfg.BandLowMax:
		return models.BandLow
	case score <= s.cfg.BandMediumMax:
		return models.BandMedium
	default:
		return models.BandHigh
	}
}

// clamp bounds value to [min, max]; NaN collapses to min so arithmetic over
// partially missing samples stays bounded.
func clamp(value, min, max float64) float64 {
	if math.IsNaN(value) || value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
