package engine

import (
	"math"
	"time"

	"github.com/connectedopslab/fleet-engine/internal/config"
	"github.com/connectedopslab/fleet-engine/internal/models"
)

// FamilyBoost is the per-vehicle pattern classification for one signal
// family, with the point bonus the tier maps to.
type FamilyBoost struct {
	Tier   models.BoostTier
	Points float64
}

// PatternDetector decides, per vehicle, whether spikes inside the active
// scenario window form a pattern worth escalating risk, and at what
// intensity. Coolant and vibration share the logic with different tuning.
//
// Boosts are a pure function of the sample set and the scenario snapshot:
// repeated invocations over unchanged inputs yield identical results.
type PatternDetector struct {
	coolant   familyDetector
	vibration familyDetector
}

// NewPatternDetector builds a detector for both signal families.
func NewPatternDetector(cfg config.PatternsConfig) *PatternDetector {
	return &PatternDetector{
		coolant: familyDetector{
			cfg:    cfg.Coolant,
			signal: func(s models.TelemetrySample) float64 { return s.CoolantTempF },
		},
		vibration: familyDetector{
			cfg:    cfg.Vibration,
			signal: func(s models.TelemetrySample) float64 { return s.VibrationScore },
		},
	}
}

// Detect computes per-vehicle boosts for both families. When no scenario is
// active it returns nil maps without touching the samples, so idle reads
// stay cheap.
func (d *PatternDetector) Detect(samples []models.TelemetrySample, scenario models.ScenarioState) (coolant, vibration map[string]FamilyBoost) {
	if !scenario.Active {
		return nil, nil
	}
	coolant = d.coolant.detect(samples, scenario.StartedAt)
	vibration = d.vibration.detect(samples, scenario.StartedAt)
	return coolant, vibration
}

type familyDetector struct {
	cfg    config.PatternFamilyConfig
	signal func(models.TelemetrySample) float64
}

type spikeRun struct {
	count    int
	earliest time.Time
	latest   time.Time
}

// detect selects spikes inside [start, start+window] per vehicle and
// classifies their density. Samples before the scenario began or past the
// window's end never influence the result.
func (f familyDetector) detect(samples []models.TelemetrySample, start time.Time) map[string]FamilyBoost {
	windowEnd := start.Add(time.Duration(f.cfg.WindowSeconds) * time.Second)

	runs := make(map[string]*spikeRun)
	for _, sample := range samples {
		if sample.Timestamp.Before(start) || sample.Timestamp.After(windowEnd) {
			continue
		}
		value := f.signal(sample)
		if math.IsNaN(value) || value < f.cfg.SpikeThreshold {
			continue
		}

		run, ok := runs[sample.VehicleID]
		if !ok {
			runs[sample.VehicleID] = &spikeRun{count: 1, earliest: sample.Timestamp, latest: sample.Timestamp}
			continue
		}
		run.count++
		if sample.Timestamp.Before(run.earliest) {
			run.earliest = sample.Timestamp
		}
		if sample.Timestamp.After(run.latest) {
			run.latest = sample.Timestamp
		}
	}

	if len(runs) == 0 {
		return nil
	}

	boosts := make(map[string]FamilyBoost, len(runs))
	for vehicleID, run := range runs {
		boosts[vehicleID] = f.classify(run)
	}
	return boosts
}

// classify maps a vehicle's spike run to a tier. Span is floored at one
// second to avoid division by zero; density approximates spikes per
// characteristic interval. Both the count and the density bar must clear for
// a tier, highest qualifying tier wins.
func (f familyDetector) classify(run *spikeRun) FamilyBoost {
	spanSeconds := run.latest.Sub(run.earliest).Seconds()
	if spanSeconds < 1 {
		spanSeconds = 1
	}

	density := float64(run.count) / math.Max(spanSeconds/f.cfg.BucketSeconds, 1)

	switch {
	case run.count >= f.cfg.HighCount && density >= f.cfg.HighDensity:
		return FamilyBoost{Tier: models.BoostHigh, Points: f.cfg.BoostHigh}
	case run.count >= f.cfg.MediumCount && density >= f.cfg.MediumDensity:
		return FamilyBoost{Tier: models.BoostMedium, Points: f.cfg.BoostMedium}
	default:
		return FamilyBoost{Tier: models.BoostLow, Points: f.cfg.BoostLow}
	}
}
