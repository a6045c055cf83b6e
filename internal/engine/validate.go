package engine

import (
	"math"

	"github.com/connectedopslab/fleet-engine/internal/config"
	"github.com/connectedopslab/fleet-engine/internal/models"
)

// Validator classifies samples against required-field and physical-range
// rules. It is pure advisory metadata: nothing is ever removed from the
// buffer, and a structurally valid sample never produces an error no matter
// how far out of range its values are.
type Validator struct {
	ranges config.RangesConfig
}

// NewValidator creates a validator for the configured accepted ranges.
func NewValidator(ranges config.RangesConfig) *Validator {
	return &Validator{ranges: ranges}
}

// Validate classifies one sample. Missing numeric fields take priority over
// range violations.
func (v *Validator) Validate(sample models.TelemetrySample) models.ValidationResult {
	if sample.HasMissingSignals() {
		return models.ValidationResult{
			Status: models.ValidationRejected,
			Reason: "missing numeric fields",
		}
	}

	if v.outOfRange(sample) {
		return models.ValidationResult{
			Status: models.ValidationNeedsReview,
			Reason: "out-of-range values",
		}
	}

	return models.ValidationResult{Status: models.ValidationValid}
}

func (v *Validator) outOfRange(s models.TelemetrySample) bool {
	if outside(s.CoolantTempF, v.ranges.CoolantTempF) {
		return true
	}
	if outside(s.IntakeAirTempF, v.ranges.IntakeAirTempF) {
		return true
	}
	if outside(s.EngineRPM, v.ranges.EngineRPM) {
		return true
	}
	if outside(s.SpeedMPH, v.ranges.SpeedMPH) {
		return true
	}
	if outside(s.VibrationScore, v.ranges.Vibration) {
		return true
	}
	// Engine hours: non-negative assumed, no upper bound.
	if s.EngineHours < 0 {
		return true
	}
	return false
}

func outside(value float64, r config.SignalRange) bool {
	if math.IsNaN(value) {
		return false
	}
	return value < r.Min || value > r.Max
}
