package models

import (
	"math"
	"time"
)

// TelemetrySample is one timestamped reading for one vehicle. Samples are
// immutable once buffered; absent numeric signals are carried as NaN so the
// validation layer can surface them instead of ingestion rejecting the row.
type TelemetrySample struct {
	Timestamp      time.Time `json:"ts"`
	VehicleID      string    `json:"vehicle_id"`
	CoolantTempF   float64   `json:"coolant_temp_f"`
	IntakeAirTempF float64   `json:"intake_air_temp_f"`
	EngineRPM      float64   `json:"engine_rpm"`
	SpeedMPH       float64   `json:"speed_mph"`
	VibrationScore float64   `json:"vibration_score"`
	EngineHours    float64   `json:"engine_hours"`
}

// Signals returns the six required numeric fields in declaration order.
func (s TelemetrySample) Signals() []float64 {
	return []float64{
		s.CoolantTempF,
		s.IntakeAirTempF,
		s.EngineRPM,
		s.SpeedMPH,
		s.VibrationScore,
		s.EngineHours,
	}
}

// HasMissingSignals reports whether any required numeric field is NaN.
func (s TelemetrySample) HasMissingSignals() bool {
	for _, v := range s.Signals() {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// AnomalyType enumerates the injectable anomaly kinds.
type AnomalyType string

const (
	AnomalyCoolantOverheat AnomalyType = "coolant_overheat"
	AnomalyVibrationSpike  AnomalyType = "vibration_spike"
	AnomalySpeedAnomaly    AnomalyType = "speed_anomaly"
)

// AnomalyTypes lists every injectable kind in a stable order.
func AnomalyTypes() []AnomalyType {
	return []AnomalyType{AnomalyCoolantOverheat, AnomalyVibrationSpike, AnomalySpeedAnomaly}
}

// ParseAnomalyType validates a wire-level anomaly kind.
func ParseAnomalyType(value string) (AnomalyType, bool) {
	switch AnomalyType(value) {
	case AnomalyCoolantOverheat, AnomalyVibrationSpike, AnomalySpeedAnomaly:
		return AnomalyType(value), true
	}
	return "", false
}

// ValidationStatus classifies a sample's data quality.
type ValidationStatus string

const (
	ValidationValid       ValidationStatus = "Valid"
	ValidationNeedsReview ValidationStatus = "Needs review"
	ValidationRejected    ValidationStatus = "Rejected"
)

// ValidationResult is advisory metadata attached per sample on read; it never
// removes data from the buffer.
type ValidationResult struct {
	Status ValidationStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
}

// Band is the discrete risk tier derived from a numeric score.
type Band string

const (
	BandLow    Band = "Low"
	BandMedium Band = "Medium"
	BandHigh   Band = "High"
)

// BoostTier is the pattern-intensity classification per signal family.
type BoostTier string

const (
	BoostNone   BoostTier = "None"
	BoostLow    BoostTier = "Low"
	BoostMedium BoostTier = "Medium"
	BoostHigh   BoostTier = "High"
)

// RiskAssessment is the derived scoring output for one sample. Score is the
// boosted value clamped to [0,100]; both boost contributions default to zero
// when no scenario is active.
type RiskAssessment struct {
	Score          float64 `json:"risk_score"`
	Baseline       float64 `json:"baseline_score"`
	Band           Band    `json:"risk_band"`
	CoolantBoost   float64 `json:"coolant_pattern_boost"`
	VibrationBoost float64 `json:"vibration_pattern_boost"`
}

// ScoredSample pairs a buffered sample with its recomputed validation and
// risk metadata for one scoring pass.
type ScoredSample struct {
	Sample     TelemetrySample  `json:"sample"`
	Validation ValidationResult `json:"validation"`
	Risk       RiskAssessment   `json:"risk"`
}

// VehicleWindowRisk is the trailing-window aggregate for one vehicle.
type VehicleWindowRisk struct {
	VehicleID string  `json:"vehicle_id"`
	Score     float64 `json:"window_risk_score"`
	Band      Band    `json:"window_risk_band"`
}

// ScenarioState is a snapshot of the process-wide scenario singleton. When
// Active is false the other fields are zero.
type ScenarioState struct {
	Active    bool
	Type      AnomalyType
	StartedAt time.Time
}
