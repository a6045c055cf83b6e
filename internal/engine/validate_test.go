package engine

import (
	"math"
	"testing"

	"github.com/connectedopslab/fleet-engine/internal/config"
	"github.com/connectedopslab/fleet-engine/internal/models"
)

func testRanges() config.RangesConfig {
	return config.RangesConfig{
		CoolantTempF:   config.SignalRange{Min: 150, Max: 260},
		IntakeAirTempF: config.SignalRange{Min: 40, Max: 120},
		EngineRPM:      config.SignalRange{Min: 0, Max: 8000},
		SpeedMPH:       config.SignalRange{Min: 0, Max: 140},
		Vibration:      config.SignalRange{Min: 0, Max: 5},
	}
}

func healthySample() models.TelemetrySample {
	return models.TelemetrySample{
		VehicleID:      "corolla_2019",
		CoolantTempF:   190,
		IntakeAirTempF: 70,
		EngineRPM:      2400,
		SpeedMPH:       70,
		VibrationScore: 0.8,
		EngineHours:    420,
	}
}

func TestValidateHealthySample(t *testing.T) {
	v := NewValidator(testRanges())
	res := v.Validate(healthySample())
	if res.Status != models.ValidationValid {
		t.Fatalf("status = %s, want Valid (%s)", res.Status, res.Reason)
	}
}

func TestValidateMissingFieldRejected(t *testing.T) {
	v := NewValidator(testRanges())

	mutations := []func(*models.TelemetrySample){
		func(s *models.TelemetrySample) { s.CoolantTempF = math.NaN() },
		func(s *models.TelemetrySample) { s.IntakeAirTempF = math.NaN() },
		func(s *models.TelemetrySample) { s.EngineRPM = math.NaN() },
		func(s *models.TelemetrySample) { s.SpeedMPH = math.NaN() },
		func(s *models.TelemetrySample) { s.VibrationScore = math.NaN() },
		func(s *models.TelemetrySample) { s.EngineHours = math.NaN() },
	}
	for i, mutate := range mutations {
		sample := healthySample()
		mutate(&sample)
		res := v.Validate(sample)
		if res.Status != models.ValidationRejected {
			t.Fatalf("mutation %d: status = %s, want Rejected", i, res.Status)
		}
	}
}

func TestValidateOutOfRangeNeedsReview(t *testing.T) {
	v := NewValidator(testRanges())

	sample := healthySample()
	sample.CoolantTempF = 300
	if res := v.Validate(sample); res.Status != models.ValidationNeedsReview {
		t.Fatalf("hot coolant: status = %s, want Needs review", res.Status)
	}

	sample = healthySample()
	sample.SpeedMPH = -5
	if res := v.Validate(sample); res.Status != models.ValidationNeedsReview {
		t.Fatalf("negative speed: status = %s, want Needs review", res.Status)
	}

	sample = healthySample()
	sample.EngineHours = -1
	if res := v.Validate(sample); res.Status != models.ValidationNeedsReview {
		t.Fatalf("negative engine hours: status = %s, want Needs review", res.Status)
	}

	// No upper bound on engine hours.
	sample = healthySample()
	sample.EngineHours = 50000
	if res := v.Validate(sample); res.Status != models.ValidationValid {
		t.Fatalf("huge engine hours: status = %s, want Valid", res.Status)
	}
}

func TestValidateMissingTakesPriorityOverRange(t *testing.T) {
	v := NewValidator(testRanges())
	sample := healthySample()
	sample.CoolantTempF = 300
	sample.VibrationScore = math.NaN()
	if res := v.Validate(sample); res.Status != models.ValidationRejected {
		t.Fatalf("status = %s, want Rejected when a field is missing", res.Status)
	}
}
