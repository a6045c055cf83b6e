package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/connectedopslab/fleet-engine/internal/utils"
)

// telemetryWire is the JSON shape of a sample. Numeric fields are pointers
// so absent or null signals round-trip as NaN internally instead of zero,
// and NaN never reaches the JSON encoder.
type telemetryWire struct {
	TS             string   `json:"ts"`
	VehicleID      string   `json:"vehicle_id"`
	CoolantTempF   *float64 `json:"coolant_temp_f"`
	IntakeAirTempF *float64 `json:"intake_air_temp_f"`
	EngineRPM      *float64 `json:"engine_rpm"`
	SpeedMPH       *float64 `json:"speed_mph"`
	VibrationScore *float64 `json:"vibration_score"`
	EngineHours    *float64 `json:"engine_hours"`
}

// MarshalJSON renders NaN signals as null.
func (s TelemetrySample) MarshalJSON() ([]byte, error) {
	return json.Marshal(telemetryWire{
		TS:             s.Timestamp.UTC().Format(time.RFC3339Nano),
		VehicleID:      s.VehicleID,
		CoolantTempF:   optional(s.CoolantTempF),
		IntakeAirTempF: optional(s.IntakeAirTempF),
		EngineRPM:      optional(s.EngineRPM),
		SpeedMPH:       optional(s.SpeedMPH),
		VibrationScore: optional(s.VibrationScore),
		EngineHours:    optional(s.EngineHours),
	})
}

// UnmarshalJSON enforces the structural contract (ts and vehicle_id are
// required) while leaving semantic range checks to the validator. Absent or
// null signals become NaN.
func (s *TelemetrySample) UnmarshalJSON(data []byte) error {
	var wire telemetryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	ts, err := utils.ParseRFC3339(wire.TS)
	if err != nil {
		return fmt.Errorf("ts: %w", err)
	}
	if wire.VehicleID == "" {
		return fmt.Errorf("vehicle_id is required")
	}

	*s = TelemetrySample{
		Timestamp:      ts,
		VehicleID:      wire.VehicleID,
		CoolantTempF:   orNaN(wire.CoolantTempF),
		IntakeAirTempF: orNaN(wire.IntakeAirTempF),
		EngineRPM:      orNaN(wire.EngineRPM),
		SpeedMPH:       orNaN(wire.SpeedMPH),
		VibrationScore: orNaN(wire.VibrationScore),
		EngineHours:    orNaN(wire.EngineHours),
	}
	return nil
}

// scenarioWire omits the start time entirely while idle.
type scenarioWire struct {
	Active    bool    `json:"active"`
	Type      string  `json:"anomaly_type,omitempty"`
	StartedAt *string `json:"started_at,omitempty"`
}

// MarshalJSON renders an idle scenario as {"active": false}.
func (s ScenarioState) MarshalJSON() ([]byte, error) {
	wire := scenarioWire{Active: s.Active}
	if s.Active {
		wire.Type = string(s.Type)
		started := s.StartedAt.UTC().Format(time.RFC3339Nano)
		wire.StartedAt = &started
	}
	return json.Marshal(wire)
}

// UnmarshalJSON restores a scenario snapshot from its wire form.
func (s *ScenarioState) UnmarshalJSON(data []byte) error {
	var wire scenarioWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*s = ScenarioState{Active: wire.Active, Type: AnomalyType(wire.Type)}
	if wire.StartedAt != nil {
		ts, err := utils.ParseRFC3339(*wire.StartedAt)
		if err != nil {
			return fmt.Errorf("started_at: %w", err)
		}
		s.StartedAt = ts
	}
	return nil
}

func optional(value float64) *float64 {
	if math.IsNaN(value) {
		return nil
	}
	return &value
}

func orNaN(value *float64) float64 {
	if value == nil {
		return math.NaN()
	}
	return *value
}
