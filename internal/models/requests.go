package models

import "time"

// IngestAck acknowledges a buffered sample with the current occupancy.
type IngestAck struct {
	Status   string `json:"status"`
	Buffered int    `json:"buffered"`
}

// AnomalyStats reports occurrence counts per anomaly kind since process
// start. All three keys are always present.
type AnomalyStats struct {
	CoolantOverheat int `json:"coolant_overheat"`
	VibrationSpike  int `json:"vibration_spike"`
	SpeedAnomaly    int `json:"speed_anomaly"`
}

// CostImpact is one side (early or deferred) of the cost narrative.
type CostImpact struct {
	Cost          float64 `json:"cost"`
	DowntimeHours float64 `json:"downtime_hours"`
}

// CostEstimate pairs the early-intervention and deferred outcomes for a
// scenario type.
type CostEstimate struct {
	Scenario AnomalyType `json:"scenario"`
	Early    CostImpact  `json:"early"`
	Deferred CostImpact  `json:"deferred"`
}

// FleetSummary is the windowed per-vehicle rollup plus the business-impact
// snapshot derived from the active scenario.
type FleetSummary struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	WindowSeconds int                 `json:"window_seconds"`
	Units         int                 `json:"units"`
	HighRiskUnits int                 `json:"high_risk_units"`
	Vehicles      []VehicleWindowRisk `json:"vehicles"`
	Scenario      ScenarioState       `json:"scenario"`
	Impact        *CostEstimate       `json:"impact,omitempty"`
}
