package engine

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/connectedopslab/fleet-engine/internal/models"
	"github.com/connectedopslab/fleet-engine/internal/utils"
)

// CostModel is a pure lookup from scenario type to modeled early vs deferred
// repair cost and downtime. Total cost per side is
// repair + downtimeHours * (laborRate + revenueRate).
type CostModel struct {
	logger  *slog.Logger
	labor   float64
	revenue float64
	entries map[models.AnomalyType]CostTableEntry
}

// CostTableEntry holds the raw constants for one scenario type.
type CostTableEntry struct {
	EarlyRepair           float64 `yaml:"earlyRepair"`
	EarlyDowntimeHours    float64 `yaml:"earlyDowntimeHours"`
	DeferredRepair        float64 `yaml:"deferredRepair"`
	DeferredDowntimeHours float64 `yaml:"deferredDowntimeHours"`
}

// CostPackFile is the YAML root structure for an external cost pack.
type CostPackFile struct {
	LaborRatePerHour float64                               `yaml:"laborRatePerHour"`
	RevenuePerHour   float64                               `yaml:"revenuePerHour"`
	Scenarios        map[models.AnomalyType]CostTableEntry `yaml:"scenarios"`
}

// NewCostModel loads the cost tables from the given path. A missing or empty
// path falls back to the built-in food-service delivery vehicle defaults;
// a present but malformed file is an error.
func NewCostModel(path string, logger *slog.Logger) (*CostModel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	model := &CostModel{
		logger:  logger,
		labor:   150,
		revenue: 200,
		entries: defaultCostTable(),
	}

	if path == "" {
		return model, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("cost pack not found, using defaults", slog.String("path", path))
			return model, nil
		}
		return nil, utils.NewAppError("costs.load", "read cost pack", err)
	}

	var pack CostPackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, utils.NewAppError("costs.load", "parse cost pack", err)
	}

	if pack.LaborRatePerHour > 0 {
		model.labor = pack.LaborRatePerHour
	}
	if pack.RevenuePerHour > 0 {
		model.revenue = pack.RevenuePerHour
	}
	for kind, entry := range pack.Scenarios {
		if _, ok := models.ParseAnomalyType(string(kind)); !ok {
			logger.Warn("ignoring unknown scenario in cost pack", slog.String("scenario", string(kind)))
			continue
		}
		model.entries[kind] = entry
	}
	return model, nil
}

// Estimate returns the modeled impact for one scenario type.
func (m *CostModel) Estimate(kind models.AnomalyType) (models.CostEstimate, bool) {
	entry, ok := m.entries[kind]
	if !ok {
		return models.CostEstimate{}, false
	}

	downtimeRate := m.labor + m.revenue
	return models.CostEstimate{
		Scenario: kind,
		Early: models.CostImpact{
			Cost:          entry.EarlyRepair + entry.EarlyDowntimeHours*downtimeRate,
			DowntimeHours: entry.EarlyDowntimeHours,
		},
		Deferred: models.CostImpact{
			Cost:          entry.DeferredRepair + entry.DeferredDowntimeHours*downtimeRate,
			DowntimeHours: entry.DeferredDowntimeHours,
		},
	}, true
}

// Defaults model a food-service delivery vehicle: coolant covers an early
// pump/thermostat swap vs ignoring until engine damage, vibration an early
// bearing/bushing fix vs major failure, speed a coaching session vs an
// incident/citation.
func defaultCostTable() map[models.AnomalyType]CostTableEntry {
	return map[models.AnomalyType]CostTableEntry{
		models.AnomalyCoolantOverheat: {
			EarlyRepair:           1200,
			EarlyDowntimeHours:    4,
			DeferredRepair:        3500,
			DeferredDowntimeHours: 12,
		},
		models.AnomalyVibrationSpike: {
			EarlyRepair:           900,
			EarlyDowntimeHours:    3,
			DeferredRepair:        2800,
			DeferredDowntimeHours: 10,
		},
		models.AnomalySpeedAnomaly: {
			EarlyRepair:           150,
			EarlyDowntimeHours:    0.5,
			DeferredRepair:        1500,
			DeferredDowntimeHours: 4,
		},
	}
}
