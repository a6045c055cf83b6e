package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/connectedopslab/fleet-engine/internal/models"
)

func TestCostModelDefaults(t *testing.T) {
	model, err := NewCostModel("", nil)
	if err != nil {
		t.Fatalf("NewCostModel: %v", err)
	}

	estimate, ok := model.Estimate(models.AnomalyCoolantOverheat)
	if !ok {
		t.Fatalf("no estimate for coolant_overheat")
	}
	// 1200 + 4h * (150 + 200) = 2600 early; 3500 + 12h * 350 = 7700 deferred.
	if estimate.Early.Cost != 2600 {
		t.Fatalf("early cost = %f, want 2600", estimate.Early.Cost)
	}
	if estimate.Deferred.Cost != 7700 {
		t.Fatalf("deferred cost = %f, want 7700", estimate.Deferred.Cost)
	}
	if estimate.Scenario != models.AnomalyCoolantOverheat {
		t.Fatalf("scenario = %s", estimate.Scenario)
	}

	speed, _ := model.Estimate(models.AnomalySpeedAnomaly)
	// 150 + 0.5h * 350 = 325 early.
	if speed.Early.Cost != 325 {
		t.Fatalf("speed early cost = %f, want 325", speed.Early.Cost)
	}
}

func TestCostModelLoadsPack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "costs.yaml")
	pack := `
laborRatePerHour: 100
revenuePerHour: 100
scenarios:
  vibration_spike:
    earlyRepair: 500
    earlyDowntimeHours: 1
    deferredRepair: 2000
    deferredDowntimeHours: 5
  bogus_scenario:
    earlyRepair: 1
`
	if err := os.WriteFile(path, []byte(pack), 0o600); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	model, err := NewCostModel(path, nil)
	if err != nil {
		t.Fatalf("NewCostModel: %v", err)
	}

	estimate, ok := model.Estimate(models.AnomalyVibrationSpike)
	if !ok {
		t.Fatalf("no estimate for vibration_spike")
	}
	// 500 + 1h * 200 = 700 early; 2000 + 5h * 200 = 3000 deferred.
	if estimate.Early.Cost != 700 || estimate.Deferred.Cost != 3000 {
		t.Fatalf("got early %f deferred %f", estimate.Early.Cost, estimate.Deferred.Cost)
	}

	// Unknown scenarios are skipped; untouched defaults remain.
	if _, ok := model.Estimate(models.AnomalyCoolantOverheat); !ok {
		t.Fatalf("defaults lost for scenarios absent from the pack")
	}
}

func TestCostModelMissingFileUsesDefaults(t *testing.T) {
	model, err := NewCostModel(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
	if _, ok := model.Estimate(models.AnomalySpeedAnomaly); !ok {
		t.Fatalf("defaults not loaded")
	}
}

func TestCostModelMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("scenarios: [not, a, map"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewCostModel(path, nil); err == nil {
		t.Fatalf("malformed pack did not fail")
	}
}
