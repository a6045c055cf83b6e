package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Address != ":8000" {
		t.Fatalf("address = %s", cfg.Server.Address)
	}
	if cfg.Buffer.Capacity != 3000 || cfg.Buffer.DefaultReadLimit != 600 {
		t.Fatalf("buffer defaults = %+v", cfg.Buffer)
	}
	if cfg.Risk.BandLowMax != 30 || cfg.Risk.BandMediumMax != 65 {
		t.Fatalf("band cuts = %+v", cfg.Risk)
	}
	if cfg.Patterns.Coolant.WindowSeconds != 90 || cfg.Patterns.Vibration.WindowSeconds != 180 {
		t.Fatalf("pattern windows = %+v", cfg.Patterns)
	}
	if cfg.Patterns.Coolant.SpikeThreshold != 230 || cfg.Patterns.Vibration.SpikeThreshold != 2.8 {
		t.Fatalf("spike thresholds = %+v", cfg.Patterns)
	}
	if cfg.Fleet.WindowSeconds != 60 {
		t.Fatalf("fleet window = %d", cfg.Fleet.WindowSeconds)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  address: ":9100"
buffer:
  capacity: 50
patterns:
  coolant:
    spikeThreshold: 240
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":9100" {
		t.Fatalf("address = %s", cfg.Server.Address)
	}
	if cfg.Buffer.Capacity != 50 {
		t.Fatalf("capacity = %d", cfg.Buffer.Capacity)
	}
	if cfg.Patterns.Coolant.SpikeThreshold != 240 {
		t.Fatalf("threshold = %f", cfg.Patterns.Coolant.SpikeThreshold)
	}
	// Untouched values keep their defaults.
	if cfg.Patterns.Coolant.WindowSeconds != 90 || cfg.Buffer.DefaultReadLimit != 600 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing explicit config path did not fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLEET_ENGINE_SERVER_ADDRESS", ":9999")
	t.Setenv("FLEET_ENGINE_BUFFER_CAPACITY", "42")
	t.Setenv("FLEET_ENGINE_COOLANT_SPIKE_THRESHOLD", "235.5")
	t.Setenv("FLEET_ENGINE_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Fatalf("address = %s", cfg.Server.Address)
	}
	if cfg.Buffer.Capacity != 42 {
		t.Fatalf("capacity = %d", cfg.Buffer.Capacity)
	}
	if cfg.Patterns.Coolant.SpikeThreshold != 235.5 {
		t.Fatalf("threshold = %f", cfg.Patterns.Coolant.SpikeThreshold)
	}
	if !cfg.Logging.JSON {
		t.Fatalf("log format override ignored")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("FLEET_ENGINE_BUFFER_CAPACITY", "0")
	if _, err := Load(""); err == nil {
		t.Fatalf("zero capacity accepted")
	}
}

func TestValidateRejectsBandOrder(t *testing.T) {
	t.Setenv("FLEET_ENGINE_BAND_LOW_MAX", "70")
	t.Setenv("FLEET_ENGINE_BAND_MEDIUM_MAX", "65")
	if _, err := Load(""); err == nil {
		t.Fatalf("inverted band cut points accepted")
	}
}
