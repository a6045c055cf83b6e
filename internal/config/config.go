package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures every tunable of the telemetry engine. All values carry
// embedded defaults; a YAML file and FLEET_ENGINE_* environment variables
// override them without code changes.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Buffer   BufferConfig   `yaml:"buffer"`
	Risk     RiskConfig     `yaml:"risk"`
	Ranges   RangesConfig   `yaml:"ranges"`
	Patterns PatternsConfig `yaml:"patterns"`
	Fleet    FleetConfig    `yaml:"fleet"`
	Costs    CostsConfig    `yaml:"costs"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// BufferConfig bounds the in-memory ingest buffer.
type BufferConfig struct {
	Capacity         int `yaml:"capacity"`
	DefaultReadLimit int `yaml:"defaultReadLimit"`
}

// RiskConfig holds the baseline scoring weights, normalization constants,
// and band cut points. Bands: score <= BandLowMax is Low, <= BandMediumMax
// is Medium, else High.
type RiskConfig struct {
	CoolantBaselineF float64 `yaml:"coolantBaselineF"`
	CoolantSpreadF   float64 `yaml:"coolantSpreadF"`
	VibrationScale   float64 `yaml:"vibrationScale"`
	EngineHoursScale float64 `yaml:"engineHoursScale"`
	CoolantWeight    float64 `yaml:"coolantWeight"`
	VibrationWeight  float64 `yaml:"vibrationWeight"`
	HoursWeight      float64 `yaml:"hoursWeight"`
	BandLowMax       float64 `yaml:"bandLowMax"`
	BandMediumMax    float64 `yaml:"bandMediumMax"`
}

// SignalRange is an inclusive accepted physical range for one signal.
type SignalRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// RangesConfig declares the accepted physical ranges the validator checks.
// Engine hours has no upper bound; negative values are flagged for review.
type RangesConfig struct {
	CoolantTempF   SignalRange `yaml:"coolantTempF"`
	IntakeAirTempF SignalRange `yaml:"intakeAirTempF"`
	EngineRPM      SignalRange `yaml:"engineRPM"`
	SpeedMPH       SignalRange `yaml:"speedMPH"`
	Vibration      SignalRange `yaml:"vibration"`
}

// PatternFamilyConfig tunes one signal family of the pattern detector.
type PatternFamilyConfig struct {
	WindowSeconds  int     `yaml:"windowSeconds"`
	SpikeThreshold float64 `yaml:"spikeThreshold"`
	BucketSeconds  float64 `yaml:"bucketSeconds"`
	HighCount      int     `yaml:"highCount"`
	HighDensity    float64 `yaml:"highDensity"`
	MediumCount    int     `yaml:"mediumCount"`
	MediumDensity  float64 `yaml:"mediumDensity"`
	BoostLow       float64 `yaml:"boostLow"`
	BoostMedium    float64 `yaml:"boostMedium"`
	BoostHigh      float64 `yaml:"boostHigh"`
}

// PatternsConfig groups the two scenario-scoped spike families.
type PatternsConfig struct {
	Coolant   PatternFamilyConfig `yaml:"coolant"`
	Vibration PatternFamilyConfig `yaml:"vibration"`
}

// FleetConfig controls the trailing window for fleet-wide summaries.
type FleetConfig struct {
	WindowSeconds int `yaml:"windowSeconds"`
}

// CostsConfig points at the optional cost-pack YAML file.
type CostsConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FLEET_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8000",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Buffer: BufferConfig{
			Capacity:         3000,
			DefaultReadLimit: 600,
		},
		Risk: RiskConfig{
			CoolantBaselineF: 185,
			CoolantSpreadF:   25,
			VibrationScale:   3,
			EngineHoursScale: 2000,
			CoolantWeight:    0.5,
			VibrationWeight:  0.3,
			HoursWeight:      0.2,
			BandLowMax:       30,
			BandMediumMax:    65,
		},
		Ranges: RangesConfig{
			CoolantTempF:   SignalRange{Min: 150, Max: 260},
			IntakeAirTempF: SignalRange{Min: 40, Max: 120},
			EngineRPM:      SignalRange{Min: 0, Max: 8000},
			SpeedMPH:       SignalRange{Min: 0, Max: 140},
			Vibration:      SignalRange{Min: 0, Max: 5},
		},
		Patterns: PatternsConfig{
			Coolant: PatternFamilyConfig{
				WindowSeconds:  90,
				SpikeThreshold: 230,
				BucketSeconds:  30,
				HighCount:      4,
				HighDensity:    2.0,
				MediumCount:    2,
				MediumDensity:  1.0,
				BoostLow:       8,
				BoostMedium:    18,
				BoostHigh:      32,
			},
			Vibration: PatternFamilyConfig{
				WindowSeconds:  180,
				SpikeThreshold: 2.8,
				BucketSeconds:  60,
				HighCount:      5,
				HighDensity:    2.0,
				MediumCount:    3,
				MediumDensity:  1.0,
				BoostLow:       5,
				BoostMedium:    12,
				BoostHigh:      20,
			},
		},
		Fleet:   FleetConfig{WindowSeconds: 60},
		Costs:   CostsConfig{Path: "configs/costs/default.yaml"},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func (c *Config) validate() error {
	if c.Buffer.Capacity <= 0 {
		return fmt.Errorf("buffer capacity must be positive, got %d", c.Buffer.Capacity)
	}
	if c.Buffer.DefaultReadLimit <= 0 {
		return fmt.Errorf("default read limit must be positive, got %d", c.Buffer.DefaultReadLimit)
	}
	if c.Risk.BandLowMax >= c.Risk.BandMediumMax {
		return fmt.Errorf("band cut points out of order: low %.1f >= medium %.1f", c.Risk.BandLowMax, c.Risk.BandMediumMax)
	}
	for _, family := range []PatternFamilyConfig{c.Patterns.Coolant, c.Patterns.Vibration} {
		if family.WindowSeconds <= 0 {
			return fmt.Errorf("pattern window must be positive, got %d", family.WindowSeconds)
		}
		if family.BucketSeconds <= 0 {
			return fmt.Errorf("pattern bucket must be positive, got %.1f", family.BucketSeconds)
		}
	}
	if c.Fleet.WindowSeconds <= 0 {
		return fmt.Errorf("fleet window must be positive, got %d", c.Fleet.WindowSeconds)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLEET_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("FLEET_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("FLEET_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FLEET_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("FLEET_ENGINE_BUFFER_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Buffer.Capacity = n
		}
	}
	if v := os.Getenv("FLEET_ENGINE_READ_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Buffer.DefaultReadLimit = n
		}
	}
	if v := os.Getenv("FLEET_ENGINE_BAND_LOW_MAX"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.BandLowMax = f
		}
	}
	if v := os.Getenv("FLEET_ENGINE_BAND_MEDIUM_MAX"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.BandMediumMax = f
		}
	}
	if v := os.Getenv("FLEET_ENGINE_COOLANT_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Patterns.Coolant.WindowSeconds = n
		}
	}
	if v := os.Getenv("FLEET_ENGINE_VIBRATION_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Patterns.Vibration.WindowSeconds = n
		}
	}
	if v := os.Getenv("FLEET_ENGINE_COOLANT_SPIKE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Patterns.Coolant.SpikeThreshold = f
		}
	}
	if v := os.Getenv("FLEET_ENGINE_VIBRATION_SPIKE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Patterns.Vibration.SpikeThreshold = f
		}
	}
	if v := os.Getenv("FLEET_ENGINE_FLEET_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Fleet.WindowSeconds = n
		}
	}
	if v := os.Getenv("FLEET_ENGINE_COSTS_PATH"); v != "" {
		cfg.Costs.Path = v
	}
	if v := os.Getenv("FLEET_ENGINE_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
}
