// fleet-emulator generates Corolla-like cruise telemetry and streams it into
// the fleet-engine ingest endpoint. RPM and speed drift around cruise
// setpoints and feed the intake, coolant, and vibration signals so the
// scoring output looks like a healthy vehicle until anomalies are injected.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/connectedopslab/fleet-engine/internal/models"
	"github.com/connectedopslab/fleet-engine/internal/utils"
)

const (
	rpmSetpoint   = 2400.0
	speedSetpoint = 70.0
	coolantBase   = 190.0
	intakeBase    = 70.0
)

// cruiseState models one vehicle at highway cruise with first-order-lag
// dynamics and coupled signals.
type cruiseState struct {
	coolantTempF   float64
	intakeAirTempF float64
	engineRPM      float64
	speedMPH       float64
	vibration      float64
	engineHours    float64
	rng            *rand.Rand
}

func newCruiseState(seed int64) *cruiseState {
	return &cruiseState{
		coolantTempF:   coolantBase,
		intakeAirTempF: intakeBase,
		engineRPM:      rpmSetpoint,
		speedMPH:       speedSetpoint,
		vibration:      0.8,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// approach moves value toward target with a first-order lag.
func approach(value, target, gain float64) float64 {
	return value + gain*(target-value)
}

func bound(value, min, max float64) float64 {
	return math.Max(min, math.Min(value, max))
}

// step advances the emulator one tick with coupled dynamics: RPM and speed
// track their setpoints with noise, temps follow engine load, vibration
// grows with RPM and deviation from the ideal speed, and engine hours
// accumulate.
func (s *cruiseState) step(dt time.Duration) {
	dtSeconds := dt.Seconds()
	s.engineHours += dtSeconds / 3600.0

	s.engineRPM = approach(s.engineRPM, rpmSetpoint, 0.05) + s.rng.Float64()*160 - 80
	s.engineRPM = bound(s.engineRPM, 1500, 3200)

	s.speedMPH = approach(s.speedMPH, speedSetpoint, 0.08) + s.rng.Float64()*3 - 1.5
	s.speedMPH = bound(s.speedMPH, 45, 80)

	intakeEffect := 0.002*(s.engineRPM-rpmSetpoint) + 0.03*(s.speedMPH-speedSetpoint)
	s.intakeAirTempF = approach(s.intakeAirTempF, intakeBase+intakeEffect, 0.15) + s.rng.Float64()*0.6 - 0.3
	s.intakeAirTempF = bound(s.intakeAirTempF, 60, 80)

	loadEffect := 0.004 * (s.engineRPM - rpmSetpoint)
	hoursEffect := 0.01 * s.engineHours
	s.coolantTempF = approach(s.coolantTempF, coolantBase+loadEffect+hoursEffect, 0.08) + s.rng.Float64()*0.8 - 0.4
	s.coolantTempF = bound(s.coolantTempF, 180, 210)

	rpmComponent := math.Max(0, (s.engineRPM-2200)/1500)
	speedComponent := math.Abs(s.speedMPH-70) / 20
	s.vibration = 0.5 + 0.6*rpmComponent + 0.6*speedComponent + s.rng.Float64()*0.2 - 0.1
	s.vibration = bound(s.vibration, 0.2, 3.0)
}

func (s *cruiseState) sample(vehicleID string, clock utils.Clock) models.TelemetrySample {
	return models.TelemetrySample{
		Timestamp:      clock.Now(),
		VehicleID:      vehicleID,
		CoolantTempF:   s.coolantTempF,
		IntakeAirTempF: s.intakeAirTempF,
		EngineRPM:      s.engineRPM,
		SpeedMPH:       s.speedMPH,
		VibrationScore: s.vibration,
		EngineHours:    s.engineHours,
	}
}

// ingestClient posts samples to the engine's ingest endpoint.
type ingestClient struct {
	baseURL string
	client  *http.Client
}

func newIngestClient(baseURL string, timeout time.Duration) *ingestClient {
	return &ingestClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *ingestClient) send(ctx context.Context, sample models.TelemetrySample) (models.IngestAck, error) {
	payload, err := json.Marshal(sample)
	if err != nil {
		return models.IngestAck{}, fmt.Errorf("marshal sample: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/telemetry", bytes.NewReader(payload))
	if err != nil {
		return models.IngestAck{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.IngestAck{}, fmt.Errorf("post telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.IngestAck{}, fmt.Errorf("ingest returned status %d", resp.StatusCode)
	}

	var ack models.IngestAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return models.IngestAck{}, fmt.Errorf("decode ack: %w", err)
	}
	return ack, nil
}

func main() {
	var (
		apiURL    string
		vehicleID string
		interval  time.Duration
		seed      int64
	)
	flag.StringVar(&apiURL, "api-url", envOr("FLEET_EMULATOR_API_URL", "http://127.0.0.1:8000"), "Base URL of the fleet-engine API")
	flag.StringVar(&vehicleID, "vehicle-id", envOr("FLEET_EMULATOR_VEHICLE_ID", "corolla_2019"), "Vehicle identifier to emit")
	flag.DurationVar(&interval, "interval", time.Second, "Tick interval between samples")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "Random seed for the cruise dynamics")
	flag.Parse()

	logger := utils.NewLogger(envOr("FLEET_EMULATOR_LOG_LEVEL", "info"), false)
	logger.Info("starting fleet-emulator",
		slog.String("api_url", apiURL),
		slog.String("vehicle_id", vehicleID),
		slog.Duration("interval", interval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := newCruiseState(seed)
	client := newIngestClient(apiURL, 2*time.Second)
	clock := utils.SystemClock{}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("fleet-emulator stopped")
			return
		case <-ticker.C:
			state.step(interval)
			sample := state.sample(vehicleID, clock)
			ack, err := client.send(ctx, sample)
			if err != nil {
				logger.Warn("send failed", slog.Any("error", err))
				continue
			}
			logger.Debug("sample sent",
				slog.Int("buffered", ack.Buffered),
				slog.Float64("coolant_temp_f", sample.CoolantTempF),
				slog.Float64("vibration_score", sample.VibrationScore),
			)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
