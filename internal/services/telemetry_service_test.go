package services

import (
	"errors"
	"testing"
	"time"

	"github.com/connectedopslab/fleet-engine/internal/config"
	"github.com/connectedopslab/fleet-engine/internal/engine"
	"github.com/connectedopslab/fleet-engine/internal/models"
	"github.com/connectedopslab/fleet-engine/internal/store"
	"github.com/connectedopslab/fleet-engine/internal/utils"
)

type captureBroadcaster struct {
	samples []models.TelemetrySample
}

func (b *captureBroadcaster) BroadcastSample(sample models.TelemetrySample) {
	b.samples = append(b.samples, sample)
}

func newTestService(t *testing.T, capacity int, clock utils.Clock) *TelemetryService {
	t.Helper()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	costs, err := engine.NewCostModel("", nil)
	if err != nil {
		t.Fatalf("cost model: %v", err)
	}

	pipeline := engine.NewPipeline(
		nil,
		engine.NewValidator(cfg.Ranges),
		engine.NewScorer(cfg.Risk),
		engine.NewPatternDetector(cfg.Patterns),
	)
	aggregator := engine.NewFleetAggregator(engine.NewScorer(cfg.Risk), cfg.Fleet.WindowSeconds)

	return NewTelemetryService(
		nil,
		clock,
		store.NewBuffer(capacity),
		store.NewScenario(),
		store.NewCounters(),
		pipeline,
		aggregator,
		costs,
		cfg.Buffer.DefaultReadLimit,
	)
}

func cruiseSample(ts time.Time) models.TelemetrySample {
	return models.TelemetrySample{
		Timestamp:      ts,
		VehicleID:      "corolla_2019",
		CoolantTempF:   190,
		IntakeAirTempF: 70,
		EngineRPM:      2400,
		SpeedMPH:       70,
		VibrationScore: 0.8,
		EngineHours:    420,
	}
}

func TestIngestStampsZeroTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 10, utils.FixedClock{Instant: now})

	sample := cruiseSample(time.Time{})
	ack := svc.Ingest(sample)
	if ack.Status != "ok" || ack.Buffered != 1 {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	recent := svc.ReadRecent(1)
	if len(recent) != 1 || !recent[0].Timestamp.Equal(now) {
		t.Fatalf("zero timestamp not stamped with clock: %+v", recent)
	}
}

func TestIngestBoundedByCapacity(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 5, utils.FixedClock{Instant: now})

	var last models.IngestAck
	for i := 0; i < 8; i++ {
		last = svc.Ingest(cruiseSample(now.Add(time.Duration(i) * time.Second)))
	}
	if last.Buffered != 5 {
		t.Fatalf("occupancy past capacity = %d, want 5", last.Buffered)
	}
}

func TestIngestBroadcasts(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 10, utils.FixedClock{Instant: now})

	sink := &captureBroadcaster{}
	svc.SetBroadcaster(sink)

	svc.Ingest(cruiseSample(now))
	if len(sink.samples) != 1 {
		t.Fatalf("broadcast count = %d, want 1", len(sink.samples))
	}
}

func TestInjectAnomalyEmptyBufferFails(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 10, utils.FixedClock{Instant: now})

	_, err := svc.InjectAnomaly(models.AnomalyCoolantOverheat)
	if !errors.Is(err, utils.ErrNoBaselineData) {
		t.Fatalf("err = %v, want ErrNoBaselineData", err)
	}
	if svc.ScenarioStatus().Active {
		t.Fatalf("failed injection activated the scenario")
	}
	if stats := svc.AnomalyStats(); stats.CoolantOverheat != 0 {
		t.Fatalf("failed injection incremented counters: %+v", stats)
	}
}

func TestInjectAnomalyUnknownType(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 10, utils.FixedClock{Instant: now})
	svc.Ingest(cruiseSample(now))

	if _, err := svc.InjectAnomaly(models.AnomalyType("engine_fire")); !errors.Is(err, utils.ErrUnknownAnomalyType) {
		t.Fatalf("err = %v, want ErrUnknownAnomalyType", err)
	}
}

func TestInjectCoolantOverheat(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 10, utils.FixedClock{Instant: now})
	svc.Ingest(cruiseSample(now.Add(-time.Second)))

	ack, err := svc.InjectAnomaly(models.AnomalyCoolantOverheat)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if ack.Buffered != 2 {
		t.Fatalf("buffered = %d, want 2", ack.Buffered)
	}

	recent := svc.ReadRecent(10)
	injected := recent[len(recent)-1]
	if injected.CoolantTempF != 250 {
		t.Fatalf("coolant = %f, want 250", injected.CoolantTempF)
	}
	if injected.VibrationScore != 1.0 {
		t.Fatalf("vibration = %f, want baseline 0.8 + 0.2", injected.VibrationScore)
	}
	if !injected.Timestamp.Equal(now) {
		t.Fatalf("injected sample not stamped with current instant")
	}

	scenario := svc.ScenarioStatus()
	if !scenario.Active || scenario.Type != models.AnomalyCoolantOverheat || !scenario.StartedAt.Equal(now) {
		t.Fatalf("unexpected scenario: %+v", scenario)
	}
	if stats := svc.AnomalyStats(); stats.CoolantOverheat != 1 {
		t.Fatalf("counter not incremented: %+v", stats)
	}
}

func TestInjectVibrationSpike(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 10, utils.FixedClock{Instant: now})
	svc.Ingest(cruiseSample(now.Add(-time.Second)))

	if _, err := svc.InjectAnomaly(models.AnomalyVibrationSpike); err != nil {
		t.Fatalf("inject: %v", err)
	}

	recent := svc.ReadRecent(10)
	injected := recent[len(recent)-1]
	// max(0.8 + 2.0, 3.5) = 3.5
	if injected.VibrationScore != 3.5 {
		t.Fatalf("vibration = %f, want 3.5", injected.VibrationScore)
	}
}

func TestInjectSpeedAnomaly(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 10, utils.FixedClock{Instant: now})
	svc.Ingest(cruiseSample(now.Add(-time.Second)))

	if _, err := svc.InjectAnomaly(models.AnomalySpeedAnomaly); err != nil {
		t.Fatalf("inject: %v", err)
	}

	recent := svc.ReadRecent(10)
	injected := recent[len(recent)-1]
	if injected.SpeedMPH != 83 || injected.EngineRPM != 3200 {
		t.Fatalf("speed %f rpm %f, want 83 / 3200", injected.SpeedMPH, injected.EngineRPM)
	}
}

func TestResetScenario(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 10, utils.FixedClock{Instant: now})
	svc.Ingest(cruiseSample(now))

	if _, err := svc.InjectAnomaly(models.AnomalyCoolantOverheat); err != nil {
		t.Fatalf("inject: %v", err)
	}
	svc.ResetScenario()

	if svc.ScenarioStatus().Active {
		t.Fatalf("scenario still active after reset")
	}
	// Counters survive the reset.
	if stats := svc.AnomalyStats(); stats.CoolantOverheat != 1 {
		t.Fatalf("reset cleared counters: %+v", stats)
	}
}

func TestFleetSummaryWithActiveScenario(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 100, utils.FixedClock{Instant: now})

	for i := 0; i < 10; i++ {
		svc.Ingest(cruiseSample(now.Add(time.Duration(i-10) * time.Second)))
	}
	if _, err := svc.InjectAnomaly(models.AnomalyCoolantOverheat); err != nil {
		t.Fatalf("inject: %v", err)
	}

	summary := svc.FleetSummary()
	if summary.Units != 1 {
		t.Fatalf("units = %d, want 1", summary.Units)
	}
	if !summary.Scenario.Active || summary.Scenario.Type != models.AnomalyCoolantOverheat {
		t.Fatalf("scenario missing from summary: %+v", summary.Scenario)
	}
	if summary.Impact == nil || summary.Impact.Scenario != models.AnomalyCoolantOverheat {
		t.Fatalf("impact missing from summary: %+v", summary.Impact)
	}
	if summary.WindowSeconds != 60 {
		t.Fatalf("window = %d, want 60", summary.WindowSeconds)
	}
}

func TestFleetSummaryIdle(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 10, utils.FixedClock{Instant: now})
	svc.Ingest(cruiseSample(now))

	summary := svc.FleetSummary()
	if summary.Scenario.Active || summary.Impact != nil {
		t.Fatalf("idle summary carries scenario state: %+v", summary)
	}
	if summary.HighRiskUnits != 0 {
		t.Fatalf("healthy cruise flagged high risk")
	}
}
