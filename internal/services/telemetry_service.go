package services

import (
	"log/slog"
	"math"
	"time"

	"github.com/connectedopslab/fleet-engine/internal/engine"
	"github.com/connectedopslab/fleet-engine/internal/metrics"
	"github.com/connectedopslab/fleet-engine/internal/models"
	"github.com/connectedopslab/fleet-engine/internal/store"
	"github.com/connectedopslab/fleet-engine/internal/utils"
)

// Broadcaster pushes accepted samples to live consumers (the WebSocket hub).
// A nil broadcaster disables streaming.
type Broadcaster interface {
	BroadcastSample(sample models.TelemetrySample)
}

// TelemetryService is the facade the transport talks to. It owns the
// process-wide store and funnels every read and mutation through it.
type TelemetryService struct {
	logger           *slog.Logger
	clock            utils.Clock
	buffer           *store.Buffer
	scenario         *store.Scenario
	counters         *store.Counters
	pipeline         *engine.Pipeline
	aggregator       *engine.FleetAggregator
	costs            *engine.CostModel
	defaultReadLimit int
	latencies        *utils.LatencyTracker
	broadcaster      Broadcaster
}

// NewTelemetryService constructs the service facade.
func NewTelemetryService(
	logger *slog.Logger,
	clock utils.Clock,
	buffer *store.Buffer,
	scenario *store.Scenario,
	counters *store.Counters,
	pipeline *engine.Pipeline,
	aggregator *engine.FleetAggregator,
	costs *engine.CostModel,
	defaultReadLimit int,
) *TelemetryService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if defaultReadLimit <= 0 {
		defaultReadLimit = 600
	}
	return &TelemetryService{
		logger:           logger,
		clock:            clock,
		buffer:           buffer,
		scenario:         scenario,
		counters:         counters,
		pipeline:         pipeline,
		aggregator:       aggregator,
		costs:            costs,
		defaultReadLimit: defaultReadLimit,
		latencies:        utils.NewLatencyTracker(1024),
	}
}

// SetBroadcaster attaches a live-stream sink. Must be called before serving.
func (s *TelemetryService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Ingest buffers one sample unconditionally; semantic validation never
// blocks ingestion. A zero timestamp is stamped with the current instant.
func (s *TelemetryService) Ingest(sample models.TelemetrySample) models.IngestAck {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.clock.Now()
	}

	occupancy := s.buffer.Append(sample)
	metrics.ObserveIngest(occupancy)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSample(sample)
	}
	return models.IngestAck{Status: "ok", Buffered: occupancy}
}

// ReadRecent returns up to limit raw samples, oldest-first. A non-positive
// limit falls back to the configured default and is clamped to at least 1.
func (s *TelemetryService) ReadRecent(limit int) []models.TelemetrySample {
	return s.buffer.Recent(s.normalizeLimit(limit))
}

// Assessments runs one scoring pass over the most recent limit samples,
// tagging each with validation metadata and (scenario-scoped) boosted risk.
func (s *TelemetryService) Assessments(limit int) []models.ScoredSample {
	start := time.Now()
	samples := s.buffer.Recent(s.normalizeLimit(limit))
	scored := s.pipeline.Assess(samples, s.scenario.Snapshot())
	s.observeScoringPass(time.Since(start))
	return scored
}

// FleetSummary reduces the scored recent samples to one trailing-window risk
// value per vehicle, plus the scenario and cost-impact snapshot.
func (s *TelemetryService) FleetSummary() models.FleetSummary {
	start := time.Now()
	samples := s.buffer.Recent(s.defaultReadLimit)
	scenario := s.scenario.Snapshot()
	scored := s.pipeline.Assess(samples, scenario)
	vehicles := s.aggregator.Summarize(scored)
	s.observeScoringPass(time.Since(start))

	highRisk := 0
	for _, v := range vehicles {
		if v.Band == models.BandHigh {
			highRisk++
		}
	}

	summary := models.FleetSummary{
		GeneratedAt:   s.clock.Now(),
		WindowSeconds: s.aggregator.WindowSeconds(),
		Units:         len(vehicles),
		HighRiskUnits: highRisk,
		Vehicles:      vehicles,
		Scenario:      scenario,
	}
	if scenario.Active {
		if estimate, ok := s.costs.Estimate(scenario.Type); ok {
			summary.Impact = &estimate
		}
	}
	return summary
}

// InjectAnomaly clones the most recent sample, applies the type-specific
// perturbation, buffers it, bumps the counter, and opens (or refreshes) the
// scenario. An empty buffer fails with ErrNoBaselineData and touches nothing.
func (s *TelemetryService) InjectAnomaly(kind models.AnomalyType) (models.IngestAck, error) {
	if _, ok := models.ParseAnomalyType(string(kind)); !ok {
		return models.IngestAck{}, utils.ErrUnknownAnomalyType
	}

	base, ok := s.buffer.Latest()
	if !ok {
		metrics.ObserveInjection(string(kind), metrics.OutcomeError)
		return models.IngestAck{}, utils.ErrNoBaselineData
	}

	now := s.clock.Now()
	sample := perturb(base, kind)
	sample.Timestamp = now

	occupancy := s.buffer.Append(sample)
	s.counters.Increment(kind)
	s.scenario.Activate(kind, now)

	metrics.ObserveIngest(occupancy)
	metrics.ObserveInjection(string(kind), metrics.OutcomeSuccess)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSample(sample)
	}

	s.logger.Info("anomaly injected",
		slog.String("type", string(kind)),
		slog.String("vehicle_id", sample.VehicleID),
		slog.Int("buffered", occupancy),
	)
	return models.IngestAck{Status: "ok", Buffered: occupancy}, nil
}

// ResetScenario clears the active scenario; risk returns to baseline on the
// next scoring pass. Counters are not reset.
func (s *TelemetryService) ResetScenario() {
	s.scenario.Clear()
	s.logger.Info("scenario cleared")
}

// ScenarioStatus returns the current scenario snapshot.
func (s *TelemetryService) ScenarioStatus() models.ScenarioState {
	return s.scenario.Snapshot()
}

// AnomalyStats returns per-type injection counts since process start.
func (s *TelemetryService) AnomalyStats() models.AnomalyStats {
	return s.counters.Stats()
}

// EstimateCost looks up the modeled early vs deferred impact for one
// scenario type.
func (s *TelemetryService) EstimateCost(kind models.AnomalyType) (models.CostEstimate, bool) {
	return s.costs.Estimate(kind)
}

func (s *TelemetryService) normalizeLimit(limit int) int {
	if limit <= 0 {
		limit = s.defaultReadLimit
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

func (s *TelemetryService) observeScoringPass(duration time.Duration) {
	s.latencies.Observe(duration)
	metrics.ObserveScoringPass(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Debug("scoring pass latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count),
		)
	}
}

// perturb applies the deterministic per-type signal mutation from the demo
// playbook. NaN signals are treated as zero before mutation so an injected
// sample is always fully populated for its perturbed fields.
func perturb(base models.TelemetrySample, kind models.AnomalyType) models.TelemetrySample {
	sample := base
	switch kind {
	case models.AnomalyCoolantOverheat:
		// Overheating coolant plus a bit more vibration.
		sample.CoolantTempF = forceFloor(sample.CoolantTempF, 250)
		sample.VibrationScore = nanToZero(sample.VibrationScore) + 0.2
	case models.AnomalyVibrationSpike:
		// Sharp vibration spike, e.g. an early bearing or suspension issue.
		sample.VibrationScore = math.Max(nanToZero(sample.VibrationScore)+2.0, 3.5)
	case models.AnomalySpeedAnomaly:
		// Sustained speeding with the matching engine load.
		sample.SpeedMPH = forceFloor(sample.SpeedMPH, 83)
		sample.EngineRPM = forceFloor(sample.EngineRPM, 3200)
	}
	return sample
}

func forceFloor(value, floor float64) float64 {
	if math.IsNaN(value) || value < floor {
		return floor
	}
	return value
}

func nanToZero(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return value
}
