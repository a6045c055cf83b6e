package engine

import (
	"log/slog"

	"github.com/connectedopslab/fleet-engine/internal/models"
)

// Pipeline runs one scoring pass: validation tagging, baseline risk, then
// scenario-scoped pattern boosts. It holds no mutable state of its own; the
// caller supplies a buffer snapshot and one scenario snapshot per pass.
type Pipeline struct {
	logger    *slog.Logger
	validator *Validator
	scorer    *Scorer
	detector  *PatternDetector
}

// NewPipeline constructs the scoring pipeline.
func NewPipeline(logger *slog.Logger, validator *Validator, scorer *Scorer, detector *PatternDetector) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:    logger,
		validator: validator,
		scorer:    scorer,
		detector:  detector,
	}
}

// Assess annotates every sample with validation metadata and a risk
// assessment. Pattern boosts apply to every sample of a boosted vehicle in
// the pass; bands are assigned from the boosted score.
func (p *Pipeline) Assess(samples []models.TelemetrySample, scenario models.ScenarioState) []models.ScoredSample {
	if len(samples) == 0 {
		return nil
	}

	coolantBoosts, vibrationBoosts := p.detector.Detect(samples, scenario)

	scored := make([]models.ScoredSample, 0, len(samples))
	for _, sample := range samples {
		baseline := p.scorer.Baseline(sample)

		var coolantBoost, vibrationBoost float64
		if boost, ok := coolantBoosts[sample.VehicleID]; ok {
			coolantBoost = boost.Points
		}
		if boost, ok := vibrationBoosts[sample.VehicleID]; ok {
			vibrationBoost = boost.Points
		}

		score := clamp(baseline+coolantBoost+vibrationBoost, 0, 100)

		scored = append(scored, models.ScoredSample{
			Sample:     sample,
			Validation: p.validator.Validate(sample),
			Risk: models.RiskAssessment{
				Score:          score,
				Baseline:       baseline,
				Band:           p.scorer.Band(score),
				CoolantBoost:   coolantBoost,
				VibrationBoost: vibrationBoost,
			},
		})
	}
	return scored
}
