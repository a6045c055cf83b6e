package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed operations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations.
	OutcomeError = "error"
)

var (
	samplesIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleet_engine",
			Name:      "samples_ingested_total",
			Help:      "Total number of telemetry samples accepted into the buffer.",
		},
	)

	anomaliesInjectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleet_engine",
			Name:      "anomalies_injected_total",
			Help:      "Total number of injected anomalies, partitioned by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	scoringPassSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fleet_engine",
			Name:      "scoring_pass_seconds",
			Help:      "Latency of one full scoring pass over the buffer snapshot.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	bufferOccupancy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fleet_engine",
			Name:      "buffer_occupancy",
			Help:      "Current number of samples held by the ingest buffer.",
		},
	)

	streamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fleet_engine",
			Name:      "stream_clients",
			Help:      "Connected telemetry WebSocket clients.",
		},
	)
)

// Register attaches the engine collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		samplesIngestedTotal,
		anomaliesInjectedTotal,
		scoringPassSeconds,
		bufferOccupancy,
		streamClients,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveIngest records one accepted sample and the resulting occupancy.
func ObserveIngest(occupancy int) {
	samplesIngestedTotal.Inc()
	bufferOccupancy.Set(float64(occupancy))
}

// ObserveInjection records an injection attempt by type and outcome.
func ObserveInjection(anomalyType string, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	anomaliesInjectedTotal.WithLabelValues(anomalyType, label).Inc()
}

// ObserveScoringPass records the duration of one scoring pass.
func ObserveScoringPass(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	scoringPassSeconds.Observe(duration.Seconds())
}

// SetStreamClients records the current WebSocket client count.
func SetStreamClients(count int) {
	streamClients.Set(float64(count))
}
