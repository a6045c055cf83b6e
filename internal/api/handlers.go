package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/connectedopslab/fleet-engine/internal/models"
	"github.com/connectedopslab/fleet-engine/internal/services"
	"github.com/connectedopslab/fleet-engine/internal/utils"
)

// Handlers holds the JSON endpoint implementations over the service facade.
type Handlers struct {
	logger  *slog.Logger
	service *services.TelemetryService
}

// NewHandlers constructs the endpoint set.
func NewHandlers(logger *slog.Logger, service *services.TelemetryService) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{logger: logger, service: service}
}

// Ingest accepts one telemetry sample. Structural problems (missing ts or
// vehicle_id, non-JSON body) are rejected here; semantic validation is
// advisory and never blocks ingestion.
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var sample models.TelemetrySample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid telemetry payload: "+err.Error())
		return
	}

	ack := h.service.Ingest(sample)
	h.writeJSON(w, r, http.StatusOK, ack)
}

// ReadRecent returns up to limit raw samples, oldest-first.
func (h *Handlers) ReadRecent(w http.ResponseWriter, r *http.Request) {
	samples := h.service.ReadRecent(parseLimit(r))
	if samples == nil {
		samples = []models.TelemetrySample{}
	}
	h.writeJSON(w, r, http.StatusOK, samples)
}

// Assessments returns the scored read: samples annotated with validation
// metadata and (scenario-scoped) boosted risk.
func (h *Handlers) Assessments(w http.ResponseWriter, r *http.Request) {
	scored := h.service.Assessments(parseLimit(r))
	if scored == nil {
		scored = []models.ScoredSample{}
	}
	h.writeJSON(w, r, http.StatusOK, scored)
}

// FleetSummary returns the trailing-window per-vehicle rollup with the
// scenario and cost-impact snapshot.
func (h *Handlers) FleetSummary(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.service.FleetSummary())
}

type injectRequest struct {
	AnomalyType string `json:"anomaly_type"`
}

// InjectAnomaly synthesizes an anomalous sample from the latest baseline and
// opens (or refreshes) the scenario.
func (h *Handlers) InjectAnomaly(w http.ResponseWriter, r *http.Request) {
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, ok := models.ParseAnomalyType(req.AnomalyType)
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, "unknown anomaly type: "+req.AnomalyType)
		return
	}

	ack, err := h.service.InjectAnomaly(kind)
	if err != nil {
		if errors.Is(err, utils.ErrNoBaselineData) {
			h.writeError(w, r, http.StatusBadRequest, "no baseline telemetry available to mutate; start the emulator first")
			return
		}
		h.logger.Error("anomaly injection failed", slog.Any("error", err))
		h.writeError(w, r, http.StatusInternalServerError, "injection failed")
		return
	}
	h.writeJSON(w, r, http.StatusOK, ack)
}

// Scenario returns the current scenario snapshot.
func (h *Handlers) Scenario(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.service.ScenarioStatus())
}

// ResetScenario clears the active scenario.
func (h *Handlers) ResetScenario(w http.ResponseWriter, r *http.Request) {
	h.service.ResetScenario()
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// AnomalyStats returns per-type injection counts, all keys always present.
func (h *Handlers) AnomalyStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.service.AnomalyStats())
}

// Costs returns the cost model lookup for one scenario type.
func (h *Handlers) Costs(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("scenario")
	kind, ok := models.ParseAnomalyType(raw)
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, "unknown scenario: "+raw)
		return
	}

	estimate, ok := h.service.EstimateCost(kind)
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "no cost table for scenario: "+raw)
		return
	}
	h.writeJSON(w, r, http.StatusOK, estimate)
}

// Health is the liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// parseLimit reads the limit query parameter; absent or unparseable values
// yield 0, which the service maps to its configured default.
func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response",
			slog.Any("error", err),
			slog.String("request_id", RequestID(r.Context())),
		)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.logger.Warn("request failed",
		slog.Int("status", status),
		slog.String("detail", message),
		slog.String("request_id", RequestID(r.Context())),
	)
	h.writeJSON(w, r, status, map[string]string{"error": message})
}
