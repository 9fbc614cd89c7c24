package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/metrics"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/redis"
	"github.com/wonny/revops/pkg/telemetry"
)

// MetricsHandler serves the pipeline analytics endpoints.
// ⭐ SSOT: 지표 API 핸들러는 여기서만
type MetricsHandler struct {
	engine    *metrics.Engine
	cache     *redis.Cache
	telemetry *telemetry.Metrics
	logger    *logger.Logger
}

// NewMetricsHandler creates a metrics handler
func NewMetricsHandler(engine *metrics.Engine, cache *redis.Cache, tel *telemetry.Metrics, log *logger.Logger) *MetricsHandler {
	return &MetricsHandler{
		engine:    engine,
		cache:     cache,
		telemetry: tel,
		logger:    log,
	}
}

// GetReport returns the combined metrics report for one period.
// GET /api/metrics/report?period=fy-to-date&as_of=&owner=&stages=&q=
// Unfiltered reports are cached for a few minutes; the as-of date is
// part of the key so a re-ingest naturally misses.
func (h *MetricsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, err := parseAsOf(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.engine.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}
	anchor := d.Anchor(asOf)

	rng, err := resolvePeriod(r, anchor)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !filter.IsZero() {
		respondJSON(w, http.StatusOK, h.engine.BuildReport(d, rng, asOf, filter))
		return
	}

	var report metrics.Report
	key := redis.MetricsKey("report", rng.String(), anchor.Format(time.DateOnly))
	hit := true
	err = h.cache.GetOrSet(ctx, key, &report, redis.TTLReport, func() (interface{}, error) {
		hit = false
		return h.engine.BuildReport(d, rng, asOf, filter), nil
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute metrics report")
		respondError(w, http.StatusInternalServerError, "Failed to compute metrics report")
		return
	}
	if hit {
		h.telemetry.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		h.telemetry.CacheLookups.WithLabelValues("miss").Inc()
	}

	respondJSON(w, http.StatusOK, report)
}

// GetSummary returns pipeline value, active count and average deal size.
// GET /api/metrics/summary?as_of=&owner=&stages=&q=
func (h *MetricsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, err := parseAsOf(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.engine.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	respondJSON(w, http.StatusOK, h.engine.Summary(d, asOf, filter))
}

// GetStages returns the stage distribution of the current snapshot set.
// GET /api/metrics/stages?as_of=&owner=&q=
func (h *MetricsHandler) GetStages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, err := parseAsOf(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.engine.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	respondJSON(w, http.StatusOK, h.engine.StageDistribution(d, asOf, filter))
}

// GetWinRate returns won / all closed for the period with the deal
// list behind the numbers.
// GET /api/metrics/win-rate?period=last-fq
func (h *MetricsHandler) GetWinRate(w http.ResponseWriter, r *http.Request) {
	h.serveRate(w, r, h.engine.WinRate)
}

// GetCloseRate returns won / (closed + still-open entered in period).
// GET /api/metrics/close-rate?period=last-fq
func (h *MetricsHandler) GetCloseRate(w http.ResponseWriter, r *http.Request) {
	h.serveRate(w, r, h.engine.CloseRate)
}

func (h *MetricsHandler) serveRate(w http.ResponseWriter, r *http.Request, compute func(*metrics.Dataset, fiscal.Range) *metrics.RateResult) {
	ctx := r.Context()

	d, err := h.engine.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	rng, err := resolvePeriod(r, d.LatestDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, compute(d, rng))
}

// GetLossReasons returns the loss-reason histogram for the period,
// optionally grouped by the stage the deal was lost from.
// GET /api/metrics/loss-reasons?period=fy-to-date&by_stage=true
func (h *MetricsHandler) GetLossReasons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	d, err := h.engine.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	rng, err := resolvePeriod(r, d.LatestDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("by_stage") == "true" {
		respondJSON(w, http.StatusOK, h.engine.LossReasonByPreviousStage(d, rng))
		return
	}
	respondJSON(w, http.StatusOK, h.engine.LossReasonBreakdown(d, rng))
}

// GetSlippage returns the average expected-close drift for one stage.
// GET /api/metrics/slippage?stage=Negotiate
func (h *MetricsHandler) GetSlippage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stage := r.URL.Query().Get("stage")
	if stage == "" {
		respondError(w, http.StatusBadRequest, "stage query parameter is required")
		return
	}

	d, err := h.engine.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	respondJSON(w, http.StatusOK, h.engine.DateSlippage(d, stage))
}

// GetDuplicates flags likely duplicate opportunities.
// GET /api/metrics/duplicates
func (h *MetricsHandler) GetDuplicates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	d, err := h.engine.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	respondJSON(w, http.StatusOK, h.engine.Duplicates(d))
}
