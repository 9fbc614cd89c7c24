package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/revops/internal/campaign"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/metrics"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/redis"
	"github.com/wonny/revops/pkg/telemetry"
)

// CampaignHandler serves the campaign attribution endpoints.
// ⭐ SSOT: 캠페인 API 핸들러는 여기서만
type CampaignHandler struct {
	engine    *campaign.Engine
	dataset   *metrics.Engine
	cache     *redis.Cache
	telemetry *telemetry.Metrics
	logger    *logger.Logger
}

// NewCampaignHandler creates a campaign handler
func NewCampaignHandler(engine *campaign.Engine, dataset *metrics.Engine, cache *redis.Cache, tel *telemetry.Metrics, log *logger.Logger) *CampaignHandler {
	return &CampaignHandler{
		engine:    engine,
		dataset:   dataset,
		cache:     cache,
		telemetry: tel,
		logger:    log,
	}
}

// List returns all campaigns.
// GET /api/campaigns
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.engine.Campaigns(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list campaigns")
		respondError(w, http.StatusInternalServerError, "Failed to list campaigns")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(campaigns),
		"campaigns": campaigns,
	})
}

type createCampaignRequest struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	StartDate string  `json:"start_date"` // YYYY-MM-DD
	Cost      float64 `json:"cost"`
}

// Create registers a campaign.
// POST /api/campaigns
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start, err := fiscal.ParseDate(req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	camp, err := h.engine.CreateCampaign(r.Context(), req.Name, req.Type, start, req.Cost)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, camp)
}

type associateRequest struct {
	OpportunityID string `json:"opportunity_id"`
	At            string `json:"at,omitempty"` // baseline date, default campaign start
}

// Associate links an opportunity to a campaign, capturing its baseline.
// POST /api/campaigns/{id}/customers
// A stale baseline does not fail the call; the warning rides along.
func (h *CampaignHandler) Associate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID := mux.Vars(r)["id"]

	var req associateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var at *time.Time
	if req.At != "" {
		d, err := fiscal.ParseDate(req.At)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		at = &d
	}

	d, err := h.dataset.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	cc, warning, err := h.engine.Associate(ctx, d, campaignID, req.OpportunityID, at)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := map[string]interface{}{"customer": cc}
	if warning != nil {
		resp["warning"] = warning
	}
	respondJSON(w, http.StatusCreated, resp)
}

// RemoveCustomer drops one campaign association.
// DELETE /api/campaigns/customers/{id}
func (h *CampaignHandler) RemoveCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	if err := h.engine.RemoveCustomer(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetAnalytics returns the per-customer classification and aggregate
// for one campaign.
// GET /api/campaigns/{id}/analytics
func (h *CampaignHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID := mux.Vars(r)["id"]

	d, err := h.dataset.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	var report campaign.CampaignReport
	key := redis.AttributionKey(campaignID, d.LatestDate.Format(time.DateOnly))
	hit := true
	err = h.cache.GetOrSet(ctx, key, &report, redis.TTLLong, func() (interface{}, error) {
		hit = false
		return h.engine.Analytics(ctx, d, campaignID)
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if hit {
		h.telemetry.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		h.telemetry.CacheLookups.WithLabelValues("miss").Inc()
	}

	respondJSON(w, http.StatusOK, report)
}

// GetWalk returns the weekly pipeline walk for one campaign.
// GET /api/campaigns/{id}/walk
func (h *CampaignHandler) GetWalk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID := mux.Vars(r)["id"]

	d, err := h.dataset.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	walk, err := h.engine.Walk(ctx, d, campaignID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, walk)
}

// GetRollup returns the deduplicated same-type rollup for a fiscal
// year (or explicit bounds).
// GET /api/campaigns/rollup?type=webinar&fy=2026
func (h *CampaignHandler) GetRollup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	campaignType := q.Get("type")
	if campaignType == "" {
		respondError(w, http.StatusBadRequest, "type query parameter is required")
		return
	}

	d, err := h.dataset.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	var rng fiscal.Range
	if fyRaw := q.Get("fy"); fyRaw != "" {
		fy, err := strconv.Atoi(fyRaw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid fiscal year")
			return
		}
		rng = fiscal.YearRange(fy)
	} else if rng, err = resolvePeriod(r, d.LatestDate); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var rollup campaign.TypeRollup
	key := redis.RollupKey(campaignType+":"+rng.String(), d.LatestDate.Format(time.DateOnly))
	hit := true
	err = h.cache.GetOrSet(ctx, key, &rollup, redis.TTLLong, func() (interface{}, error) {
		hit = false
		return h.engine.Rollup(ctx, d, campaignType, rng)
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if hit {
		h.telemetry.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		h.telemetry.CacheLookups.WithLabelValues("miss").Inc()
	}

	respondJSON(w, http.StatusOK, rollup)
}
