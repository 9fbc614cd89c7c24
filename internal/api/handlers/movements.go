package handlers

import (
	"net/http"

	"github.com/wonny/revops/internal/metrics"
	"github.com/wonny/revops/pkg/logger"
)

// MovementHandler serves the stage-transition endpoints
type MovementHandler struct {
	engine *metrics.Engine
	logger *logger.Logger
}

// NewMovementHandler creates a movement handler
func NewMovementHandler(engine *metrics.Engine, log *logger.Logger) *MovementHandler {
	return &MovementHandler{engine: engine, logger: log}
}

// GetMovements returns the ordered stage movements for a period.
// GET /api/movements?period=fq-to-date&funnel=true
// funnel=true drops closed→closed corrections and applies the
// qualification-funnel setting; the raw list keeps everything.
func (h *MovementHandler) GetMovements(w http.ResponseWriter, r *http.Request) {
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

	movements := h.engine.Movements(d, &rng)
	if r.URL.Query().Get("funnel") == "true" {
		movements = h.engine.FunnelMovements(d, &rng)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"range":     rng,
		"count":     len(movements),
		"movements": movements,
	})
}
