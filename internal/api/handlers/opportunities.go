package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/pkg/logger"
)

// OpportunityHandler serves opportunity lookups and histories
type OpportunityHandler struct {
	opportunities contracts.OpportunityRepository
	snapshots     contracts.SnapshotRepository
	logger        *logger.Logger
}

// NewOpportunityHandler creates an opportunity handler
func NewOpportunityHandler(opps contracts.OpportunityRepository, snaps contracts.SnapshotRepository, log *logger.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		opportunities: opps,
		snapshots:     snaps,
		logger:        log,
	}
}

// List returns all canonical opportunities.
// GET /api/opportunities
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	opps, err := h.opportunities.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list opportunities")
		respondError(w, http.StatusInternalServerError, "Failed to list opportunities")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":         len(opps),
		"opportunities": opps,
	})
}

// Get returns one opportunity by canonical id.
// GET /api/opportunities/{id}
func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	opp, err := h.opportunities.GetByCanonicalID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, opp)
}

// GetSnapshots returns the ordered snapshot history of one opportunity.
// GET /api/opportunities/{id}/snapshots
func (h *OpportunityHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if _, err := h.opportunities.GetByCanonicalID(ctx, id); err != nil {
		respondDomainError(w, err)
		return
	}
	snaps, err := h.snapshots.ListByOpportunity(ctx, id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list snapshots")
		respondError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"opportunity_id": id,
		"count":          len(snaps),
		"snapshots":      snaps,
	})
}
