package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/ingest"
	"github.com/wonny/revops/pkg/logger"
)

// IngestHandler serves the snapshot ingest endpoints
type IngestHandler struct {
	ingestor *ingest.Ingestor
	logger   *logger.Logger
}

// NewIngestHandler creates an ingest handler
func NewIngestHandler(ingestor *ingest.Ingestor, log *logger.Logger) *IngestHandler {
	return &IngestHandler{ingestor: ingestor, logger: log}
}

// Ingest loads a normalized CSV export from the request body.
// POST /api/ingest?source=upload&date=2025-06-30
// Row-level failures reject that row only; the response lists every
// record outcome.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	source := q.Get("source")
	if source == "" {
		source = "upload"
	}
	date, err := fiscal.ParseDate(q.Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "date query parameter is required (YYYY-MM-DD)")
		return
	}

	result, err := h.ingestor.Ingest(ctx, source, date, r.Body)
	if err != nil {
		h.logger.WithError(err).Error("Ingest failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// ListBatches returns ingest batches, newest first.
// GET /api/batches
func (h *IngestHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.ingestor.Batches(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list batches")
		respondError(w, http.StatusInternalServerError, "Failed to list batches")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(batches),
		"batches": batches,
	})
}

// DeleteBatch removes one batch and its snapshots.
// DELETE /api/batches/{id}
func (h *IngestHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.ingestor.DeleteBatch(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "batch_id": id})
}

// Clear wipes all snapshot data. The only way opportunities die.
// DELETE /api/data
func (h *IngestHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.ingestor.Clear(r.Context()); err != nil {
		h.logger.WithError(err).Error("Failed to clear data")
		respondError(w, http.StatusInternalServerError, "Failed to clear data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
