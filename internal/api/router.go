package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/revops/internal/api/handlers"
	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/telemetry"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Metrics       *handlers.MetricsHandler
	Movements     *handlers.MovementHandler
	Campaigns     *handlers.CampaignHandler
	Ingest        *handlers.IngestHandler
	Opportunities *handlers.OpportunityHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, cfg *config.Config, tel *telemetry.Metrics, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	if cfg.MetricsEnabled {
		r.Handle("/metrics", tel.Handler()).Methods("GET")
	}

	// API
	api := r.PathPrefix("/api").Subrouter()

	// Metrics endpoints
	api.HandleFunc("/metrics/report", h.Metrics.GetReport).Methods("GET")
	api.HandleFunc("/metrics/summary", h.Metrics.GetSummary).Methods("GET")
	api.HandleFunc("/metrics/stages", h.Metrics.GetStages).Methods("GET")
	api.HandleFunc("/metrics/win-rate", h.Metrics.GetWinRate).Methods("GET")
	api.HandleFunc("/metrics/close-rate", h.Metrics.GetCloseRate).Methods("GET")
	api.HandleFunc("/metrics/loss-reasons", h.Metrics.GetLossReasons).Methods("GET")
	api.HandleFunc("/metrics/slippage", h.Metrics.GetSlippage).Methods("GET")
	api.HandleFunc("/metrics/duplicates", h.Metrics.GetDuplicates).Methods("GET")

	// Movement endpoints
	api.HandleFunc("/movements", h.Movements.GetMovements).Methods("GET")

	// Campaign endpoints
	api.HandleFunc("/campaigns", h.Campaigns.List).Methods("GET")
	api.HandleFunc("/campaigns", h.Campaigns.Create).Methods("POST")
	api.HandleFunc("/campaigns/rollup", h.Campaigns.GetRollup).Methods("GET")
	api.HandleFunc("/campaigns/customers/{id}", h.Campaigns.RemoveCustomer).Methods("DELETE")
	api.HandleFunc("/campaigns/{id}/analytics", h.Campaigns.GetAnalytics).Methods("GET")
	api.HandleFunc("/campaigns/{id}/walk", h.Campaigns.GetWalk).Methods("GET")
	api.HandleFunc("/campaigns/{id}/customers", h.Campaigns.Associate).Methods("POST")

	// Ingest endpoints
	api.HandleFunc("/ingest", h.Ingest.Ingest).Methods("POST")
	api.HandleFunc("/batches", h.Ingest.ListBatches).Methods("GET")
	api.HandleFunc("/batches/{id}", h.Ingest.DeleteBatch).Methods("DELETE")
	api.HandleFunc("/data", h.Ingest.Clear).Methods("DELETE")

	// Opportunity endpoints
	api.HandleFunc("/opportunities", h.Opportunities.List).Methods("GET")
	api.HandleFunc("/opportunities/{id}", h.Opportunities.Get).Methods("GET")
	api.HandleFunc("/opportunities/{id}/snapshots", h.Opportunities.GetSnapshots).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	r.Use(tel.Middleware)

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "revops-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
