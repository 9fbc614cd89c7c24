package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/revops/internal/api/handlers"
	"github.com/wonny/revops/internal/campaign"
	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/identity"
	"github.com/wonny/revops/internal/ingest"
	"github.com/wonny/revops/internal/metrics"
	"github.com/wonny/revops/internal/settings"
	"github.com/wonny/revops/internal/store"
	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/redis"
	"github.com/wonny/revops/pkg/telemetry"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

// newTestServer wires the full router onto the in-memory store, with
// the report cache disabled so every request computes fresh.
func newTestServer(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()

	cfg := &config.Config{LogLevel: "error", LogFormat: "json", Env: "development", MetricsEnabled: true}
	log := logger.New(cfg)
	st := store.NewMemory()
	set := settings.Default()
	tel := telemetry.New()
	cache := redis.NewCache(&redis.Client{}, "test")

	resolver := identity.NewResolver(st.Opportunities, st.Snapshots, log)
	ingestor := ingest.New(resolver, st.Opportunities, st.Snapshots, st.Batches, tel, log)
	metricsEngine := metrics.NewEngine(st.Opportunities, st.Snapshots, set, log)
	campaignEngine := campaign.NewEngine(st.Campaigns, st.CampaignCustomers, set, log)

	h := Handlers{
		Metrics:       handlers.NewMetricsHandler(metricsEngine, cache, tel, log),
		Movements:     handlers.NewMovementHandler(metricsEngine, log),
		Campaigns:     handlers.NewCampaignHandler(campaignEngine, metricsEngine, cache, tel, log),
		Ingest:        handlers.NewIngestHandler(ingestor, log),
		Opportunities: handlers.NewOpportunityHandler(st.Opportunities, st.Snapshots, log),
	}
	return NewRouter(h, cfg, tel, log), st
}

func seed(t *testing.T, st *store.Store, opp *contracts.Opportunity, snaps ...*contracts.Snapshot) {
	t.Helper()
	require.NoError(t, st.Opportunities.Save(context.Background(), opp))
	for _, snap := range snaps {
		snap.OpportunityID = opp.ID
		if snap.CreatedDate.IsZero() {
			snap.CreatedDate = day(2024, 11, 1)
		}
		require.NoError(t, st.Snapshots.Save(context.Background(), snap))
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	decoded := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestHealthAndPrometheus(t *testing.T) {
	router, _ := newTestServer(t)

	rec, body := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = doJSON(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "revops_http_requests_total")
}

func TestGetSummaryAndStages(t *testing.T) {
	router, st := newTestServer(t)
	seed(t, st,
		&contracts.Opportunity{ID: "006A0000004XAAA", ExternalID: "006A0000004XAAA", Name: "Alpha", Owner: "Kim"},
		&contracts.Snapshot{SnapshotDate: day(2025, 6, 1), Stage: "Discover", Amount: 1000},
	)
	seed(t, st,
		&contracts.Opportunity{ID: "006B0000004XBBB", ExternalID: "006B0000004XBBB", Name: "Beta", Owner: "Lee"},
		&contracts.Snapshot{SnapshotDate: day(2025, 6, 1), Stage: contracts.StageClosedWon, Amount: 500, CloseDate: dayPtr(2025, 5, 30)},
	)

	rec, body := doJSON(t, router, http.MethodGet, "/api/metrics/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1000.0, body["pipeline_value"])
	assert.Equal(t, 1.0, body["active_count"])

	// Owner filter excludes the open deal
	rec, body = doJSON(t, router, http.MethodGet, "/api/metrics/summary?owner=Lee", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, body["pipeline_value"])

	rec, _ = doJSON(t, router, http.MethodGet, "/api/metrics/stages", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetWinRateFiscalYear(t *testing.T) {
	router, st := newTestServer(t)
	seed(t, st,
		&contracts.Opportunity{ID: "006A0000004XAAA", ExternalID: "006A0000004XAAA", Name: "Alpha"},
		&contracts.Snapshot{SnapshotDate: day(2025, 1, 1), Stage: "Discover"},
		&contracts.Snapshot{SnapshotDate: day(2025, 3, 1), Stage: contracts.StageClosedWon, CloseDate: dayPtr(2025, 3, 1)},
	)

	rec, body := doJSON(t, router, http.MethodGet, "/api/metrics/win-rate?start=2025-02-01&end=2026-02-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["rate"])
	assert.Equal(t, 1.0, body["numerator"])
	assert.Equal(t, 1.0, body["denominator"])
}

func TestGetReportUsesDatasetAnchor(t *testing.T) {
	router, st := newTestServer(t)
	seed(t, st,
		&contracts.Opportunity{ID: "006A0000004XAAA", ExternalID: "006A0000004XAAA", Name: "Alpha"},
		&contracts.Snapshot{SnapshotDate: day(2025, 6, 15), Stage: "Discover", Amount: 700},
	)

	rec, body := doJSON(t, router, http.MethodGet, "/api/metrics/report?period=fy-to-date", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Anchored to the dataset's latest snapshot date, not the wall clock
	assert.Equal(t, "2025-06-15T00:00:00Z", body["as_of"])
	rng := body["range"].(map[string]interface{})
	assert.Equal(t, "2025-02-01T00:00:00Z", rng["start"])
}

func TestGetReportBadPeriod(t *testing.T) {
	router, st := newTestServer(t)
	seed(t, st,
		&contracts.Opportunity{ID: "006A0000004XAAA", ExternalID: "006A0000004XAAA", Name: "Alpha"},
		&contracts.Snapshot{SnapshotDate: day(2025, 6, 15), Stage: "Discover"},
	)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/metrics/report?period=next-year", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMovements(t *testing.T) {
	router, st := newTestServer(t)
	seed(t, st,
		&contracts.Opportunity{ID: "006A0000004XAAA", ExternalID: "006A0000004XAAA", Name: "Alpha"},
		&contracts.Snapshot{SnapshotDate: day(2025, 3, 1), Stage: "Discover", Amount: 100},
		&contracts.Snapshot{SnapshotDate: day(2025, 4, 1), Stage: "Negotiate", Amount: 100},
	)

	rec, body := doJSON(t, router, http.MethodGet, "/api/movements?start=2025-01-01&end=2026-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// Implicit Unknown→Discover entry plus Discover→Negotiate
	assert.Equal(t, 2.0, body["count"])
}

func TestCampaignLifecycle(t *testing.T) {
	router, st := newTestServer(t)
	seed(t, st,
		&contracts.Opportunity{ID: "006A0000004XAAA", ExternalID: "006A0000004XAAA", Name: "Alpha"},
		&contracts.Snapshot{SnapshotDate: day(2025, 3, 1), Stage: "Discover", Year1Value: 400, EnteredPipeline: dayPtr(2025, 2, 20)},
		&contracts.Snapshot{SnapshotDate: day(2025, 5, 1), Stage: contracts.StageClosedWon, Year1Value: 400, EnteredPipeline: dayPtr(2025, 2, 20), CloseDate: dayPtr(2025, 5, 1)},
	)

	// Create
	rec, created := doJSON(t, router, http.MethodPost, "/api/campaigns", map[string]interface{}{
		"name":       "Spring Webinar",
		"type":       "webinar",
		"start_date": "2025-03-01",
		"cost":       1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	campaignID := created["id"].(string)

	// Associate
	rec, assoc := doJSON(t, router, http.MethodPost, "/api/campaigns/"+campaignID+"/customers", map[string]interface{}{
		"opportunity_id": "006A0000004XAAA",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotNil(t, assoc["customer"])

	// Analytics: won after campaign start, counted
	rec, analytics := doJSON(t, router, http.MethodGet, "/api/campaigns/"+campaignID+"/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := analytics["summary"].(map[string]interface{})
	assert.Equal(t, 1.0, summary["active"])
	assert.Equal(t, 1.0, summary["won"])
	assert.Equal(t, 1.0, summary["win_rate"])
	assert.Equal(t, 1000.0, summary["cac"])

	// Walk
	rec, walk := doJSON(t, router, http.MethodGet, "/api/campaigns/"+campaignID+"/walk", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, walk["points"])

	// Rollup for FY2026 (Feb 2025 – Jan 2026)
	rec, rollup := doJSON(t, router, http.MethodGet, "/api/campaigns/rollup?type=webinar&fy=2026", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, rollup["qualified"])
	assert.Equal(t, 400.0, rollup["closed_won_value"])
}

func TestCampaignNotFound(t *testing.T) {
	router, _ := newTestServer(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/campaigns/missing/analytics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssociateUnknownOpportunity(t *testing.T) {
	router, st := newTestServer(t)
	seed(t, st,
		&contracts.Opportunity{ID: "006A0000004XAAA", ExternalID: "006A0000004XAAA", Name: "Alpha"},
		&contracts.Snapshot{SnapshotDate: day(2025, 3, 1), Stage: "Discover"},
	)

	rec, created := doJSON(t, router, http.MethodPost, "/api/campaigns", map[string]interface{}{
		"name": "C", "type": "webinar", "start_date": "2025-03-01", "cost": 0,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	campaignID := created["id"].(string)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/campaigns/"+campaignID+"/customers", map[string]interface{}{
		"opportunity_id": "006Z0000000ZZZZ",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestIngestEndpointAndHistory(t *testing.T) {
	router, _ := newTestServer(t)

	csv := strings.Join([]string{
		"external_id,name,client,owner,stage,confidence,amount,year1_value,contract_value,expected_close,close_date,entered_pipeline,loss_reason,created_date,last_modified",
		"006A0000004XAAABBB,Alpha,ACME,Kim,Discover,50,1000,400,1200,2025-09-01,,2025-02-20,,2025-01-10,2025-06-30",
		"bad-id,Beta,ACME,Lee,Discover,10,100,40,120,,,,,2025-01-10,2025-06-30",
	}, "\n")

	req := httptest.NewRequest(http.MethodPost, "/api/ingest?source=test&date=2025-06-30", strings.NewReader(csv))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result struct {
		Batch   contracts.Batch          `json:"batch"`
		Records []contracts.RecordResult `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Batch.Total)
	assert.Equal(t, 1, result.Batch.Accepted)
	assert.Equal(t, 1, result.Batch.Rejected)

	// Canonical id is the 18-char id's first 15 characters
	rec2, body := doJSON(t, router, http.MethodGet, "/api/opportunities/006A0000004XAAA/snapshots", nil)
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, 1.0, body["count"])

	rec2, body = doJSON(t, router, http.MethodGet, "/api/batches", nil)
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, 1.0, body["count"])

	// Delete the batch, then its snapshots are gone
	rec2, _ = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/batches/%s", result.Batch.ID), nil)
	require.Equal(t, http.StatusOK, rec2.Code)

	rec2, body = doJSON(t, router, http.MethodGet, "/api/opportunities/006A0000004XAAA/snapshots", nil)
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, 0.0, body["count"])
}

func TestClearEndpoint(t *testing.T) {
	router, st := newTestServer(t)
	seed(t, st,
		&contracts.Opportunity{ID: "006A0000004XAAA", ExternalID: "006A0000004XAAA", Name: "Alpha"},
		&contracts.Snapshot{SnapshotDate: day(2025, 6, 1), Stage: "Discover"},
	)

	rec, _ := doJSON(t, router, http.MethodDelete, "/api/data", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, router, http.MethodGet, "/api/opportunities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, body["count"])
}
