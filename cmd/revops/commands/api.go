package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/revops/internal/api"
	"github.com/wonny/revops/internal/api/handlers"
	"github.com/wonny/revops/internal/campaign"
	"github.com/wonny/revops/internal/identity"
	"github.com/wonny/revops/internal/ingest"
	"github.com/wonny/revops/internal/metrics"
	"github.com/wonny/revops/internal/settings"
	"github.com/wonny/revops/internal/store"
	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/database"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/redis"
	"github.com/wonny/revops/pkg/telemetry"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 지표/무브먼트/캠페인 분석 엔드포인트 제공
- 스냅샷 적재 트리거 제공

Endpoints:
  GET    /health                        - Health check
  GET    /api/metrics/report            - 기간 지표 리포트
  GET    /api/metrics/win-rate          - 승률 + 근거 딜 목록
  GET    /api/movements                 - 스테이지 이동 목록
  GET    /api/campaigns/{id}/analytics  - 캠페인 기여 분석
  GET    /api/campaigns/rollup          - 캠페인 유형 롤업
  POST   /api/ingest                    - 스냅샷 CSV 적재
  DELETE /api/data                      - 전체 데이터 삭제

Example:
  go run ./cmd/revops api
  go run ./cmd/revops api --port 8087`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT 환경변수)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== RevOps API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Connect to database and ensure schema
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(cmd.Context(), db.Pool); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	log.Info("Connected to database")

	// 4. Connect to redis (report cache)
	rds, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rds.Close()
	cache := redis.NewCache(rds, "revops")

	// 5. Load analytics policy
	set, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	hash, _ := settings.Hash(set)
	log.WithField("settings_hash", hash).Info("Analytics policy loaded")

	// 6. Telemetry
	tel := telemetry.New()

	// 7. Storage port (single pgx adapter)
	st := store.NewPostgres(db.Pool)

	// 8. Engines
	resolver := identity.NewResolver(st.Opportunities, st.Snapshots, log)
	ingestor := ingest.New(resolver, st.Opportunities, st.Snapshots, st.Batches, tel, log)
	metricsEngine := metrics.NewEngine(st.Opportunities, st.Snapshots, set, log)
	campaignEngine := campaign.NewEngine(st.Campaigns, st.CampaignCustomers, set, log)

	// 9. Handlers
	h := api.Handlers{
		Metrics:       handlers.NewMetricsHandler(metricsEngine, cache, tel, log),
		Movements:     handlers.NewMovementHandler(metricsEngine, log),
		Campaigns:     handlers.NewCampaignHandler(campaignEngine, metricsEngine, cache, tel, log),
		Ingest:        handlers.NewIngestHandler(ingestor, log),
		Opportunities: handlers.NewOpportunityHandler(st.Opportunities, st.Snapshots, log),
	}

	// 10. Router + server
	router := api.NewRouter(h, cfg, tel, log)
	server := api.New(cfg, log, router)

	// 11. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
