package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/revops/internal/external/crmexport"
	"github.com/wonny/revops/internal/identity"
	"github.com/wonny/revops/internal/ingest"
	"github.com/wonny/revops/internal/metrics"
	"github.com/wonny/revops/internal/scheduler"
	"github.com/wonny/revops/internal/scheduler/jobs"
	"github.com/wonny/revops/internal/settings"
	"github.com/wonny/revops/internal/store"
	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/database"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/redis"
	"github.com/wonny/revops/pkg/telemetry"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 시작",
	Long: `야간 작업 스케줄러를 시작합니다.

등록 작업:
- export_fetch: 매일 02:30, 전일 스냅샷 내보내기 수집 및 적재
- cache_warm:   매일 03:00, 주요 기간 리포트 캐시 예열

Example:
  go run ./cmd/revops scheduler
  go run ./cmd/revops scheduler --run-now export_fetch`,
	RunE: runScheduler,
}

var schedulerRunNow string

func init() {
	rootCmd.AddCommand(schedulerCmd)

	// Flags
	schedulerCmd.Flags().StringVar(&schedulerRunNow, "run-now", "", "기동 직후 즉시 실행할 작업 이름")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== RevOps Scheduler ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database and ensure schema
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(cmd.Context(), db.Pool); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	// 4. Connect to redis
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

	// 6. Wire engines + jobs
	tel := telemetry.New()
	st := store.NewPostgres(db.Pool)
	resolver := identity.NewResolver(st.Opportunities, st.Snapshots, log)
	ingestor := ingest.New(resolver, st.Opportunities, st.Snapshots, st.Batches, tel, log)
	metricsEngine := metrics.NewEngine(st.Opportunities, st.Snapshots, set, log)

	client := crmexport.NewClient(cfg, log)
	fetcher := crmexport.NewFetcher(client, ingestor, log)

	sched := scheduler.New(log, tel)
	if err := sched.AddJob(jobs.NewExportFetchJob(fetcher, log)); err != nil {
		return fmt.Errorf("add export fetch job: %w", err)
	}
	if err := sched.AddJob(jobs.NewCacheWarmJob(metricsEngine, cache, log)); err != nil {
		return fmt.Errorf("add cache warm job: %w", err)
	}

	// 7. Start
	sched.Start()
	defer sched.Stop()

	if schedulerRunNow != "" {
		if err := sched.RunJob(schedulerRunNow); err != nil {
			return fmt.Errorf("run job now: %w", err)
		}
	}

	fmt.Println("\n✅ Scheduler running")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	return nil
}
