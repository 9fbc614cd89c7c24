package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/revops/internal/external/crmexport"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/identity"
	"github.com/wonny/revops/internal/ingest"
	"github.com/wonny/revops/internal/store"
	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/database"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/telemetry"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "원격 CRM 내보내기 수집",
	Long: `설정된 내보내기 엔드포인트에서 스냅샷 CSV를 내려받아 적재합니다.

요청은 EXPORT_RATE_LIMIT에 맞춰 제한되고 실패 시 재시도됩니다.

Example:
  go run ./cmd/revops fetch
  go run ./cmd/revops fetch --date 2025-06-29`,
	RunE: runFetch,
}

var fetchDate string

func init() {
	rootCmd.AddCommand(fetchCmd)

	// Flags
	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "스냅샷 날짜 (YYYY-MM-DD, 기본: 어제)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Println("=== RevOps Export Fetch ===")

	date := time.Now().UTC().AddDate(0, 0, -1)
	if fetchDate != "" {
		var err error
		date, err = fiscal.ParseDate(fetchDate)
		if err != nil {
			return fmt.Errorf("parse date: %w", err)
		}
	}

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

	// 4. Wire export client + ingestor
	st := store.NewPostgres(db.Pool)
	resolver := identity.NewResolver(st.Opportunities, st.Snapshots, log)
	ingestor := ingest.New(resolver, st.Opportunities, st.Snapshots, st.Batches, telemetry.New(), log)

	client := crmexport.NewClient(cfg, log)
	fetcher := crmexport.NewFetcher(client, ingestor, log)

	// 5. Fetch and ingest
	result, err := fetcher.Run(cmd.Context(), date)
	if err != nil {
		return fmt.Errorf("fetch export: %w", err)
	}

	fmt.Printf("\n✅ Batch %s: %d accepted, %d rejected\n",
		result.Batch.ID, result.Batch.Accepted, result.Batch.Rejected)
	return nil
}
