package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/identity"
	"github.com/wonny/revops/internal/ingest"
	"github.com/wonny/revops/internal/store"
	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/database"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/telemetry"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file.csv>",
	Short: "스냅샷 CSV 적재",
	Long: `정규화된 스냅샷 CSV 내보내기 파일을 적재합니다.

행 단위 처리:
- 신원 해석 (15/18자 외부 ID → canonical ID)
- 스냅샷 불변성 검증 (같은 날짜 재적재 거부)
- 실패한 행만 거부, 배치는 계속 진행

Example:
  go run ./cmd/revops ingest export.csv --date 2025-06-30
  go run ./cmd/revops ingest export.csv --date 2025-06-30 --source weekly-export`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var (
	ingestDate   string
	ingestSource string
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	// Flags
	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "스냅샷 날짜 (YYYY-MM-DD, 필수)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "cli", "배치 소스 이름")
	ingestCmd.MarkFlagRequired("date")
}

func runIngest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== RevOps Snapshot Ingest ===")

	date, err := fiscal.ParseDate(ingestDate)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
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

	// 4. Wire ingestor
	st := store.NewPostgres(db.Pool)
	resolver := identity.NewResolver(st.Opportunities, st.Snapshots, log)
	ingestor := ingest.New(resolver, st.Opportunities, st.Snapshots, st.Batches, telemetry.New(), log)

	// 5. Open and ingest the file
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	result, err := ingestor.Ingest(cmd.Context(), ingestSource, date, f)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	// 6. Print per-record outcome
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\nBatch %s (%s)\n", result.Batch.ID, result.Batch.SnapshotDate.Format("2006-01-02"))
	for _, rec := range result.Records {
		if rec.Status == contracts.RecordRejected {
			fmt.Printf("  %s row %d %s: %s\n", red("✗"), rec.Row, rec.ExternalID, rec.Reason)
		} else if verbose {
			fmt.Printf("  %s row %d %s (%s)\n", green("✓"), rec.Row, rec.ExternalID, rec.Status)
		}
	}
	fmt.Printf("\nTotal: %d  Accepted: %s  Rejected: %s\n",
		result.Batch.Total,
		green(result.Batch.Accepted),
		red(result.Batch.Rejected))

	return nil
}
