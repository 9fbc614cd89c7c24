package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/revops/internal/identity"
	"github.com/wonny/revops/internal/ingest"
	"github.com/wonny/revops/internal/store"
	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/database"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/telemetry"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "배치 삭제 / 전체 데이터 삭제",
	Long: `적재 배치를 삭제하거나 전체 스냅샷 데이터를 비웁니다.

배치 삭제는 해당 배치의 스냅샷만 제거하고 기회는 남깁니다.
전체 삭제(--all)만이 기회를 지우는 유일한 경로입니다.

Example:
  go run ./cmd/revops cleanup --batch 3f2c...
  go run ./cmd/revops cleanup --all`,
	RunE: runCleanup,
}

var (
	cleanupBatch string
	cleanupAll   bool
	cleanupYes   bool
)

func init() {
	rootCmd.AddCommand(cleanupCmd)

	// Flags
	cleanupCmd.Flags().StringVar(&cleanupBatch, "batch", "", "삭제할 배치 ID")
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "전체 데이터 삭제")
	cleanupCmd.Flags().BoolVar(&cleanupYes, "yes", false, "확인 프롬프트 생략")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if cleanupBatch == "" && !cleanupAll {
		return fmt.Errorf("either --batch or --all is required")
	}

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// 4. Wire ingestor
	st := store.NewPostgres(db.Pool)
	resolver := identity.NewResolver(st.Opportunities, st.Snapshots, log)
	ingestor := ingest.New(resolver, st.Opportunities, st.Snapshots, st.Batches, telemetry.New(), log)

	// 5. Confirm and run
	if cleanupAll {
		if !cleanupYes && !confirm("Delete ALL snapshot data, opportunities and batches?") {
			fmt.Println("Aborted")
			return nil
		}
		if err := ingestor.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clear data: %w", err)
		}
		fmt.Println("✅ All data cleared")
		return nil
	}

	if !cleanupYes && !confirm(fmt.Sprintf("Delete batch %s and its snapshots?", cleanupBatch)) {
		fmt.Println("Aborted")
		return nil
	}
	if err := ingestor.DeleteBatch(cmd.Context(), cleanupBatch); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	fmt.Printf("✅ Batch %s deleted\n", cleanupBatch)
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
