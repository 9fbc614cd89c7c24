package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wonny/revops/internal/settings"
	"github.com/wonny/revops/internal/store"
	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/database"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/redis"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "환경 상태 점검",
	Long: `설정, 데이터베이스, Redis, 데이터 상태를 점검합니다.

표시 정보:
- 설정 로드 결과와 정책 해시
- PostgreSQL 연결 및 풀 상태
- Redis 연결 (비활성화 시 표시)
- 배치/기회 수와 최신 스냅샷 날짜

Example:
  go run ./cmd/revops status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== RevOps Status ===")

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("%s config: %v\n", red("✗"), err)
		return err
	}
	fmt.Printf("%s config loaded (env=%s)\n", green("✓"), cfg.Env)

	log := logger.New(cfg)

	// 2. Analytics policy
	set, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		fmt.Printf("%s settings: %v\n", red("✗"), err)
		return err
	}
	hash, _ := settings.Hash(set)
	fmt.Printf("%s settings %s (profile=%s, hash=%s)\n", green("✓"), cfg.SettingsPath, set.Meta.ProfileID, hash[:12])

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	// 3. Database
	db, err := database.New(cfg)
	if err != nil {
		fmt.Printf("%s postgres: %v\n", red("✗"), err)
		return err
	}
	defer db.Close()

	health, err := db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("%s postgres health: %v\n", red("✗"), err)
		return err
	}
	fmt.Printf("%s postgres healthy (conns %d/%d, ping %s)\n",
		green("✓"),
		health.Stats.AcquiredConns, health.Stats.MaxConns,
		health.ResponseTime)

	// 4. Redis
	rds, err := redis.New(cfg)
	if err != nil {
		fmt.Printf("%s redis: %v\n", red("✗"), err)
	} else {
		defer rds.Close()
		if rds.Enabled() {
			fmt.Printf("%s redis connected\n", green("✓"))
		} else {
			fmt.Printf("%s redis disabled (report cache off)\n", yellow("-"))
		}
	}

	// 5. Data
	st := store.NewPostgres(db.Pool)
	batches, err := st.Batches.List(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to list batches")
		fmt.Printf("%s data: %v\n", red("✗"), err)
		return err
	}
	opps, err := st.Opportunities.List(ctx)
	if err != nil {
		fmt.Printf("%s data: %v\n", red("✗"), err)
		return err
	}

	fmt.Printf("%s %d batch(es), %d opportunit(ies)\n", green("✓"), len(batches), len(opps))
	if latest, err := st.Snapshots.LatestDate(ctx); err == nil {
		fmt.Printf("  latest snapshot date: %s\n", latest.Format(time.DateOnly))
	} else {
		fmt.Println("  no snapshots loaded yet")
	}

	return nil
}
