package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/metrics"
	"github.com/wonny/revops/internal/settings"
	"github.com/wonny/revops/internal/store"
	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/database"
	"github.com/wonny/revops/pkg/logger"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "터미널 파이프라인 리포트",
	Long: `파이프라인 요약, 승률, 스테이지 분포를 터미널 테이블로 출력합니다.

모든 숫자는 데이터셋의 최신 스냅샷 날짜 기준으로 계산됩니다
(벽시계가 아니라서 같은 데이터면 언제 실행해도 같은 결과).

Example:
  go run ./cmd/revops report
  go run ./cmd/revops report --period last-fq
  go run ./cmd/revops report --period last-3-months --owner "Kim"`,
	RunE: runReport,
}

var (
	reportPeriod string
	reportOwner  string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	// Flags
	reportCmd.Flags().StringVar(&reportPeriod, "period", "fy-to-date", "기간 토큰 (last-N-months, month-to-date, fq-to-date, fy-to-date, last-fq, last-fy)")
	reportCmd.Flags().StringVar(&reportOwner, "owner", "", "담당자 필터")
}

func runReport(cmd *cobra.Command, args []string) error {
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

	// 4. Load policy + wire engine
	set, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	st := store.NewPostgres(db.Pool)
	engine := metrics.NewEngine(st.Opportunities, st.Snapshots, set, log)

	// 5. Load dataset and resolve the period against its anchor
	d, err := engine.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if len(d.Opportunities) == 0 {
		fmt.Println("No snapshot data. Run ingest first.")
		return nil
	}

	rng, err := fiscal.Resolve(reportPeriod, d.LatestDate)
	if err != nil {
		return fmt.Errorf("resolve period: %w", err)
	}

	filter := contracts.SnapshotFilter{Owner: reportOwner}
	report := engine.BuildReport(d, rng, nil, filter)

	// 6. Render
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("%s  as of %s, %s\n\n",
		bold("=== Pipeline Report ==="),
		report.AsOf.Format(time.DateOnly),
		rng.String())

	// Summary
	summary := tablewriter.NewWriter(os.Stdout)
	summary.SetHeader([]string{"Pipeline Value", "Active Deals", "Avg Deal Size"})
	summary.Append([]string{
		fmt.Sprintf("%.0f", report.Summary.PipelineValue),
		fmt.Sprintf("%d", report.Summary.ActiveCount),
		fmt.Sprintf("%.0f", report.Summary.AvgDealSize),
	})
	summary.Render()

	// Rates
	fmt.Printf("\n%s\n", bold("Rates"))
	rates := tablewriter.NewWriter(os.Stdout)
	rates.SetHeader([]string{"Metric", "Rate", "Won", "Counted", "Excluded"})
	rates.Append([]string{
		"Win rate",
		fmt.Sprintf("%.1f%%", report.WinRate.Rate*100),
		fmt.Sprintf("%d", report.WinRate.Numerator),
		fmt.Sprintf("%d", report.WinRate.Denominator),
		fmt.Sprintf("%d", len(report.WinRate.Excluded)),
	})
	rates.Append([]string{
		"Close rate",
		fmt.Sprintf("%.1f%%", report.CloseRate.Rate*100),
		fmt.Sprintf("%d", report.CloseRate.Numerator),
		fmt.Sprintf("%d", report.CloseRate.Denominator),
		fmt.Sprintf("%d", len(report.CloseRate.Excluded)),
	})
	rates.Render()

	if n := len(report.WinRate.Excluded); n > 0 {
		fmt.Printf("%s %d closed deal(s) excluded: no usable attribution date\n", red("!"), n)
	}

	// Stage distribution
	fmt.Printf("\n%s\n", bold("Stage Distribution"))
	stages := tablewriter.NewWriter(os.Stdout)
	stages.SetHeader([]string{"Stage", "Count", "Value", "Share"})
	stages.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, sc := range report.Stages {
		stages.Append([]string{
			sc.Stage,
			fmt.Sprintf("%d", sc.Count),
			fmt.Sprintf("%.0f", sc.Value),
			fmt.Sprintf("%.1f%%", sc.Pct*100),
		})
	}
	stages.Render()

	// Loss reasons
	if len(report.LossReasons) > 0 {
		fmt.Printf("\n%s\n", bold("Loss Reasons"))
		losses := tablewriter.NewWriter(os.Stdout)
		losses.SetHeader([]string{"Reason", "Count", "Share"})
		losses.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, rc := range report.LossReasons {
			losses.Append([]string{rc.Reason, fmt.Sprintf("%d", rc.Count), fmt.Sprintf("%.1f%%", rc.Pct*100)})
		}
		losses.Render()
	}

	fmt.Printf("\n%s %d new deal(s) entered pipeline in period (%.0f value)\n",
		green("+"), report.NewDeals.Count, report.NewDeals.Value)
	return nil
}
