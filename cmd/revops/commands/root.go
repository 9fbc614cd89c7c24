package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "revops",
	Short: "RevOps - 파이프라인 스냅샷 분석 및 캠페인 기여 백엔드",
	Long: `RevOps Unified CLI

영업 기회 스냅샷 기반 파이프라인 분석 백엔드.
스냅샷 적재부터 지표 계산, 캠페인 기여 분석까지.

Usage:
  go run ./cmd/revops [command]

Examples:
  go run ./cmd/revops api
  go run ./cmd/revops ingest export.csv --date 2025-06-30
  go run ./cmd/revops report --period fy-to-date
  go run ./cmd/revops status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
