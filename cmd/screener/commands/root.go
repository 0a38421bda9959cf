package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string
	verbose  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Stockwatch - 52주 고점 대비 반등 종목 워치리스트 스크리너",
	Long: `Stockwatch Watchlist Screener

장 마감 후 전 종목의 일봉을 평가해 조건을 만족하는 종목을 워치리스트에 편입합니다.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener migrate
  go run ./cmd/screener screen
  go run ./cmd/screener scheduler start
  go run ./cmd/screener api --with-scheduler
  go run ./cmd/screener remote latest`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")
}
