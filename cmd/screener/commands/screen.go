package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// screenCmd runs one screening pass in the foreground
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "스크리닝 1회 즉시 실행",
	Long: `전 종목을 지금 평가하고 결과를 출력합니다.

스케줄러와 같은 Redis 락을 사용하므로 다른 인스턴스가 실행 중이면 건너뜁니다.
영업일 여부와 관계없이 실행됩니다.

Example:
  go run ./cmd/screener screen
  go run ./cmd/screener screen --workers 8`,
	RunE: runScreen,
}

func init() {
	rootCmd.AddCommand(screenCmd)
	screenCmd.Flags().IntVar(&workersOverride, "workers", 0, "override SCREENING_WORKERS")
}

func runScreen(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	PrintHeader("Watchlist Screening")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, ran, err := a.job.RunOnce(ctx)
	if !ran && err == nil {
		PrintWarning("Another instance holds the screening lock, nothing to do")
		return nil
	}
	if summary != nil {
		PrintRunSummary(summary)
	}
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Screening completed: %d admitted", len(summary.Admitted)))
	return nil
}
