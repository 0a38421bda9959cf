package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockwatch/internal/scheduler"
	"github.com/wonny/stockwatch/pkg/database"
	"github.com/wonny/stockwatch/pkg/redis"
)

// checkCmd verifies configuration and connectivity
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "설정 및 연결 점검",
	Long: `설정을 로드하고 PostgreSQL, Redis 연결과 스케줄 표현식을 점검합니다.

Example:
  go run ./cmd/screener check`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	PrintHeader("Stockwatch Configuration Check")

	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	PrintSuccess(fmt.Sprintf("Config loaded (ENV: %s)", cfg.Env))
	PrintKeyValue("Database", maskPassword(cfg.Database.URL), 10)
	PrintKeyValue("Timezone", cfg.Screening.Timezone, 10)
	PrintKeyValue("Schedule", cfg.Screening.Schedule, 10)
	PrintKeyValue("Workers", fmt.Sprint(cfg.Screening.Workers), 10)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("❌ timezone: %w", err)
	}
	next, err := scheduler.NextAfter(cfg.Screening.Schedule, loc, time.Now())
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	PrintSuccess("Next screening at " + next.Format("2006-01-02 15:04 MST"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ database: %w", err)
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ health check: %w", err)
	}
	PrintSuccess(fmt.Sprintf("Database healthy (%s)", status.ResponseTime))
	PrintKeyValue("Max conns", fmt.Sprint(status.Stats.MaxConns), 10)
	PrintKeyValue("Idle", fmt.Sprint(status.Stats.IdleConns), 10)

	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ redis: %w", err)
	}
	defer rdb.Close()
	if rdb.Enabled() {
		PrintSuccess("Redis reachable")
	} else {
		PrintWarning("Redis disabled: locks, caching and rate limiting are off")
	}

	fmt.Println()
	PrintSuccess("All checks passed")
	return nil
}
