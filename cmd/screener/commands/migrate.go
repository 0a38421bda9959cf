package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockwatch/pkg/database"
)

// migrateCmd applies the embedded schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 적용",
	Long: `stock_prices, watchlists, screening_runs 테이블을 생성합니다.
모든 마이그레이션은 IF NOT EXISTS 이므로 반복 실행해도 안전합니다.

Example:
  go run ./cmd/screener migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return err
	}

	log.WithField("migrations", applied).Info("Schema migrated")
	for _, name := range applied {
		PrintSuccess(name)
	}
	return nil
}
