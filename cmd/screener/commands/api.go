package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wonny/stockwatch/internal/api"
	"github.com/wonny/stockwatch/internal/api/handlers"
	"github.com/wonny/stockwatch/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET    /health                      - Health check (DB ping 포함)
  GET    /metrics                     - Prometheus (METRICS_ENABLED=true)
  POST   /api/screening/run           - 스크리닝 수동 실행 (분당 1회)
  GET    /api/screening/runs/latest   - 최근 실행 결과
  GET    /api/watchlist               - 워치리스트 조회
  POST   /api/watchlist               - 수동 편입 {"ticker":"AAPL","reason":"..."}
  DELETE /api/watchlist/{ticker}      - 편입 해제

Example:
  go run ./cmd/screener api
  go run ./cmd/screener api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "override PORT")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "run the scheduler in the same process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	PrintHeader("Stockwatch API Server")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	routes := api.Routes{
		Screening: handlers.NewScreeningHandler(a.job, a.runs, a.cache, redis.NewRateLimiter(a.redis, redisPrefix), a.log),
		Watchlist: handlers.NewWatchlistHandler(a.watchlist, a.cache, a.location, a.log),
		Database:  a.db,
	}
	if a.cfg.MetricsEnabled {
		routes.Metrics = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
	}

	server := api.New(a.cfg, a.log, api.NewRouter(routes, a.log))

	if withScheduler {
		sched, err := a.newScheduler()
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Listening on %s\n", server.Addr())
	if err := server.Run(ctx, 10*time.Second); err != nil && err != http.ErrServerClosed {
		return err
	}

	fmt.Println("Server stopped")
	return nil
}
