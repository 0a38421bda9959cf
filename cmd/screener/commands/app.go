package commands

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wonny/stockwatch/internal/prices"
	"github.com/wonny/stockwatch/internal/scheduler"
	"github.com/wonny/stockwatch/internal/scheduler/jobs"
	"github.com/wonny/stockwatch/internal/screening"
	"github.com/wonny/stockwatch/internal/watchlist"
	"github.com/wonny/stockwatch/pkg/config"
	"github.com/wonny/stockwatch/pkg/database"
	"github.com/wonny/stockwatch/pkg/logger"
	"github.com/wonny/stockwatch/pkg/redis"
)

// redisPrefix namespaces every key this service writes
const redisPrefix = "screener"

// runRetention is how long run records are kept
const runRetention = 180 * 24 * time.Hour

// workersOverride replaces SCREENING_WORKERS when positive
var workersOverride int

// app holds the wired dependencies shared by the commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	location *time.Location
	db       *database.DB
	redis    *redis.Client
	cache    *redis.Cache
	registry *prometheus.Registry

	prices    *prices.Repository
	watchlist *watchlist.Repository
	runs      *screening.RunRepository
	screener  *screening.Job
	job       *jobs.ScreeningJob
}

// loadConfig loads config and applies the global flag overrides
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if workersOverride > 0 {
		cfg.Screening.Workers = workersOverride
	}

	return cfg, logger.New(cfg), nil
}

// newApp connects to PostgreSQL and Redis and wires the screening job
func newApp() (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Connected to database")

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	if rdb.Enabled() {
		log.Info("Connected to redis")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:       cfg,
		log:       log,
		location:  loc,
		db:        db,
		redis:     rdb,
		cache:     redis.NewCache(rdb, redisPrefix),
		registry:  registry,
		prices:    prices.NewRepository(db.Pool),
		watchlist: watchlist.NewRepository(db.Pool),
		runs:      screening.NewRunRepository(db.Pool),
	}

	opts := []screening.Option{
		screening.WithWorkers(cfg.Screening.Workers),
		screening.WithLocation(loc),
		screening.WithRunRecorder(a.runs),
	}
	if cfg.MetricsEnabled {
		opts = append(opts, screening.WithMetrics(screening.NewMetrics(registry)))
	}
	a.screener = screening.NewJob(a.prices, a.watchlist, log, opts...)

	a.job = jobs.NewScreeningJob(a.screener, redis.NewLocker(rdb, redisPrefix), a.cache,
		cfg.Screening.Schedule, loc, log)

	return a, nil
}

// newScheduler registers every job on a scheduler in the exchange time zone
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log,
		scheduler.WithLocation(a.location),
		scheduler.WithRetry(a.cfg.Scheduler.MaxRetries, a.cfg.Scheduler.RetryDelay),
	)

	if err := sched.AddJob(a.job); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewRunHistoryCleanupJob(a.runs, runRetention, a.log)); err != nil {
		return nil, err
	}

	return sched, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}
