package screening

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/internal/signals"
	"github.com/wonny/stockwatch/pkg/logger"
)

// ErrListTickers is returned when the ticker universe cannot be enumerated
var ErrListTickers = errors.New("list tickers")

// ReasonAlreadyListed counts admissions that found an existing entry for the ticker
const ReasonAlreadyListed = "already_listed"

// Ticker terminal states
const (
	StatePersisted = "persisted"
	StateSkipped   = "skipped"
	StateFailed    = "failed"
)

// Job runs one screening pass over every ticker with price history
// ⭐ SSOT: 워치리스트 스크리닝 오케스트레이션은 여기서만
type Job struct {
	prices     contracts.PriceStore
	watchlist  contracts.WatchlistStore
	runs       contracts.RunRecorder
	calculator *signals.Calculator
	evaluator  *Evaluator
	metrics    *Metrics
	logger     *logger.Logger

	workers  int
	location *time.Location
	now      func() time.Time
}

// Option configures a Job
type Option func(*Job)

// WithWorkers bounds the number of tickers evaluated concurrently
func WithWorkers(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.workers = n
		}
	}
}

// WithThresholds replaces the default admission rule
func WithThresholds(t Thresholds) Option {
	return func(j *Job) { j.evaluator = NewEvaluator(t) }
}

// WithLocation sets the exchange time zone that defines "today"
func WithLocation(loc *time.Location) Option {
	return func(j *Job) { j.location = loc }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

// WithRunRecorder persists each run's summary
func WithRunRecorder(r contracts.RunRecorder) Option {
	return func(j *Job) { j.runs = r }
}

// WithMetrics reports run and ticker outcomes to Prometheus
func WithMetrics(m *Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

// NewJob creates a new screening job
func NewJob(prices contracts.PriceStore, watchlist contracts.WatchlistStore, log *logger.Logger, opts ...Option) *Job {
	j := &Job{
		prices:     prices,
		watchlist:  watchlist,
		calculator: signals.NewCalculator(prices, log),
		evaluator:  NewEvaluator(DefaultThresholds()),
		logger:     log.Module("screening"),
		workers:    1,
		location:   time.UTC,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// tickerOutcome is the terminal state of one ticker in one run
type tickerOutcome struct {
	Ticker string
	State  string
	Reason string
}

// Run executes one full screening pass.
// The error is non-nil only for run-level failures; per-ticker faults are reported in the summary.
func (j *Job) Run(ctx context.Context) (*contracts.RunSummary, error) {
	startedAt := time.Now()
	asOf := j.now().In(j.location)
	summary := contracts.NewRunSummary(uuid.NewString(), asOf, startedAt)

	log := j.logger.WithField("run_id", summary.RunID)
	log.WithFields(map[string]interface{}{
		"as_of":   asOf.Format(time.RFC3339),
		"workers": j.workers,
	}).Info("Starting screening run")

	j.recordStart(ctx, summary)

	tickers, err := j.prices.ListDistinctTickers(ctx)
	if err != nil {
		runErr := fmt.Errorf("%w: %v", ErrListTickers, err)
		j.finish(ctx, summary, runErr)
		return summary, runErr
	}
	summary.Total = len(tickers)

	for _, outcome := range j.evaluateAll(ctx, tickers, asOf) {
		j.metrics.observeTicker(outcome)

		switch outcome.State {
		case StatePersisted:
			summary.Evaluated++
			summary.Admitted = append(summary.Admitted, outcome.Ticker)
		case StateSkipped:
			summary.Evaluated++
			summary.Skipped[outcome.Reason]++
		case StateFailed:
			summary.Failed = append(summary.Failed, contracts.TickerFailure{
				Ticker: outcome.Ticker,
				Reason: outcome.Reason,
			})
		}
	}

	sort.Strings(summary.Admitted)
	sort.Slice(summary.Failed, func(a, b int) bool {
		return summary.Failed[a].Ticker < summary.Failed[b].Ticker
	})

	// 취소된 실행은 완료로 기록하지 않음
	if ctxErr := ctx.Err(); ctxErr != nil {
		runErr := fmt.Errorf("screening run interrupted: %w", ctxErr)
		j.finish(ctx, summary, runErr)
		return summary, runErr
	}

	j.finish(ctx, summary, nil)
	return summary, nil
}

// evaluateAll fans tickers out to a bounded worker pool
func (j *Job) evaluateAll(ctx context.Context, tickers []string, asOf time.Time) []tickerOutcome {
	tickerCh := make(chan string, len(tickers))
	resultCh := make(chan tickerOutcome, len(tickers))

	var wg sync.WaitGroup
	for i := 0; i < j.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range tickerCh {
				select {
				case <-ctx.Done():
					resultCh <- tickerOutcome{Ticker: ticker, State: StateFailed, Reason: ctx.Err().Error()}
					continue
				default:
				}
				resultCh <- j.processTicker(ctx, ticker, asOf)
			}
		}()
	}

	for _, ticker := range tickers {
		tickerCh <- ticker
	}
	close(tickerCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	outcomes := make([]tickerOutcome, 0, len(tickers))
	for outcome := range resultCh {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// processTicker takes one ticker through Loaded -> SignalsComputed -> Evaluated -> Persisted|Skipped|Failed
func (j *Job) processTicker(ctx context.Context, ticker string, asOf time.Time) (outcome tickerOutcome) {
	log := j.logger.WithField("ticker", ticker)
	outcome = tickerOutcome{Ticker: ticker}

	fail := func(err error) tickerOutcome {
		log.WithError(err).Error("Ticker screening failed")
		return tickerOutcome{Ticker: ticker, State: StateFailed, Reason: err.Error()}
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = fail(fmt.Errorf("panic: %v", r))
		}
	}()

	sig, err := j.calculator.Calculate(ctx, ticker, asOf, j.evaluator.Thresholds().TrendPeriod)
	if err != nil {
		return fail(fmt.Errorf("calculate signals: %w", err))
	}

	last, err := j.watchlist.FindLatestByTicker(ctx, ticker)
	if err != nil {
		return fail(fmt.Errorf("find watchlist entry: %w", err))
	}

	var lastAdmission *time.Time
	if last != nil {
		lastAdmission = &last.DateAdded
	}

	decision := j.evaluator.Evaluate(sig, lastAdmission, asOf)
	if !decision.Admit {
		log.WithField("reason", decision.Reason).Debug("Ticker skipped")
		return tickerOutcome{Ticker: ticker, State: StateSkipped, Reason: decision.Reason}
	}

	entry, created, err := j.watchlist.FindOrCreate(ctx, ticker, decision.Entry)
	if err != nil {
		return fail(fmt.Errorf("persist admission: %w", err))
	}
	if !created {
		log.WithField("date_added", entry.DateAdded.Format("2006-01-02")).Info("Ticker qualified but is already listed")
		return tickerOutcome{Ticker: ticker, State: StateSkipped, Reason: ReasonAlreadyListed}
	}

	log.WithFields(map[string]interface{}{
		"close":              entry.CurrentPriceAtAdmission,
		"week52_high":        entry.Week52High,
		"percent_below_high": fmt.Sprintf("%.2f%%", entry.PercentBelowHigh*100),
		"volume_ratio":       entry.Metrics.VolumeIncreaseRatio,
		"trend_ma":           entry.Metrics.TrendMovingAverage,
	}).Info("Ticker added to watchlist")

	return tickerOutcome{Ticker: ticker, State: StatePersisted}
}

func (j *Job) recordStart(ctx context.Context, summary *contracts.RunSummary) {
	if j.runs == nil {
		return
	}
	if err := j.runs.StartRun(ctx, summary); err != nil {
		j.logger.WithError(err).WithField("run_id", summary.RunID).Warn("Failed to record run start")
	}
}

// finish stamps the summary, records it and reports metrics
func (j *Job) finish(ctx context.Context, summary *contracts.RunSummary, runErr error) {
	finishedAt := time.Now()
	summary.FinishedAt = &finishedAt
	summary.Status = contracts.RunStatusCompleted
	if runErr != nil {
		summary.Status = contracts.RunStatusFailed
		summary.Error = runErr.Error()
	}

	if j.runs != nil {
		// ctx may already be cancelled; the record must still land
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := j.runs.FinishRun(recordCtx, summary); err != nil {
			j.logger.WithError(err).WithField("run_id", summary.RunID).Warn("Failed to record run result")
		}
	}

	duration := finishedAt.Sub(summary.StartedAt)
	j.metrics.observeRun(summary.Status, duration)

	log := j.logger.WithFields(map[string]interface{}{
		"run_id":    summary.RunID,
		"status":    summary.Status,
		"total":     summary.Total,
		"evaluated": summary.Evaluated,
		"admitted":  len(summary.Admitted),
		"skipped":   summary.Skipped,
		"failed":    len(summary.Failed),
		"duration":  duration.String(),
	})
	if runErr != nil {
		log.WithError(runErr).Error("Screening run failed")
		return
	}
	log.Info("Screening run completed")
}
