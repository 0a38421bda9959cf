package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/pkg/logger"
	"github.com/wonny/stockwatch/pkg/redis"
)

// ScreeningJobName is the scheduler key of the daily watchlist screening
const ScreeningJobName = "watchlist_screening"

// screeningLockTTL outlives any realistic pass; the lock is released explicitly on return
const screeningLockTTL = 30 * time.Minute

// Screener runs one screening pass
type Screener interface {
	Run(ctx context.Context) (*contracts.RunSummary, error)
}

// ScreeningJob triggers the watchlist screening after the market close
// ⭐ SSOT: 스크리닝 스케줄은 이 Job에서만
type ScreeningJob struct {
	screener Screener
	locker   *redis.Locker
	cache    *redis.Cache
	schedule string
	location *time.Location
	now      func() time.Time
	logger   *logger.Logger
}

// NewScreeningJob creates a new screening job
func NewScreeningJob(screener Screener, locker *redis.Locker, cache *redis.Cache, schedule string, loc *time.Location, log *logger.Logger) *ScreeningJob {
	return &ScreeningJob{
		screener: screener,
		locker:   locker,
		cache:    cache,
		schedule: schedule,
		location: loc,
		now:      time.Now,
		logger:   log.Module("jobs").WithField("job", ScreeningJobName),
	}
}

// Name returns the job name
func (j *ScreeningJob) Name() string {
	return ScreeningJobName
}

// Schedule returns the cron schedule (weekdays 16:00 exchange time by default)
func (j *ScreeningJob) Schedule() string {
	return j.schedule
}

// Run executes one screening pass unless today is not a trading day or another replica holds the lock
func (j *ScreeningJob) Run(ctx context.Context) error {
	today := j.now().In(j.location)
	if !IsBusinessDay(today) {
		j.logger.WithField("date", today.Format("2006-01-02")).Info("Not a business day, skipping screening")
		return nil
	}

	if _, _, err := j.RunOnce(ctx); err != nil {
		return err
	}
	return nil
}

// RunOnce runs a pass on any day, holding the cross-instance lock and refreshing the caches.
// ran is false when another holder had the lock.
func (j *ScreeningJob) RunOnce(ctx context.Context) (summary *contracts.RunSummary, ran bool, err error) {
	release, ok, err := j.locker.Acquire(ctx, ScreeningJobName, screeningLockTTL)
	if err != nil {
		return nil, false, fmt.Errorf("acquire screening lock: %w", err)
	}
	if !ok {
		j.logger.Warn("Screening already running on another instance, skipping")
		return nil, false, nil
	}
	defer release()

	summary, err = j.screener.Run(ctx)
	if summary != nil {
		if cacheErr := j.cache.Set(ctx, redis.LatestRunKey(), summary, redis.TTLDaily); cacheErr != nil {
			j.logger.WithError(cacheErr).Warn("Failed to cache run summary")
		}
		if len(summary.Admitted) > 0 {
			if cacheErr := j.cache.Delete(ctx, redis.WatchlistKey()); cacheErr != nil {
				j.logger.WithError(cacheErr).Warn("Failed to invalidate watchlist cache")
			}
		}
	}
	if err != nil {
		return summary, true, fmt.Errorf("screening run: %w", err)
	}

	return summary, true, nil
}

// IsBusinessDay reports whether t falls on Monday through Friday in its own location.
// Exchange holidays are not modelled; a holiday run finds no new record and admits nothing.
func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}
