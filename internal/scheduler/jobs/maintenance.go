package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stockwatch/pkg/logger"
)

// RunPruner deletes run records started before a cutoff
type RunPruner interface {
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunHistoryCleanupJob trims old screening run records
type RunHistoryCleanupJob struct {
	runs      RunPruner
	retention time.Duration
	logger    *logger.Logger
}

// NewRunHistoryCleanupJob creates a new run history cleanup job
func NewRunHistoryCleanupJob(runs RunPruner, retention time.Duration, log *logger.Logger) *RunHistoryCleanupJob {
	return &RunHistoryCleanupJob{
		runs:      runs,
		retention: retention,
		logger:    log.Module("jobs").WithField("job", "run_history_cleanup"),
	}
}

// Name returns the job name
func (j *RunHistoryCleanupJob) Name() string {
	return "run_history_cleanup"
}

// Schedule returns the cron schedule (Sundays 03:30)
func (j *RunHistoryCleanupJob) Schedule() string {
	return "0 30 3 * * SUN"
}

// Run executes the cleanup
func (j *RunHistoryCleanupJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.retention)

	count, err := j.runs.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune run history: %w", err)
	}

	if count > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": count,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Run history cleanup completed")
	}

	return nil
}
