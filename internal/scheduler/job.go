package scheduler

import (
	"context"
	"time"
)

// Job is one cron-driven unit of work: the daily watchlist screening pass or
// the weekly run-history cleanup.
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name is unique per scheduler; it keys history and the Redis run lock
	Name() string

	// Run performs one pass. Errors are retried with backoff unless wrapped
	// in backoff.Permanent; a pass must therefore be safe to repeat.
	Run(ctx context.Context) error

	// Schedule is a cron expression with a leading seconds field,
	// evaluated in the scheduler's location ("0 0 16 * * MON-FRI").
	Schedule() string
}

// JobResult records one firing of a job, including every retry it took
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// historyLimit bounds the results kept per job. At one screening pass per
// weekday this is roughly five months.
const historyLimit = 100

// JobHistory is the in-memory result log of one job, oldest first.
// It is lost on restart; screening_runs is the durable record.
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result and drops the oldest beyond historyLimit
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// Snapshot returns a copy safe to read after the scheduler lock is released
func (h *JobHistory) Snapshot() *JobHistory {
	results := make([]JobResult, len(h.Results))
	copy(results, h.Results)
	return &JobHistory{Results: results}
}

// Recent returns up to n of the newest results, oldest first
func (h *JobHistory) Recent(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}

	return h.Results[len(h.Results)-n:]
}

// Failures returns the results that exhausted their retries
func (h *JobHistory) Failures() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// LastSuccess returns the newest successful result, if any
func (h *JobHistory) LastSuccess() *JobResult {
	return h.last(true)
}

// LastFailure returns the newest failed result, if any
func (h *JobHistory) LastFailure() *JobResult {
	return h.last(false)
}

func (h *JobHistory) last(success bool) *JobResult {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Success == success {
			r := h.Results[i]
			return &r
		}
	}
	return nil
}

// SuccessRate is the share of kept results that succeeded (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	return float64(len(h.Results)-len(h.Failures())) / float64(len(h.Results))
}
