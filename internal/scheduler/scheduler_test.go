package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockwatch/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32 // number of leading calls that fail
	calls    int32
	err      error
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= j.failures {
		if j.err != nil {
			return j.err
		}
		return errors.New("transient")
	}
	return nil
}

func newTestScheduler(t *testing.T, retries int) *Scheduler {
	t.Helper()
	return New(logger.Nop(), WithRetry(retries, time.Millisecond))
}

func TestNextAfter_UsesExchangeTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "before close on a weekday",
			from: time.Date(2024, 3, 13, 9, 30, 0, 0, ny),
			want: time.Date(2024, 3, 13, 16, 0, 0, 0, ny),
		},
		{
			name: "friday evening rolls to monday",
			from: time.Date(2024, 3, 15, 17, 0, 0, 0, ny),
			want: time.Date(2024, 3, 18, 16, 0, 0, 0, ny),
		},
		{
			name: "weekend spanning the DST switch",
			from: time.Date(2024, 3, 8, 17, 0, 0, 0, ny),
			want: time.Date(2024, 3, 11, 16, 0, 0, 0, ny),
		},
		{
			name: "from a UTC instant",
			from: time.Date(2024, 3, 13, 19, 0, 0, 0, time.UTC), // 15:00 EDT
			want: time.Date(2024, 3, 13, 16, 0, 0, 0, ny),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := NextAfter("0 0 16 * * MON-FRI", ny, tt.from)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(next), "want %s, got %s", tt.want, next)
		})
	}
}

func TestNextAfter_InvalidSchedule(t *testing.T) {
	_, err := NextAfter("not a schedule", time.UTC, time.Now())
	assert.Error(t, err)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler(t, 0)

	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}))
	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&countingJob{name: "b", schedule: "bogus"}), "invalid schedule")

	require.NoError(t, s.AddJob(&countingJob{name: "c", schedule: "0 0 16 * * MON-FRI"}))
	assert.Equal(t, []string{"a", "c"}, s.GetAllJobs())

	_, err := s.GetJobHistory("a")
	require.NoError(t, err)

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"c"}, s.GetAllJobs())

	_, err = s.GetJobHistory("a")
	assert.Error(t, err, "history goes with the job")
}

func TestRunNow_RetriesThenSucceeds(t *testing.T) {
	s := newTestScheduler(t, 2)
	job := &countingJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.NotNil(t, stats.LastSuccess)
	assert.NotNil(t, stats.NextRun)
}

func TestRunNow_GivesUpAfterMaxRetries(t *testing.T) {
	s := newTestScheduler(t, 2)
	job := &countingJob{name: "broken", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.calls))

	history, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.Equal(t, "transient", history.Results[0].Error)
	assert.Equal(t, 0.0, history.SuccessRate())

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
}

func TestRunNow_PermanentErrorIsNotRetried(t *testing.T) {
	s := newTestScheduler(t, 5)
	job := &countingJob{name: "fatal", schedule: "@daily", failures: 100, err: backoff.Permanent(errors.New("bad config"))}
	require.NoError(t, s.AddJob(job))

	_, err := s.RunNow(context.Background(), "fatal")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.calls))
}

func TestRunNow_UnknownJob(t *testing.T) {
	s := newTestScheduler(t, 0)
	_, err := s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
	assert.Error(t, s.RunJob("missing"))
}

func TestJobHistory_Limit(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+20; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, historyLimit)
	assert.Len(t, h.Recent(5), 5)
	assert.Len(t, h.Failures(), historyLimit/2)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
	assert.Empty(t, (&JobHistory{}).Recent(3))
}

func TestJobHistory_LastSuccessAndFailure(t *testing.T) {
	base := time.Date(2024, 3, 11, 16, 0, 0, 0, time.UTC)
	h := &JobHistory{}
	assert.Nil(t, h.LastSuccess())
	assert.Nil(t, h.LastFailure())

	h.AddResult(JobResult{StartTime: base, Success: true})
	h.AddResult(JobResult{StartTime: base.AddDate(0, 0, 1), Success: false})
	h.AddResult(JobResult{StartTime: base.AddDate(0, 0, 2), Success: false})

	require.NotNil(t, h.LastSuccess())
	assert.Equal(t, base, h.LastSuccess().StartTime, "an older success is still reported")
	require.NotNil(t, h.LastFailure())
	assert.Equal(t, base.AddDate(0, 0, 2), h.LastFailure().StartTime)
}

func TestGetJobHistory_ReturnsCopy(t *testing.T) {
	s := newTestScheduler(t, 0)
	require.NoError(t, s.AddJob(&countingJob{name: "daily", schedule: "@daily"}))

	_, err := s.RunNow(context.Background(), "daily")
	require.NoError(t, err)

	snapshot, err := s.GetJobHistory("daily")
	require.NoError(t, err)
	require.Len(t, snapshot.Results, 1)

	_, err = s.RunNow(context.Background(), "daily")
	require.NoError(t, err)
	assert.Len(t, snapshot.Results, 1)

	latest, err := s.GetJobHistory("daily")
	require.NoError(t, err)
	assert.Len(t, latest.Results, 2)
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(t, 0)
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}))

	s.Start()
	s.Stop()
}
