package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/pkg/logger"
	"github.com/wonny/stockwatch/pkg/redis"
)

type fakeScreener struct {
	calls   int
	summary *contracts.RunSummary
	err     error
}

func (f *fakeScreener) Run(ctx context.Context) (*contracts.RunSummary, error) {
	f.calls++
	return f.summary, f.err
}

func newScreeningJob(s Screener, at time.Time) *ScreeningJob {
	client := redis.Disabled()
	job := NewScreeningJob(s, redis.NewLocker(client, "screener"), redis.NewCache(client, "screener"),
		"0 0 16 * * MON-FRI", time.UTC, logger.Nop())
	job.now = func() time.Time { return at }
	return job
}

func TestIsBusinessDay(t *testing.T) {
	tests := []struct {
		date time.Time
		want bool
	}{
		{time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC), true},  // Friday
		{time.Date(2024, 3, 16, 16, 0, 0, 0, time.UTC), false}, // Saturday
		{time.Date(2024, 3, 17, 16, 0, 0, 0, time.UTC), false}, // Sunday
		{time.Date(2024, 3, 18, 16, 0, 0, 0, time.UTC), true},  // Monday
	}

	for _, tt := range tests {
		t.Run(tt.date.Weekday().String(), func(t *testing.T) {
			assert.Equal(t, tt.want, IsBusinessDay(tt.date))
		})
	}
}

func TestScreeningJob_Metadata(t *testing.T) {
	job := newScreeningJob(&fakeScreener{}, time.Now())
	assert.Equal(t, "watchlist_screening", job.Name())
	assert.Equal(t, "0 0 16 * * MON-FRI", job.Schedule())
}

func TestScreeningJob_SkipsWeekend(t *testing.T) {
	s := &fakeScreener{}
	job := newScreeningJob(s, time.Date(2024, 3, 16, 16, 0, 0, 0, time.UTC))

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, s.calls)
}

func TestScreeningJob_Runs(t *testing.T) {
	at := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)
	s := &fakeScreener{summary: contracts.NewRunSummary("run-1", at, at)}
	job := newScreeningJob(s, at)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, s.calls)
}

func TestScreeningJob_RunOnceIgnoresCalendar(t *testing.T) {
	at := time.Date(2024, 3, 16, 11, 0, 0, 0, time.UTC)
	s := &fakeScreener{summary: contracts.NewRunSummary("run-1", at, at)}
	job := newScreeningJob(s, at)

	summary, ran, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 1, s.calls)
}

func TestScreeningJob_PropagatesRunFailure(t *testing.T) {
	at := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)
	s := &fakeScreener{err: errors.New("list tickers: connection refused")}
	job := newScreeningJob(s, at)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (f *fakePruner) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestRunHistoryCleanupJob(t *testing.T) {
	p := &fakePruner{}
	job := NewRunHistoryCleanupJob(p, 90*24*time.Hour, logger.Nop())

	require.NoError(t, job.Run(context.Background()))
	assert.WithinDuration(t, time.Now().Add(-90*24*time.Hour), p.cutoff, time.Minute)

	p.err = errors.New("boom")
	assert.Error(t, job.Run(context.Background()))
}
