package screening

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/pkg/config"
	"github.com/wonny/stockwatch/pkg/database"
)

func TestRunRepository_RoundTrip(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	db, err := database.New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = db.Migrate(ctx)
	require.NoError(t, err)

	repo := NewRunRepository(db.Pool)

	// 미래 시각으로 넣어 최신 실행이 되도록 함
	started := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Microsecond)
	s := contracts.NewRunSummary(uuid.NewString(), started, started)
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM screening_runs WHERE run_id = $1`, s.RunID)
	})

	require.NoError(t, repo.StartRun(ctx, s))

	finished := started.Add(time.Minute)
	s.FinishedAt = &finished
	s.Status = contracts.RunStatusCompleted
	s.Total, s.Evaluated = 3, 2
	s.Admitted = []string{"XYZ"}
	s.Skipped[ReasonTrend] = 1
	s.Failed = []contracts.TickerFailure{{Ticker: "BAD", Reason: "boom"}}
	require.NoError(t, repo.FinishRun(ctx, s))

	latest, err := repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.RunID, latest.RunID)
	assert.Equal(t, contracts.RunStatusCompleted, latest.Status)
	assert.Equal(t, []string{"XYZ"}, latest.Admitted)
	assert.Equal(t, 1, latest.Skipped[ReasonTrend])
	assert.Equal(t, s.Failed, latest.Failed)
	require.NotNil(t, latest.FinishedAt)
	assert.True(t, latest.FinishedAt.Equal(finished))
}
