package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockwatch/internal/contracts"
)

// RunRepository implements contracts.RunRecorder on the screening_runs table
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// StartRun inserts the run in its running state
func (r *RunRepository) StartRun(ctx context.Context, s *contracts.RunSummary) error {
	query := `
		INSERT INTO screening_runs (run_id, as_of, started_at, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, s.RunID, s.AsOf, s.StartedAt, string(s.Status)); err != nil {
		return fmt.Errorf("failed to start run %s: %w", s.RunID, err)
	}
	return nil
}

// FinishRun writes the final counts
func (r *RunRepository) FinishRun(ctx context.Context, s *contracts.RunSummary) error {
	skippedJSON, err := json.Marshal(s.Skipped)
	if err != nil {
		return fmt.Errorf("failed to marshal skipped: %w", err)
	}
	failedJSON, err := json.Marshal(s.Failed)
	if err != nil {
		return fmt.Errorf("failed to marshal failed: %w", err)
	}

	admitted := make([]string, len(s.Admitted))
	copy(admitted, s.Admitted)

	// StartRun may have failed; upsert keeps the final record either way
	query := `
		INSERT INTO screening_runs (
			run_id, as_of, started_at, finished_at, status,
			total, evaluated, admitted, skipped, failed, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			evaluated = EXCLUDED.evaluated,
			admitted = EXCLUDED.admitted,
			skipped = EXCLUDED.skipped,
			failed = EXCLUDED.failed,
			error = EXCLUDED.error
	`

	_, err = r.pool.Exec(ctx, query,
		s.RunID, s.AsOf, s.StartedAt, s.FinishedAt, string(s.Status),
		s.Total, s.Evaluated, admitted, skippedJSON, failedJSON, s.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", s.RunID, err)
	}
	return nil
}

// LatestRun returns the most recently started run
func (r *RunRepository) LatestRun(ctx context.Context) (*contracts.RunSummary, error) {
	query := `
		SELECT run_id::text, as_of, started_at, finished_at, status,
			total, evaluated, admitted, skipped, failed, error
		FROM screening_runs
		ORDER BY started_at DESC
		LIMIT 1
	`

	var s contracts.RunSummary
	var status string
	var skippedJSON, failedJSON []byte

	err := r.pool.QueryRow(ctx, query).Scan(
		&s.RunID, &s.AsOf, &s.StartedAt, &s.FinishedAt, &status,
		&s.Total, &s.Evaluated, &s.Admitted, &skippedJSON, &failedJSON, &s.Error,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	s.Status = contracts.RunStatus(status)
	if err := json.Unmarshal(skippedJSON, &s.Skipped); err != nil {
		return nil, fmt.Errorf("failed to unmarshal skipped: %w", err)
	}
	if err := json.Unmarshal(failedJSON, &s.Failed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed: %w", err)
	}

	return &s, nil
}

// DeleteRunsBefore removes runs started before cutoff
func (r *RunRepository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM screening_runs WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
