package memory

import (
	"context"
	"sync"

	"github.com/wonny/stockwatch/internal/contracts"
)

// RunRecorder keeps run summaries in start order
type RunRecorder struct {
	mu   sync.Mutex
	runs []contracts.RunSummary
}

// NewRunRecorder creates an empty recorder
func NewRunRecorder() *RunRecorder {
	return &RunRecorder{}
}

// StartRun appends a copy of summary
func (r *RunRecorder) StartRun(ctx context.Context, summary *contracts.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append(r.runs, *summary)
	return nil
}

// FinishRun replaces the stored copy with the same run ID
func (r *RunRecorder) FinishRun(ctx context.Context, summary *contracts.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.runs {
		if r.runs[i].RunID == summary.RunID {
			r.runs[i] = *summary
			return nil
		}
	}
	return contracts.ErrNotFound
}

// LatestRun returns the most recently started run
func (r *RunRecorder) LatestRun(ctx context.Context) (*contracts.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.runs) == 0 {
		return nil, contracts.ErrNotFound
	}
	latest := r.runs[len(r.runs)-1]
	return &latest, nil
}

// Runs returns a copy of every recorded run
func (r *RunRecorder) Runs() []contracts.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]contracts.RunSummary, len(r.runs))
	copy(out, r.runs)
	return out
}
