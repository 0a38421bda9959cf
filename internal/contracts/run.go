package contracts

import "time"

// RunStatus is the lifecycle state of one screening pass
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// TickerFailure records a ticker that faulted during a pass
type TickerFailure struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// RunSummary is the outcome of one screening pass.
// Evaluated counts tickers that reached a decision; Total also includes failures.
type RunSummary struct {
	RunID      string          `json:"run_id"`
	AsOf       time.Time       `json:"as_of"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Status     RunStatus       `json:"status"`
	Total      int             `json:"total"`
	Evaluated  int             `json:"evaluated"`
	Admitted   []string        `json:"admitted"`
	Skipped    map[string]int  `json:"skipped"`
	Failed     []TickerFailure `json:"failed"`
	Error      string          `json:"error,omitempty"`
}

// NewRunSummary creates an empty running summary
func NewRunSummary(runID string, asOf, startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		AsOf:      asOf,
		StartedAt: startedAt,
		Status:    RunStatusRunning,
		Admitted:  []string{},
		Skipped:   make(map[string]int),
		Failed:    []TickerFailure{},
	}
}

// SkippedCount is the number of tickers that were evaluated but not admitted
func (s *RunSummary) SkippedCount() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}
