package contracts

import (
	"context"
	"errors"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// ErrNotFound reports a lookup with no matching row
var ErrNotFound = errors.New("not found")

// PriceStore is the read side of the daily price table
type PriceStore interface {
	// ListDistinctTickers returns every ticker that has price history
	ListDistinctTickers(ctx context.Context) ([]string, error)

	// LatestRecord returns the newest record at or before asOf, or nil when none exists
	LatestRecord(ctx context.Context, ticker string, asOf time.Time) (*PriceRecord, error)

	// RecordsInWindow returns records with from <= date <= to, newest first
	RecordsInWindow(ctx context.Context, ticker string, from, to time.Time) ([]PriceRecord, error)

	// MostRecentN returns up to n records at or before asOf, newest first
	MostRecentN(ctx context.Context, ticker string, asOf time.Time, n int) ([]PriceRecord, error)
}

// WatchlistStore is what the screening job needs from the watchlist table
type WatchlistStore interface {
	// FindLatestByTicker returns the newest entry for ticker, or nil when none exists
	FindLatestByTicker(ctx context.Context, ticker string) (*WatchlistEntry, error)

	// FindOrCreate inserts defaults unless an entry for ticker exists, atomically on the ticker key.
	// An existing entry is returned untouched with created=false.
	FindOrCreate(ctx context.Context, ticker string, defaults WatchlistEntry) (entry *WatchlistEntry, created bool, err error)
}

// WatchlistManager adds the manual operations exposed over HTTP
type WatchlistManager interface {
	WatchlistStore
	List(ctx context.Context) ([]WatchlistEntry, error)
	Add(ctx context.Context, ticker, reason string, at time.Time) (*WatchlistEntry, bool, error)
	Remove(ctx context.Context, ticker string) (bool, error)
}

// RunRecorder persists screening run summaries
type RunRecorder interface {
	StartRun(ctx context.Context, summary *RunSummary) error
	FinishRun(ctx context.Context, summary *RunSummary) error

	// LatestRun returns ErrNotFound when no run was ever recorded
	LatestRun(ctx context.Context) (*RunSummary, error)
}
