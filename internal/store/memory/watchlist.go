package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/stockwatch/internal/contracts"
)

// WatchlistStore keeps one entry per ticker behind a mutex,
// so FindOrCreate is atomic on the ticker key like the table's unique constraint.
type WatchlistStore struct {
	mu       sync.Mutex
	entries  map[string]contracts.WatchlistEntry
	nextID   int64
	failures map[string]error
	inserts  int
}

// NewWatchlistStore creates an empty watchlist store
func NewWatchlistStore() *WatchlistStore {
	return &WatchlistStore{
		entries:  make(map[string]contracts.WatchlistEntry),
		failures: make(map[string]error),
	}
}

// FailTicker makes every call for ticker return err
func (s *WatchlistStore) FailTicker(ticker string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[ticker] = err
}

// Inserts counts rows ever created, including ones removed since
func (s *WatchlistStore) Inserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}

// Put seeds an entry directly, e.g. a prior admission
func (s *WatchlistStore) Put(entry contracts.WatchlistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry.ID = s.nextID
	entry.DateAdded = contracts.DateOf(entry.DateAdded)
	s.entries[entry.Ticker] = entry
}

// FindLatestByTicker returns the entry for ticker or nil
func (s *WatchlistStore) FindLatestByTicker(ctx context.Context, ticker string) (*contracts.WatchlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failures[ticker]; err != nil {
		return nil, err
	}

	entry, ok := s.entries[ticker]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// FindOrCreate inserts defaults unless ticker already has an entry
func (s *WatchlistStore) FindOrCreate(ctx context.Context, ticker string, defaults contracts.WatchlistEntry) (*contracts.WatchlistEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failures[ticker]; err != nil {
		return nil, false, err
	}

	if existing, ok := s.entries[ticker]; ok {
		return &existing, false, nil
	}

	s.nextID++
	s.inserts++
	defaults.ID = s.nextID
	defaults.Ticker = ticker
	defaults.DateAdded = contracts.DateOf(defaults.DateAdded)
	s.entries[ticker] = defaults

	return &defaults, true, nil
}

// List returns all entries, newest admission first
func (s *WatchlistStore) List(ctx context.Context) ([]contracts.WatchlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]contracts.WatchlistEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateAdded.Equal(out[j].DateAdded) {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].DateAdded.After(out[j].DateAdded)
	})

	return out, nil
}

// Add creates a manual entry unless the ticker is already listed
func (s *WatchlistStore) Add(ctx context.Context, ticker, reason string, at time.Time) (*contracts.WatchlistEntry, bool, error) {
	return s.FindOrCreate(ctx, ticker, contracts.WatchlistEntry{
		DateAdded:   at,
		Reason:      reason,
		LastUpdated: at,
	})
}

// Remove deletes the entry for ticker
func (s *WatchlistStore) Remove(ctx context.Context, ticker string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[ticker]; !ok {
		return false, nil
	}
	delete(s.entries, ticker)
	return true, nil
}
