// Package memory provides in-process implementations of the contracts stores.
// They back the unit tests of the calculator, the screening job and the HTTP handlers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/stockwatch/internal/contracts"
)

// PriceStore keeps daily records per ticker, sorted newest first
type PriceStore struct {
	mu       sync.RWMutex
	records  map[string][]contracts.PriceRecord
	failures map[string]error
	listErr  error
}

// NewPriceStore creates an empty price store
func NewPriceStore() *PriceStore {
	return &PriceStore{
		records:  make(map[string][]contracts.PriceRecord),
		failures: make(map[string]error),
	}
}

// Add inserts records. A record with an existing (ticker, date) replaces the old one.
func (s *PriceStore) Add(records ...contracts.PriceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		r.Date = contracts.DateOf(r.Date)
		existing := s.records[r.Ticker]

		replaced := false
		for i := range existing {
			if existing[i].Date.Equal(r.Date) {
				existing[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, r)
		}

		sort.Slice(existing, func(i, j int) bool {
			return existing[i].Date.After(existing[j].Date)
		})
		s.records[r.Ticker] = existing
	}
}

// FailTicker makes every read for ticker return err
func (s *PriceStore) FailTicker(ticker string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[ticker] = err
}

// FailList makes ListDistinctTickers return err
func (s *PriceStore) FailList(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// ListDistinctTickers returns tickers in lexical order
func (s *PriceStore) ListDistinctTickers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listErr != nil {
		return nil, s.listErr
	}

	tickers := make([]string, 0, len(s.records))
	for t := range s.records {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	return tickers, nil
}

// LatestRecord returns the newest record at or before asOf
func (s *PriceStore) LatestRecord(ctx context.Context, ticker string, asOf time.Time) (*contracts.PriceRecord, error) {
	recs, err := s.MostRecentN(ctx, ticker, asOf, 1)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

// RecordsInWindow returns records with from <= date <= to, newest first
func (s *PriceStore) RecordsInWindow(ctx context.Context, ticker string, from, to time.Time) ([]contracts.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failures[ticker]; err != nil {
		return nil, err
	}

	from, to = contracts.DateOf(from), contracts.DateOf(to)

	var out []contracts.PriceRecord
	for _, r := range s.records[ticker] {
		if !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

// MostRecentN returns up to n records at or before asOf, newest first
func (s *PriceStore) MostRecentN(ctx context.Context, ticker string, asOf time.Time, n int) ([]contracts.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failures[ticker]; err != nil {
		return nil, err
	}

	asOf = contracts.DateOf(asOf)

	out := make([]contracts.PriceRecord, 0, n)
	for _, r := range s.records[ticker] {
		if len(out) == n {
			break
		}
		if !r.Date.After(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Bar is the varying part of a generated daily record
type Bar struct {
	Close  float64
	High   float64
	Volume int64
}

// SeedDaily adds n consecutive calendar-day records for ticker ending at last.
// gen receives the age of the record in days (0 = last).
func (s *PriceStore) SeedDaily(ticker string, last time.Time, n int, gen func(daysAgo int) Bar) {
	records := make([]contracts.PriceRecord, 0, n)
	for age := 0; age < n; age++ {
		bar := gen(age)
		high := bar.High
		if high == 0 {
			high = bar.Close
		}
		records = append(records, contracts.PriceRecord{
			Ticker: ticker,
			Date:   last.AddDate(0, 0, -age),
			Open:   bar.Close,
			High:   high,
			Low:    bar.Close,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}
	s.Add(records...)
}
