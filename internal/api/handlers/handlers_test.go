package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/internal/store/memory"
	"github.com/wonny/stockwatch/pkg/logger"
	"github.com/wonny/stockwatch/pkg/redis"
)

type fakeTrigger struct {
	summary *contracts.RunSummary
	ran     bool
	err     error
}

func (f *fakeTrigger) RunOnce(ctx context.Context) (*contracts.RunSummary, bool, error) {
	return f.summary, f.ran, f.err
}

func disabledCache() *redis.Cache {
	return redis.NewCache(redis.Disabled(), "screener")
}

func newScreeningHandler(trigger Trigger, runs contracts.RunRecorder) (*ScreeningHandler, chan error) {
	h := NewScreeningHandler(trigger, runs, disabledCache(), redis.NewRateLimiter(redis.Disabled(), "screener"), logger.Nop())
	done := make(chan error, 1)
	h.done = done
	return h, done
}

func TestScreeningHandler_Run(t *testing.T) {
	at := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)
	trigger := &fakeTrigger{summary: contracts.NewRunSummary("run-1", at, at), ran: true}
	h, done := newScreeningHandler(trigger, memory.NewRunRecorder())

	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodPost, "/api/screening/run", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp TriggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp.Status)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("background run did not finish")
	}
}

func TestScreeningHandler_RunFailureIsLogged(t *testing.T) {
	h, done := newScreeningHandler(&fakeTrigger{err: errors.New("boom")}, memory.NewRunRecorder())

	rec := httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodPost, "/api/screening/run", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case err := <-done:
		assert.EqualError(t, err, "boom")
	case <-time.After(5 * time.Second):
		t.Fatal("background run did not finish")
	}
}

func TestScreeningHandler_Latest(t *testing.T) {
	runs := memory.NewRunRecorder()
	h, _ := newScreeningHandler(&fakeTrigger{}, runs)

	rec := httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/screening/runs/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	at := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)
	summary := contracts.NewRunSummary("run-1", at, at)
	summary.Status = contracts.RunStatusCompleted
	summary.Admitted = []string{"XYZ"}
	require.NoError(t, runs.StartRun(context.Background(), summary))

	rec = httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/screening/runs/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got contracts.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, []string{"XYZ"}, got.Admitted)
}

func newWatchlistHandler(store contracts.WatchlistManager) *WatchlistHandler {
	h := NewWatchlistHandler(store, disabledCache(), time.UTC, logger.Nop())
	h.now = func() time.Time { return time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC) }
	return h
}

func TestWatchlistHandler_Add(t *testing.T) {
	store := memory.NewWatchlistStore()
	h := newWatchlistHandler(store)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"creates", `{"ticker":"aapl"}`, http.StatusCreated},
		{"existing entry is returned", `{"ticker":"AAPL","reason":"again"}`, http.StatusOK},
		{"invalid ticker", `{"ticker":"not a ticker"}`, http.StatusBadRequest},
		{"empty ticker", `{"ticker":""}`, http.StatusBadRequest},
		{"malformed body", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Add(rec, httptest.NewRequest(http.MethodPost, "/api/watchlist", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	entry, err := store.FindLatestByTicker(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, ReasonManual, entry.Reason)
	assert.Equal(t, 1, store.Inserts())
}

func TestWatchlistHandler_List(t *testing.T) {
	store := memory.NewWatchlistStore()
	store.Put(contracts.WatchlistEntry{
		Ticker:           "XYZ",
		DateAdded:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Reason:           contracts.ReasonScreening,
		PercentBelowHigh: 0.28,
	})
	h := newWatchlistHandler(store)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["count"])

	entries := body["entries"].([]interface{})
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "XYZ", first["ticker"])
	assert.Equal(t, "2024-03-15", first["date_added"])
	assert.Equal(t, "28.00%", first["percent_below_high_text"])
	assert.Equal(t, 0.28, first["percent_below_high"])
}

func TestWatchlistHandler_Remove(t *testing.T) {
	store := memory.NewWatchlistStore()
	store.Put(contracts.WatchlistEntry{Ticker: "XYZ", DateAdded: time.Now()})
	h := newWatchlistHandler(store)

	remove := func(ticker string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/watchlist/"+ticker, nil)
		req = mux.SetURLVars(req, map[string]string{"ticker": ticker})
		rec := httptest.NewRecorder()
		h.Remove(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, remove("xyz"))
	assert.Equal(t, http.StatusNotFound, remove("XYZ"))
	assert.Equal(t, http.StatusBadRequest, remove("$$$"))
}

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"aapl", "AAPL", true},
		{" brk.b ", "BRK.B", true},
		{"RDS-A", "RDS-A", true},
		{"1ABC", "1ABC", false},
		{"TOOLONGTICKER", "TOOLONGTICKER", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := normalizeTicker(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
