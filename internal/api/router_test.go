package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockwatch/internal/api/handlers"
	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/internal/store/memory"
	"github.com/wonny/stockwatch/pkg/logger"
	"github.com/wonny/stockwatch/pkg/redis"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type noopTrigger struct{}

func (noopTrigger) RunOnce(ctx context.Context) (*contracts.RunSummary, bool, error) {
	return nil, false, nil
}

func newTestRouter(db HealthChecker, metrics http.Handler) http.Handler {
	client := redis.Disabled()
	cache := redis.NewCache(client, "screener")
	log := logger.Nop()

	return NewRouter(Routes{
		Screening: handlers.NewScreeningHandler(noopTrigger{}, memory.NewRunRecorder(), cache, redis.NewRateLimiter(client, "screener"), log),
		Watchlist: handlers.NewWatchlistHandler(memory.NewWatchlistStore(), cache, time.UTC, log),
		Database:  db,
		Metrics:   metrics,
	}, log)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		db     HealthChecker
		status int
		want   string
	}{
		{"no database", nil, http.StatusOK, "ok"},
		{"database up", pingFunc(func(context.Context) error { return nil }), http.StatusOK, "ok"},
		{"database down", pingFunc(func(context.Context) error { return errors.New("refused") }), http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter(tt.db, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["status"])
		})
	}
}

func TestRoutes(t *testing.T) {
	router := newTestRouter(nil, nil)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/watchlist", http.StatusOK},
		{http.MethodGet, "/api/screening/runs/latest", http.StatusNotFound},
		{http.MethodDelete, "/api/watchlist/XYZ", http.StatusNotFound},
		{http.MethodPut, "/api/watchlist", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/screening/run", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/watchlist/XYZ", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	router := newTestRouter(nil, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_total 1")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
