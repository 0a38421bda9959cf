package screening

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/stockwatch/internal/contracts"
)

// Metrics holds the Prometheus collectors of the screening job.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Runs        *prometheus.CounterVec
	Tickers     *prometheus.CounterVec
	RunDuration prometheus.Histogram
	LastSuccess prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchlist_screening_runs_total",
				Help: "Screening passes by final status",
			},
			[]string{"status"},
		),
		Tickers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchlist_screening_tickers_total",
				Help: "Tickers processed by terminal state and skip reason",
			},
			[]string{"state", "reason"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "watchlist_screening_run_duration_seconds",
				Help:    "Wall time of one screening pass",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
		),
		LastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "watchlist_screening_last_success_timestamp_seconds",
				Help: "Unix time of the last completed pass",
			},
		),
	}

	reg.MustRegister(m.Runs, m.Tickers, m.RunDuration, m.LastSuccess)
	return m
}

func (m *Metrics) observeRun(status contracts.RunStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(string(status)).Inc()
	m.RunDuration.Observe(d.Seconds())
	if status == contracts.RunStatusCompleted {
		m.LastSuccess.SetToCurrentTime()
	}
}

func (m *Metrics) observeTicker(o tickerOutcome) {
	if m == nil {
		return
	}
	reason := o.Reason
	if o.State == StateFailed {
		// 에러 메시지는 라벨 카디널리티를 폭발시킴
		reason = ""
	}
	m.Tickers.WithLabelValues(o.State, reason).Inc()
}
