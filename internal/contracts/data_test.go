package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchlistEntry_JSON(t *testing.T) {
	entry := WatchlistEntry{
		Ticker:                  "XYZ",
		DateAdded:               time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Reason:                  ReasonScreening,
		CurrentPriceAtAdmission: 72,
		Week52High:              100,
		PercentBelowHigh:        0.28,
		Metrics:                 WatchlistMetrics{VolumeIncreaseRatio: 1.67, TrendMovingAverage: 60},
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "screening", decoded["reason"])
	assert.Equal(t, 0.28, decoded["percent_below_high"])

	metrics, ok := decoded["metrics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1.67, metrics["volume_increase_ratio"])
	assert.Equal(t, float64(60), metrics["trend_moving_average"])
}

func TestRunSummary_JSON(t *testing.T) {
	started := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	summary := NewRunSummary("run-1", started, started)
	summary.Skipped["drawdown"] = 3
	summary.Skipped["insufficient_data"] = 2

	assert.Equal(t, 5, summary.SkippedCount())

	data, err := json.Marshal(summary)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "running", decoded["status"])
	assert.Equal(t, []interface{}{}, decoded["admitted"], "empty slices must encode as []")
	assert.NotContains(t, decoded, "finished_at")
	assert.NotContains(t, decoded, "error")
}
