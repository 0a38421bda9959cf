package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickerSignals_Complete(t *testing.T) {
	full := TickerSignals{
		Ticker:        "XYZ",
		CurrentClose:  Available(72),
		CurrentVolume: 2_000_000,
		Week52High:    Available(100),
		AvgVolume30d:  Available(1_200_000),
		TrendMA:       Available(60),
	}

	tests := []struct {
		name      string
		mutate    func(s *TickerSignals)
		wantPrice bool
		want      bool
	}{
		{"all available", func(s *TickerSignals) {}, true, true},
		{"no current close", func(s *TickerSignals) { s.CurrentClose = Unavailable }, false, false},
		{"no 52 week high", func(s *TickerSignals) { s.Week52High = Unavailable }, false, false},
		{"no average volume", func(s *TickerSignals) { s.AvgVolume30d = Unavailable }, false, false},
		{"no trend", func(s *TickerSignals) { s.TrendMA = Unavailable }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := full
			tt.mutate(&s)
			assert.Equal(t, tt.wantPrice, s.HasPriceSignals())
			assert.Equal(t, tt.want, s.Complete())
		})
	}
}

func TestMetric_ZeroIsUnavailable(t *testing.T) {
	assert.False(t, Unavailable.Valid)
	assert.True(t, Available(0).Valid, "a computed zero is still available")
}
