package contracts

import "time"

// Metric is a derived value that may be unavailable (insufficient history).
// Unavailable is never the same thing as zero.
type Metric struct {
	Value float64
	Valid bool
}

// Available wraps a computed value
func Available(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// Unavailable is the zero Metric
var Unavailable = Metric{}

// TickerSignals is the per-run derived view of one ticker. It is never persisted.
// CurrentVolume is meaningful only when CurrentClose.Valid.
type TickerSignals struct {
	Ticker        string
	AsOf          time.Time
	CurrentClose  Metric
	CurrentVolume int64
	Week52High    Metric
	AvgVolume30d  Metric
	TrendMA       Metric
}

// HasPriceSignals reports whether the close, 52-week high and average volume were computed
func (s TickerSignals) HasPriceSignals() bool {
	return s.CurrentClose.Valid &&
		s.Week52High.Valid &&
		s.AvgVolume30d.Valid
}

// Complete reports whether every signal the admission rule needs was computed
func (s TickerSignals) Complete() bool {
	return s.HasPriceSignals() && s.TrendMA.Valid
}
