package contracts

import "time"

// PriceRecord is one trading day for one ticker, unique by (Ticker, Date).
// Written by the ingestion job, read-only to the screening engine.
type PriceRecord struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// ReasonScreening marks entries admitted by the screening engine rather than by hand
const ReasonScreening = "screening"

// WatchlistMetrics holds the signals that justified an admission
type WatchlistMetrics struct {
	VolumeIncreaseRatio float64 `json:"volume_increase_ratio"`
	TrendMovingAverage  float64 `json:"trend_moving_average"`
}

// WatchlistEntry is an admitted ticker. At most one entry exists per ticker.
// PercentBelowHigh is a ratio (0.25 = 25%).
type WatchlistEntry struct {
	ID                      int64            `json:"id"`
	Ticker                  string           `json:"ticker"`
	DateAdded               time.Time        `json:"date_added"`
	Reason                  string           `json:"reason"`
	CurrentPriceAtAdmission float64          `json:"current_price_at_admission"`
	Week52High              float64          `json:"week52_high"`
	PercentBelowHigh        float64          `json:"percent_below_high"`
	Metrics                 WatchlistMetrics `json:"metrics"`
	LastUpdated             time.Time        `json:"last_updated"`
}
