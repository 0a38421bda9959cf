package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/pkg/logger"
)

const (
	// Week52LookbackDays is the calendar window for the 52-week high
	Week52LookbackDays = 365

	// VolumeWindow is the number of most recent records averaged for volume
	VolumeWindow = 30

	// DefaultTrendPeriod is the long-horizon moving-average window, in records
	DefaultTrendPeriod = 1080
)

// Calculator derives TickerSignals for one ticker at a time.
// It holds no per-ticker state, so one instance serves every worker of a run.
// ⭐ SSOT: 시그널 계산은 여기서만
type Calculator struct {
	prices contracts.PriceStore
	logger *logger.Logger
}

// NewCalculator creates a new signal calculator
func NewCalculator(prices contracts.PriceStore, log *logger.Logger) *Calculator {
	return &Calculator{
		prices: prices,
		logger: log.Module("signals"),
	}
}

// Calculate computes every signal for ticker at asOf.
// Missing history yields unavailable metrics; only store faults and malformed rows return an error.
func (c *Calculator) Calculate(ctx context.Context, ticker string, asOf time.Time, trendPeriod int) (contracts.TickerSignals, error) {
	sig := contracts.TickerSignals{Ticker: ticker, AsOf: asOf}

	current, err := c.prices.LatestRecord(ctx, ticker, asOf)
	if err != nil {
		return sig, fmt.Errorf("latest record: %w", err)
	}
	if current == nil {
		c.logger.WithField("ticker", ticker).Debug("No price record at or before evaluation time")
		return sig, nil
	}
	if err := validate(*current); err != nil {
		return sig, err
	}
	sig.CurrentClose = contracts.Available(current.Close)
	sig.CurrentVolume = current.Volume

	if sig.Week52High, err = c.Week52High(ctx, ticker, asOf); err != nil {
		return sig, err
	}

	if sig.AvgVolume30d, err = c.AverageVolume(ctx, ticker, asOf, VolumeWindow); err != nil {
		return sig, err
	}

	if sig.TrendMA, err = c.MovingAverage(ctx, ticker, asOf, trendPeriod); err != nil {
		return sig, err
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":       ticker,
		"close":        sig.CurrentClose.Value,
		"volume":       sig.CurrentVolume,
		"week52_high":  sig.Week52High,
		"avg_volume":   sig.AvgVolume30d,
		"trend_ma":     sig.TrendMA,
		"trend_period": trendPeriod,
	}).Debug("Calculated signals")

	return sig, nil
}

// Week52High is the maximum High over records dated within the last 365 calendar days of asOf
func (c *Calculator) Week52High(ctx context.Context, ticker string, asOf time.Time) (contracts.Metric, error) {
	to := contracts.DateOf(asOf)
	from := to.AddDate(0, 0, -Week52LookbackDays)

	records, err := c.prices.RecordsInWindow(ctx, ticker, from, to)
	if err != nil {
		return contracts.Unavailable, fmt.Errorf("52 week window: %w", err)
	}
	if err := validateAll(records); err != nil {
		return contracts.Unavailable, err
	}

	return MaxHigh(records), nil
}

// AverageVolume averages Volume over the n most recent records at or before asOf
func (c *Calculator) AverageVolume(ctx context.Context, ticker string, asOf time.Time, n int) (contracts.Metric, error) {
	records, err := c.recent(ctx, ticker, asOf, n)
	if err != nil {
		return contracts.Unavailable, fmt.Errorf("average volume: %w", err)
	}
	return AverageVolume(records, n), nil
}

// MovingAverage averages Close over the n most recent records at or before asOf
func (c *Calculator) MovingAverage(ctx context.Context, ticker string, asOf time.Time, n int) (contracts.Metric, error) {
	records, err := c.recent(ctx, ticker, asOf, n)
	if err != nil {
		return contracts.Unavailable, fmt.Errorf("moving average %d: %w", n, err)
	}
	return MovingAverage(records, n), nil
}

func (c *Calculator) recent(ctx context.Context, ticker string, asOf time.Time, n int) ([]contracts.PriceRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	records, err := c.prices.MostRecentN(ctx, ticker, asOf, n)
	if err != nil {
		return nil, err
	}
	if err := validateAll(records); err != nil {
		return nil, err
	}
	return records, nil
}
