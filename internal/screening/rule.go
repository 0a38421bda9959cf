package screening

import (
	"time"

	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/internal/signals"
)

// Thresholds is the fixed admission rule. It is a value type and never mutated after construction;
// alternate sets exist only for tests.
type Thresholds struct {
	DaysThreshold           int     // cooldown days between admissions of one ticker
	PriceDropThreshold      float64 // minimum drawdown from the 52-week high
	RecoveryThreshold       float64 // close must be at least this fraction of the high
	VolumeIncreaseThreshold float64 // minimum current / 30-day average volume
	WatchListThreshold      float64 // close must stay below (1 - this) of the high
	TrendPeriod             int     // records in the long-term moving average
}

// DefaultThresholds returns the production admission rule
func DefaultThresholds() Thresholds {
	return Thresholds{
		DaysThreshold:           90,
		PriceDropThreshold:      0.25,
		RecoveryThreshold:       0.70,
		VolumeIncreaseThreshold: 1.5,
		WatchListThreshold:      0.25,
		TrendPeriod:             signals.DefaultTrendPeriod,
	}
}

// Skip reasons, in evaluation order
const (
	ReasonInsufficientData = "insufficient_data"
	ReasonRecentlyAdded    = "recently_added"
	ReasonDrawdown         = "drawdown"
	ReasonRecoveryFloor    = "recovery_floor"
	ReasonVolumeSurge      = "volume_surge"
	ReasonStillDiscounted  = "still_discounted"
	ReasonTrend            = "trend"
)

// Decision is the evaluator's verdict for one ticker.
// Entry is set only when Admit is true. On a skip, Reason is the first failed
// condition in evaluation order and Failed lists all of them.
type Decision struct {
	Admit  bool
	Reason string
	Failed []string
	Entry  contracts.WatchlistEntry
}

// Evaluator applies Thresholds to TickerSignals
// ⭐ SSOT: 편입 조건은 여기서만
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates a new evaluator
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Thresholds returns the rule in force
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate decides admit or skip. lastAdmission is nil when the ticker was never listed.
// today is the evaluation instant; the cooldown is counted in calendar days.
func (e *Evaluator) Evaluate(sig contracts.TickerSignals, lastAdmission *time.Time, today time.Time) Decision {
	if failed := e.failedConditions(sig, lastAdmission, today); len(failed) > 0 {
		return Decision{Reason: failed[0], Failed: failed}
	}

	high := sig.Week52High.Value
	closePrice := sig.CurrentClose.Value

	return Decision{
		Admit: true,
		Entry: contracts.WatchlistEntry{
			Ticker:                  sig.Ticker,
			DateAdded:               contracts.DateOf(today),
			Reason:                  contracts.ReasonScreening,
			CurrentPriceAtAdmission: closePrice,
			Week52High:              high,
			PercentBelowHigh:        (high - closePrice) / high,
			Metrics: contracts.WatchlistMetrics{
				VolumeIncreaseRatio: float64(sig.CurrentVolume) / sig.AvgVolume30d.Value,
				TrendMovingAverage:  sig.TrendMA.Value,
			},
			LastUpdated: today,
		},
	}
}

// failedConditions returns every condition that does not hold, in evaluation order
func (e *Evaluator) failedConditions(sig contracts.TickerSignals, lastAdmission *time.Time, today time.Time) []string {
	t := e.thresholds

	// 하나라도 계산 불가면 편입 불가
	if !sig.HasPriceSignals() {
		return []string{ReasonInsufficientData}
	}
	high := sig.Week52High.Value
	avgVolume := sig.AvgVolume30d.Value
	if high <= 0 || avgVolume <= 0 {
		return []string{ReasonInsufficientData}
	}
	closePrice := sig.CurrentClose.Value

	var failed []string

	// 1. Cooldown
	if lastAdmission != nil && contracts.DaysBetween(*lastAdmission, today) < t.DaysThreshold {
		failed = append(failed, ReasonRecentlyAdded)
	}

	// 2. Drawdown from the 52-week high
	if (high-closePrice)/high < t.PriceDropThreshold {
		failed = append(failed, ReasonDrawdown)
	}

	// 3. Recovery floor
	if closePrice < high*t.RecoveryThreshold {
		failed = append(failed, ReasonRecoveryFloor)
	}

	// 4. Volume surge
	if float64(sig.CurrentVolume)/avgVolume < t.VolumeIncreaseThreshold {
		failed = append(failed, ReasonVolumeSurge)
	}

	// 5. Still discounted
	if !(closePrice < high*(1-t.WatchListThreshold)) {
		failed = append(failed, ReasonStillDiscounted)
	}

	// 6. Above the long-term trend
	switch {
	case !sig.Complete():
		// price signals were checked above, so only the trend can be missing
		failed = append(failed, ReasonInsufficientData)
	case !(closePrice > sig.TrendMA.Value):
		failed = append(failed, ReasonTrend)
	}

	return failed
}
