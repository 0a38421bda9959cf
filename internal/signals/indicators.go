package signals

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/stockwatch/internal/contracts"
)

// ErrMalformedRecord reports a stored price row that cannot be used for arithmetic
var ErrMalformedRecord = errors.New("malformed price record")

// validate rejects rows with non-finite or negative fields
func validate(r contracts.PriceRecord) error {
	for _, v := range []float64{r.Open, r.High, r.Low, r.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s %s", ErrMalformedRecord, r.Ticker, r.Date.Format("2006-01-02"))
		}
	}
	if r.Volume < 0 {
		return fmt.Errorf("%w: %s %s negative volume", ErrMalformedRecord, r.Ticker, r.Date.Format("2006-01-02"))
	}
	return nil
}

func validateAll(records []contracts.PriceRecord) error {
	for _, r := range records {
		if err := validate(r); err != nil {
			return err
		}
	}
	return nil
}

// MaxHigh returns the highest High across records
func MaxHigh(records []contracts.PriceRecord) contracts.Metric {
	if len(records) == 0 {
		return contracts.Unavailable
	}

	high := records[0].High
	for _, r := range records[1:] {
		if r.High > high {
			high = r.High
		}
	}
	return contracts.Available(high)
}

// AverageVolume is the mean Volume of the first n records.
// Fewer than n records is unavailable, never a partial average.
func AverageVolume(records []contracts.PriceRecord, n int) contracts.Metric {
	if n <= 0 || len(records) < n {
		return contracts.Unavailable
	}

	var sum float64
	for _, r := range records[:n] {
		sum += float64(r.Volume)
	}
	return contracts.Available(sum / float64(n))
}

// MovingAverage is the mean Close of the first n records (newest first).
// Fewer than n records is unavailable.
func MovingAverage(records []contracts.PriceRecord, n int) contracts.Metric {
	if n <= 0 || len(records) < n {
		return contracts.Unavailable
	}

	var sum float64
	for _, r := range records[:n] {
		sum += r.Close
	}
	return contracts.Available(sum / float64(n))
}
