package indicators

import (
	"fmt"
	"math"

	enginerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/pkg/types"
)

// CCI calculates the Commodity Channel Index.
type CCI struct {
	period int
}

// CCISeries holds CCI values aligned to the input bars. Entries before
// ValidFrom are undefined.
type CCISeries struct {
	Values    []float64
	ValidFrom int
}

// NewCCI creates a CCI calculator with the given period.
func NewCCI(period int) *CCI {
	return &CCI{period: period}
}

// RequiredPeriods returns the minimum number of bars for a defined value.
func (c *CCI) RequiredPeriods() int {
	return c.period
}

// Calculate computes the CCI series.
//
// CCI = (tp − SMA(tp)) / (0.015 × meanAbsoluteDeviation(tp)) with
// tp = (high+low+close)/3. A zero deviation window yields 0 so a perfectly
// flat market reads as neutral instead of dividing by zero.
func (c *CCI) Calculate(bars []types.OHLCV) (*CCISeries, error) {
	if len(bars) < c.period {
		return nil, enginerrors.Wrap(
			fmt.Errorf("cci needs %d bars, got %d: %w", c.period, len(bars), enginerrors.ErrInsufficientData),
			enginerrors.CategoryInsufficientData, "indicators", "cci")
	}

	tp := make([]float64, len(bars))
	for i, bar := range bars {
		tp[i] = (bar.High + bar.Low + bar.Close) / 3
	}

	series := &CCISeries{
		Values:    make([]float64, len(bars)),
		ValidFrom: c.period - 1,
	}

	for i := c.period - 1; i < len(bars); i++ {
		window := tp[i-c.period+1 : i+1]

		sum := 0.0
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(c.period)

		dev := 0.0
		for _, v := range window {
			dev += math.Abs(v - mean)
		}
		mad := dev / float64(c.period)

		if mad == 0 {
			series.Values[i] = 0
		} else {
			series.Values[i] = (tp[i] - mean) / (0.015 * mad)
		}
	}

	return series, nil
}

// Latest returns the CCI value at the last bar.
func (cs *CCISeries) Latest() (float64, error) {
	return cs.At(len(cs.Values) - 1)
}

// Previous returns the CCI value at the second to last bar.
func (cs *CCISeries) Previous() (float64, error) {
	return cs.At(len(cs.Values) - 2)
}

// At returns the CCI value at a bar index.
func (cs *CCISeries) At(i int) (float64, error) {
	if i < cs.ValidFrom || i >= len(cs.Values) {
		return 0, enginerrors.ErrInsufficientData
	}
	return cs.Values[i], nil
}
