package indicators

import (
	"fmt"

	enginerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/pkg/types"
)

// Stochastic calculates the stochastic oscillator (%K fast line, %D slow
// line). Calculators are pure: the same bars always produce the same
// series, and independent inputs are safe to evaluate concurrently.
type Stochastic struct {
	kPeriod int
	dPeriod int
}

// StochasticSeries holds %K/%D values aligned to the input bars. Entries
// before the ValidFrom index are undefined (lookback not yet satisfied).
type StochasticSeries struct {
	K          []float64
	D          []float64
	KValidFrom int
	DValidFrom int
}

// NewStochastic creates a stochastic calculator with the given %K lookback
// and %D smoothing periods.
func NewStochastic(kPeriod, dPeriod int) *Stochastic {
	return &Stochastic{kPeriod: kPeriod, dPeriod: dPeriod}
}

// RequiredPeriods returns the minimum number of bars for a defined %D value.
func (s *Stochastic) RequiredPeriods() int {
	return s.kPeriod + s.dPeriod - 1
}

// Calculate computes the %K/%D series over the bar sequence.
//
// %K = 100 × (close − lowestLow) / (highestHigh − lowestLow) over kPeriod.
// A flat window (highestHigh == lowestLow) yields the neutral 50 rather
// than an undefined value, so NaN never propagates downstream.
func (s *Stochastic) Calculate(bars []types.OHLCV) (*StochasticSeries, error) {
	if len(bars) < s.kPeriod {
		return nil, enginerrors.Wrap(
			fmt.Errorf("stochastic needs %d bars, got %d: %w", s.kPeriod, len(bars), enginerrors.ErrInsufficientData),
			enginerrors.CategoryInsufficientData, "indicators", "stochastic")
	}

	series := &StochasticSeries{
		K:          make([]float64, len(bars)),
		D:          make([]float64, len(bars)),
		KValidFrom: s.kPeriod - 1,
		DValidFrom: s.kPeriod + s.dPeriod - 2,
	}

	for i := s.kPeriod - 1; i < len(bars); i++ {
		highest := bars[i-s.kPeriod+1].High
		lowest := bars[i-s.kPeriod+1].Low
		for j := i - s.kPeriod + 2; j <= i; j++ {
			if bars[j].High > highest {
				highest = bars[j].High
			}
			if bars[j].Low < lowest {
				lowest = bars[j].Low
			}
		}
		if highest == lowest {
			series.K[i] = 50
		} else {
			series.K[i] = 100 * (bars[i].Close - lowest) / (highest - lowest)
		}
	}

	for i := series.DValidFrom; i < len(bars); i++ {
		sum := 0.0
		for j := i - s.dPeriod + 1; j <= i; j++ {
			sum += series.K[j]
		}
		series.D[i] = sum / float64(s.dPeriod)
	}

	return series, nil
}

// Latest returns %K/%D at the last bar.
func (ss *StochasticSeries) Latest() (k, d float64, err error) {
	return ss.At(len(ss.K) - 1)
}

// Previous returns %K/%D at the second to last bar, used for crossing
// detection against Latest.
func (ss *StochasticSeries) Previous() (k, d float64, err error) {
	return ss.At(len(ss.K) - 2)
}

// At returns %K/%D at a bar index, failing when the lookback is not
// satisfied at that index.
func (ss *StochasticSeries) At(i int) (k, d float64, err error) {
	if i < ss.DValidFrom || i >= len(ss.K) {
		return 0, 0, enginerrors.ErrInsufficientData
	}
	return ss.K[i], ss.D[i], nil
}
