package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/quangtran88/signalbot/internal/config"
	"github.com/quangtran88/signalbot/internal/indicators"
	"github.com/quangtran88/signalbot/pkg/types"
)

// StochCCIEvaluator generates signals when the stochastic oscillator and
// CCI cross their thresholds on the same closed bar.
//
// Crossings are detected by comparing the value at bar t-1 against bar t,
// so a value parked beyond a threshold does not re-fire on every cycle.
type StochCCIEvaluator struct{}

// Name implements Evaluator.
func (e *StochCCIEvaluator) Name() string {
	return "stoch_cci"
}

// volumeWindow bounds the recent-volume average used for confirmation.
const volumeWindow = 20

// Evaluate implements Evaluator.
func (e *StochCCIEvaluator) Evaluate(symbol, timeframe string, bars []types.OHLCV, cfg *config.StrategyConfig) (*TradingSignal, error) {
	stoch := indicators.NewStochastic(cfg.StochKPeriod, cfg.StochDPeriod)
	cci := indicators.NewCCI(cfg.CCIPeriod)

	stochSeries, err := stoch.Calculate(bars)
	if err != nil {
		return nil, err
	}
	cciSeries, err := cci.Calculate(bars)
	if err != nil {
		return nil, err
	}

	kCur, dCur, err := stochSeries.Latest()
	if err != nil {
		return nil, err
	}
	kPrev, _, err := stochSeries.Previous()
	if err != nil {
		return nil, err
	}
	cciCur, err := cciSeries.Latest()
	if err != nil {
		return nil, err
	}
	cciPrev, err := cciSeries.Previous()
	if err != nil {
		return nil, err
	}

	stochBuy := kPrev <= cfg.StochOversold && kCur > cfg.StochOversold &&
		kCur < cfg.StochOverbought && dCur < cfg.StochOverbought
	cciBuy := cciPrev < cfg.CCIOversold && cciCur >= cfg.CCIOversold

	stochSell := kPrev >= cfg.StochOverbought && kCur < cfg.StochOverbought &&
		kCur > cfg.StochOversold && dCur > cfg.StochOversold
	cciSell := cciPrev > cfg.CCIOverbought && cciCur <= cfg.CCIOverbought

	var direction Direction
	switch {
	case stochBuy && cciBuy:
		direction = DirectionBuy
	case stochSell && cciSell:
		direction = DirectionSell
	default:
		return nil, nil
	}

	last := bars[len(bars)-1]
	volRatio := volumeRatio(bars)
	confidence := e.confidence(direction, kCur, dCur, cciPrev, volRatio, cfg)

	rationale := []Condition{
		{
			Name:   "stoch_cross",
			Detail: fmt.Sprintf("%%K crossed %s %.1f (%.1f -> %.1f, %%D %.1f)", crossWord(direction), stochThreshold(direction, cfg), kPrev, kCur, dCur),
			Value:  kCur,
		},
		{
			Name:   "cci_cross",
			Detail: fmt.Sprintf("CCI crossed %s %.1f (%.1f -> %.1f)", crossWord(direction), cciThreshold(direction, cfg), cciPrev, cciCur),
			Value:  cciCur,
		},
		{
			Name:   "volume_ratio",
			Detail: fmt.Sprintf("volume at %.2fx its %d-bar average", volRatio, volumeWindow),
			Value:  volRatio,
		},
	}

	signal := &TradingSignal{
		ID:                   uuid.NewString(),
		Symbol:               symbol,
		Timeframe:            timeframe,
		StrategyName:         cfg.Name,
		Direction:            direction,
		Confidence:           confidence,
		Rationale:            rationale,
		Price:                last.Close,
		BarTime:              last.Timestamp,
		GeneratedAt:          time.Now().UTC(),
		ProposedTrailingStop: cfg.TrailingStopPercent,
	}
	if direction == DirectionBuy {
		signal.ProposedStopLoss = last.Close * (1 - cfg.StopLossPercent/100)
	}
	return signal, nil
}

// confidence blends oscillator displacement, CCI depth beyond its
// threshold, and volume confirmation with the configured weights.
func (e *StochCCIEvaluator) confidence(direction Direction, k, d, cciPrev, volRatio float64, cfg *config.StrategyConfig) float64 {
	osc := clamp01(math.Abs((k+d)/2-50) / 50)

	var depth float64
	if direction == DirectionBuy {
		depth = cfg.CCIOversold - cciPrev
	} else {
		depth = cciPrev - cfg.CCIOverbought
	}
	cciScore := clamp01(depth / 100)

	volScore := clamp01(volRatio / 2)

	w := cfg.ConfidenceWeights
	total := w.Oscillator + w.CCI + w.Volume
	return clamp01((w.Oscillator*osc + w.CCI*cciScore + w.Volume*volScore) / total)
}

// volumeRatio compares the signal bar's volume against the average of the
// bars before it. A zero average reads as neutral 1.0.
func volumeRatio(bars []types.OHLCV) float64 {
	n := len(bars)
	window := volumeWindow
	if n-1 < window {
		window = n - 1
	}
	if window <= 0 {
		return 1
	}
	sum := 0.0
	for _, bar := range bars[n-1-window : n-1] {
		sum += bar.Volume
	}
	avg := sum / float64(window)
	if avg == 0 {
		return 1
	}
	return bars[n-1].Volume / avg
}

func stochThreshold(direction Direction, cfg *config.StrategyConfig) float64 {
	if direction == DirectionBuy {
		return cfg.StochOversold
	}
	return cfg.StochOverbought
}

func cciThreshold(direction Direction, cfg *config.StrategyConfig) float64 {
	if direction == DirectionBuy {
		return cfg.CCIOversold
	}
	return cfg.CCIOverbought
}

func crossWord(direction Direction) string {
	if direction == DirectionBuy {
		return "above"
	}
	return "below"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
