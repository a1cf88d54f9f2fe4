package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	enginerrors "github.com/quangtran88/signalbot/internal/errors"
)

// AutomationMode decides what happens to an approved signal.
type AutomationMode string

const (
	ModeAuto      AutomationMode = "auto"
	ModeAlertOnly AutomationMode = "alert_only"
	ModeSemiAuto  AutomationMode = "semi_auto"
)

// ConfidenceWeights is the tunable weighting surface for the confidence
// score. Weights are normalized at use, so they only need to be relative.
type ConfidenceWeights struct {
	Oscillator float64 `json:"oscillator" validate:"gte=0"`
	CCI        float64 `json:"cci" validate:"gte=0"`
	Volume     float64 `json:"volume" validate:"gte=0"`
}

// DefaultConfidenceWeights favors the oscillators over volume confirmation.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{Oscillator: 0.5, CCI: 0.3, Volume: 0.2}
}

// StrategyConfig holds the parameters for one named strategy. Configs are
// owned by the Store and referenced by name; components never copy them.
type StrategyConfig struct {
	Name      string `json:"name" validate:"required"`
	Evaluator string `json:"evaluator,omitempty"`

	AutomationMode AutomationMode `json:"automation_mode" validate:"required,oneof=auto alert_only semi_auto"`

	CapitalAllocationPercent float64 `json:"capital_allocation_percent" validate:"gt=0,lte=100"`
	MaxPositions             int     `json:"max_positions" validate:"gte=1"`

	StochKPeriod    int     `json:"stoch_k_period" validate:"gte=1"`
	StochDPeriod    int     `json:"stoch_d_period" validate:"gte=1"`
	StochOverbought float64 `json:"stoch_overbought" validate:"gte=0,lte=100"`
	StochOversold   float64 `json:"stoch_oversold" validate:"gte=0,lte=100"`

	CCIPeriod     int     `json:"cci_period" validate:"gte=1"`
	CCIOverbought float64 `json:"cci_overbought"`
	CCIOversold   float64 `json:"cci_oversold"`

	StopLossPercent     float64 `json:"stop_loss_percent" validate:"gte=0"`
	TrailingStopPercent float64 `json:"trailing_stop_percent" validate:"gte=0"`

	Timeframes                []string `json:"timeframes" validate:"min=1,dive,required"`
	RequireTimeframeAgreement bool     `json:"require_timeframe_agreement"`

	EnableNewsFilter  bool    `json:"enable_news_filter"`
	MinSentimentScore float64 `json:"min_sentiment_score" validate:"gte=-1,lte=1"`

	ConfidenceWeights ConfidenceWeights `json:"confidence_weights"`

	Active bool `json:"active"`
}

// DefaultStrategyConfig mirrors the stock 14/3 stochastic and 20-period CCI
// setup with alert-only automation, the safest mode for a new strategy.
func DefaultStrategyConfig(name string) *StrategyConfig {
	return &StrategyConfig{
		Name:                     name,
		Evaluator:                "stoch_cci",
		AutomationMode:           ModeAlertOnly,
		CapitalAllocationPercent: 10,
		MaxPositions:             5,
		StochKPeriod:             14,
		StochDPeriod:             3,
		StochOverbought:          80,
		StochOversold:            20,
		CCIPeriod:                20,
		CCIOverbought:            100,
		CCIOversold:              -100,
		StopLossPercent:          2,
		TrailingStopPercent:      1.5,
		Timeframes:               []string{"1D"},
		MinSentimentScore:        -0.1,
		ConfidenceWeights:        DefaultConfidenceWeights(),
		Active:                   true,
	}
}

var validate = validator.New()

// Validate rejects malformed configs at creation time so they never reach
// evaluation. Cross-field oscillator invariants are checked explicitly since
// they cannot be expressed as struct tags.
func (c *StrategyConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return enginerrors.Wrap(err, enginerrors.CategoryConfig, "config", "validate")
	}
	if c.StochOversold >= c.StochOverbought {
		return enginerrors.New(enginerrors.CategoryConfig, "config", "validate",
			fmt.Sprintf("stoch_oversold (%.1f) must be below stoch_overbought (%.1f)", c.StochOversold, c.StochOverbought))
	}
	if c.CCIOversold >= c.CCIOverbought {
		return enginerrors.New(enginerrors.CategoryConfig, "config", "validate",
			fmt.Sprintf("cci_oversold (%.1f) must be below cci_overbought (%.1f)", c.CCIOversold, c.CCIOverbought))
	}
	w := c.ConfidenceWeights
	if w.Oscillator+w.CCI+w.Volume <= 0 {
		return enginerrors.New(enginerrors.CategoryConfig, "config", "validate",
			"confidence weights must not all be zero")
	}
	return nil
}
