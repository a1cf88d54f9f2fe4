package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginerrors "github.com/quangtran88/signalbot/internal/errors"
)

func TestDefaultStrategyConfig_IsValid(t *testing.T) {
	cfg := DefaultStrategyConfig("default")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ModeAlertOnly, cfg.AutomationMode, "new strategies default to the safest mode")
	assert.True(t, cfg.Active)
}

func TestValidate_RejectsInvertedStochThresholds(t *testing.T) {
	cfg := DefaultStrategyConfig("bad")
	cfg.StochOversold = 85
	cfg.StochOverbought = 80

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, enginerrors.CategoryConfig, enginerrors.CategoryOf(err))
}

func TestValidate_RejectsInvertedCCIThresholds(t *testing.T) {
	cfg := DefaultStrategyConfig("bad")
	cfg.CCIOversold = 100
	cfg.CCIOverbought = -100

	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownAutomationMode(t *testing.T) {
	cfg := DefaultStrategyConfig("bad")
	cfg.AutomationMode = "yolo"

	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroAllocation(t *testing.T) {
	cfg := DefaultStrategyConfig("bad")
	cfg.CapitalAllocationPercent = 0

	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsEmptyTimeframes(t *testing.T) {
	cfg := DefaultStrategyConfig("bad")
	cfg.Timeframes = nil

	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsAllZeroWeights(t *testing.T) {
	cfg := DefaultStrategyConfig("bad")
	cfg.ConfidenceWeights = ConfidenceWeights{}

	require.Error(t, cfg.Validate())
}

func TestValidate_SentimentScoreBounds(t *testing.T) {
	cfg := DefaultStrategyConfig("bad")
	cfg.MinSentimentScore = -1.5

	require.Error(t, cfg.Validate())

	cfg.MinSentimentScore = -1
	require.NoError(t, cfg.Validate())
}
