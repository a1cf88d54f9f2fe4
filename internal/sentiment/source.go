package sentiment

import (
	"context"
	"time"
)

// Label classifies a compound score.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

// Score is the per-symbol news sentiment reading.
type Score struct {
	Symbol     string    `json:"symbol"`
	Compound   float64   `json:"compound"`
	Label      Label     `json:"label"`
	NewsCount  int       `json:"news_count"`
	Confidence float64   `json:"confidence"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// LabelFor maps a compound score to its label. Thresholds at +-0.05
// leave a neutral band around zero.
func LabelFor(compound float64) Label {
	switch {
	case compound >= 0.05:
		return LabelPositive
	case compound <= -0.05:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Source provides sentiment scores for symbols. Implementations return an
// UNAVAILABLE-category error on upstream failure; callers treat that as
// neutral rather than blocking evaluation.
type Source interface {
	GetSentiment(ctx context.Context, symbol string) (Score, error)
}

// Neutral is the fallback score when no news data is available.
func Neutral(symbol string) Score {
	return Score{
		Symbol:    symbol,
		Label:     LabelNeutral,
		FetchedAt: time.Now().UTC(),
	}
}
