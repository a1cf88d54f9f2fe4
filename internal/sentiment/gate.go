package sentiment

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/quangtran88/signalbot/internal/config"
	"github.com/quangtran88/signalbot/internal/strategy"
)

// Gate applies the news sentiment filter to derived signals. It fails
// open: an unreachable sentiment source never blocks a trade, it just
// removes the filter for that evaluation.
type Gate struct {
	source Source
	log    zerolog.Logger
}

// NewGate creates a gate over the given sentiment source.
func NewGate(source Source, log zerolog.Logger) *Gate {
	return &Gate{source: source, log: log}
}

// Allow reports whether the signal passes the strategy's sentiment filter
// and returns the score used for the decision. Sell signals always pass
// since blocking an exit on bad news would trap the position.
func (g *Gate) Allow(ctx context.Context, symbol string, direction strategy.Direction, cfg *config.StrategyConfig) (bool, Score) {
	if !cfg.EnableNewsFilter {
		return true, Neutral(symbol)
	}
	if direction == strategy.DirectionSell {
		return true, Neutral(symbol)
	}

	score, err := g.source.GetSentiment(ctx, symbol)
	if err != nil {
		g.log.Warn().Err(err).Str("symbol", symbol).Msg("sentiment unavailable, passing signal through")
		return true, Neutral(symbol)
	}

	if score.Compound < cfg.MinSentimentScore {
		g.log.Info().
			Str("symbol", symbol).
			Float64("compound", score.Compound).
			Float64("min", cfg.MinSentimentScore).
			Int("news_count", score.NewsCount).
			Msg("buy signal blocked by sentiment filter")
		return false, score
	}
	return true, score
}
