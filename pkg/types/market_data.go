package types

import "time"

// OHLCV is a single price bar. Sequences are ordered by strictly
// increasing timestamp with no duplicates.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Position is an open position as reported by the account source.
type Position struct {
	Symbol     string
	Quantity   float64
	EntryPrice float64
}

// AccountSnapshot captures equity and open positions at a single point in
// time. The scheduler takes one snapshot per cycle so every sizing decision
// within a cycle sees the same account state.
type AccountSnapshot struct {
	Equity    float64
	Positions []Position
	TakenAt   time.Time
}

// PositionFor returns the open position for a symbol, if any.
func (s AccountSnapshot) PositionFor(symbol string) (Position, bool) {
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}
