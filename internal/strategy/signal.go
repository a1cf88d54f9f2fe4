package strategy

import (
	"time"
)

// Direction is the side of a trading signal. The engine is long-only, so a
// sell signal is an exit of an existing position.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// IsExit reports whether the direction closes a position rather than
// opening one.
func (d Direction) IsExit() bool {
	return d == DirectionSell
}

// Condition is one contributing entry of a signal's rationale.
type Condition struct {
	Name   string  `json:"name"`
	Detail string  `json:"detail"`
	Value  float64 `json:"value"`
}

// TradingSignal is the outcome of one qualifying evaluation. It is
// immutable after creation; only the pending store tracks status
// transitions around it.
type TradingSignal struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Timeframe    string      `json:"timeframe"`
	StrategyName string      `json:"strategy_name"`
	Direction    Direction   `json:"direction"`
	Confidence   float64     `json:"confidence"`
	Rationale    []Condition `json:"rationale"`

	Price       float64   `json:"price"`
	BarTime     time.Time `json:"bar_time"`
	GeneratedAt time.Time `json:"generated_at"`

	ProposedQuantity     float64 `json:"proposed_quantity"`
	ProposedStopLoss     float64 `json:"proposed_stop_loss"`
	ProposedTrailingStop float64 `json:"proposed_trailing_stop"`
}
