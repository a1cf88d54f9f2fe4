package risk

import (
	"fmt"
	"math"

	"github.com/quangtran88/signalbot/internal/config"
	"github.com/quangtran88/signalbot/internal/strategy"
	"github.com/quangtran88/signalbot/pkg/types"
)

// RejectCode identifies why a signal was vetoed.
type RejectCode string

const (
	RejectMaxPositions        RejectCode = "MAX_POSITIONS_EXCEEDED"
	RejectAlreadyInPosition   RejectCode = "ALREADY_IN_POSITION"
	RejectInsufficientCapital RejectCode = "INSUFFICIENT_CAPITAL"
	RejectNothingToExit       RejectCode = "NOTHING_TO_EXIT"
)

// Decision is the outcome of a risk assessment. It is ephemeral: produced
// per evaluation and carried alongside the signal it belongs to.
type Decision struct {
	Approved bool       `json:"approved"`
	Code     RejectCode `json:"code,omitempty"`
	Reason   string     `json:"reason,omitempty"`

	SizedQuantity       float64 `json:"sized_quantity"`
	StopLossPrice       float64 `json:"stop_loss_price"`
	TrailingStopPercent float64 `json:"trailing_stop_percent"`
}

// Manager sizes approved signals and vetoes the rest. It performs no I/O:
// account state arrives as the snapshot taken at the start of the cycle,
// which keeps sizing consistent across near-simultaneous signals.
type Manager struct{}

// NewManager creates a risk manager.
func NewManager() *Manager {
	return &Manager{}
}

// Assess applies position limits and capital allocation to a signal.
//
// Entries: rejected when the position count is at the limit, the symbol is
// already held, or the allocation buys less than one whole unit. Exits:
// rejected when there is nothing to exit; otherwise sized to the open
// position.
func (m *Manager) Assess(sig *strategy.TradingSignal, snap types.AccountSnapshot, cfg *config.StrategyConfig) Decision {
	if sig.Direction.IsExit() {
		return m.assessExit(sig, snap)
	}
	return m.assessEntry(sig, snap, cfg)
}

func (m *Manager) assessEntry(sig *strategy.TradingSignal, snap types.AccountSnapshot, cfg *config.StrategyConfig) Decision {
	if len(snap.Positions) >= cfg.MaxPositions {
		return Decision{
			Code:   RejectMaxPositions,
			Reason: fmt.Sprintf("open positions (%d) at configured limit (%d)", len(snap.Positions), cfg.MaxPositions),
		}
	}
	if _, held := snap.PositionFor(sig.Symbol); held {
		return Decision{
			Code:   RejectAlreadyInPosition,
			Reason: fmt.Sprintf("already holding a position in %s", sig.Symbol),
		}
	}

	allocated := snap.Equity * cfg.CapitalAllocationPercent / 100
	quantity := math.Floor(allocated / sig.Price)
	if quantity < 1 {
		return Decision{
			Code: RejectInsufficientCapital,
			Reason: fmt.Sprintf("allocation %.2f buys no whole unit at price %.2f",
				allocated, sig.Price),
		}
	}

	return Decision{
		Approved:            true,
		SizedQuantity:       quantity,
		StopLossPrice:       sig.Price * (1 - cfg.StopLossPercent/100),
		TrailingStopPercent: cfg.TrailingStopPercent,
	}
}

func (m *Manager) assessExit(sig *strategy.TradingSignal, snap types.AccountSnapshot) Decision {
	pos, held := snap.PositionFor(sig.Symbol)
	if !held {
		return Decision{
			Code:   RejectNothingToExit,
			Reason: fmt.Sprintf("no open position in %s to exit", sig.Symbol),
		}
	}
	return Decision{
		Approved:      true,
		SizedQuantity: pos.Quantity,
	}
}
