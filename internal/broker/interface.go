package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/quangtran88/signalbot/internal/strategy"
	"github.com/quangtran88/signalbot/pkg/types"
)

// OrderRequest is the execution-sink input derived from an approved signal.
type OrderRequest struct {
	Symbol              string
	Direction           strategy.Direction
	Quantity            float64
	StopLoss            float64
	TrailingStopPercent float64
}

// MarketDataSource provides historical bars for evaluation. Failures map
// to the UNAVAILABLE / RATE_LIMITED error categories.
type MarketDataSource interface {
	GetBars(ctx context.Context, symbol, timeframe string, lookback int) ([]types.OHLCV, error)
}

// AccountSource reports equity and open positions.
type AccountSource interface {
	GetEquity(ctx context.Context) (float64, error)
	GetOpenPositions(ctx context.Context) ([]types.Position, error)
}

// OrderExecutor submits and cancels orders. SubmitOrder returns the
// broker's order reference for the audit trail.
type OrderExecutor interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (string, error)
	CancelOrder(ctx context.Context, orderRef string) error
}

// Snapshot reads equity and positions once, producing the per-cycle
// account snapshot the risk manager sizes against.
func Snapshot(ctx context.Context, src AccountSource) (types.AccountSnapshot, error) {
	equity, err := src.GetEquity(ctx)
	if err != nil {
		return types.AccountSnapshot{}, fmt.Errorf("failed to read equity: %w", err)
	}
	positions, err := src.GetOpenPositions(ctx)
	if err != nil {
		return types.AccountSnapshot{}, fmt.Errorf("failed to read positions: %w", err)
	}
	return types.AccountSnapshot{
		Equity:    equity,
		Positions: positions,
		TakenAt:   time.Now().UTC(),
	}, nil
}
