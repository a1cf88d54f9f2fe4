package strategy

import (
	"fmt"
	"sync"

	"github.com/quangtran88/signalbot/internal/config"
	"github.com/quangtran88/signalbot/pkg/types"
)

// Evaluator turns a bar sequence into at most one trading signal. A nil
// signal with a nil error means no condition fired, which is the normal
// outcome of most evaluations.
//
// Evaluators must be pure: no I/O, no retained state between calls, safe
// for concurrent use across tuples.
type Evaluator interface {
	Name() string
	Evaluate(symbol, timeframe string, bars []types.OHLCV, cfg *config.StrategyConfig) (*TradingSignal, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Evaluator)
)

// Register adds a named evaluator variant to the lookup table. New
// strategy variants are added here, not via embedding chains.
func Register(e Evaluator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[e.Name()] = e
}

// Lookup resolves the evaluator for a strategy config. An empty evaluator
// name falls back to the stochastic+CCI default.
func Lookup(name string) (Evaluator, error) {
	if name == "" {
		name = "stoch_cci"
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown evaluator %q", name)
	}
	return e, nil
}

func init() {
	Register(&StochCCIEvaluator{})
}
