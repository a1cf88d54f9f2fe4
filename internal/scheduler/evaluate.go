package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quangtran88/signalbot/internal/audit"
	"github.com/quangtran88/signalbot/internal/config"
	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/internal/monitoring"
	"github.com/quangtran88/signalbot/internal/signalstore"
	"github.com/quangtran88/signalbot/internal/strategy"
	"github.com/quangtran88/signalbot/pkg/types"
)

// workUnit is what one goroutine evaluates in a cycle. Without timeframe
// agreement each unit holds one timeframe; with agreement enabled a unit
// spans all of the strategy's timeframes for one symbol so their signals
// can be compared.
type workUnit struct {
	cfg        *config.StrategyConfig
	symbol     string
	timeframes []string
}

// workUnits expands every active strategy across the watchlist.
func (s *Scheduler) workUnits() []workUnit {
	watchlist := s.Watchlist()

	var units []workUnit
	for _, cfg := range s.strategies.Active() {
		for _, symbol := range watchlist {
			if cfg.RequireTimeframeAgreement {
				units = append(units, workUnit{cfg: cfg, symbol: symbol, timeframes: cfg.Timeframes})
				continue
			}
			for _, tf := range cfg.Timeframes {
				units = append(units, workUnit{cfg: cfg, symbol: symbol, timeframes: []string{tf}})
			}
		}
	}
	return units
}

// runUnit evaluates a unit's tuples and dispatches the resulting signal,
// if any, through the sentiment gate, risk manager, and automation policy.
func (s *Scheduler) runUnit(ctx context.Context, unit workUnit, snapshot types.AccountSnapshot) {
	var signals []*strategy.TradingSignal
	evaluated := 0

	for _, tf := range unit.timeframes {
		key := TupleKey{Strategy: unit.cfg.Name, Symbol: unit.symbol, Timeframe: tf}
		if !s.acquire(key) {
			monitoring.EvaluationsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		sig, err := s.evaluateTuple(ctx, key, unit.cfg)
		s.release(key, err)
		if err != nil {
			continue
		}
		evaluated++
		if sig != nil {
			signals = append(signals, sig)
		}
	}

	chosen := s.selectSignal(unit, signals, evaluated)
	if chosen == nil {
		return
	}
	s.dispatch(ctx, unit.cfg, chosen, snapshot)
}

// selectSignal applies the timeframe agreement rule. With a single
// timeframe per unit the signal passes through untouched.
func (s *Scheduler) selectSignal(unit workUnit, signals []*strategy.TradingSignal, evaluated int) *strategy.TradingSignal {
	if len(signals) == 0 {
		return nil
	}
	if !unit.cfg.RequireTimeframeAgreement {
		return signals[0]
	}

	// Agreement demands a same-direction signal from every timeframe. A
	// skipped or failed tuple counts as disagreement; half a consensus is
	// no consensus.
	if evaluated < len(unit.timeframes) || len(signals) < len(unit.timeframes) {
		s.log.Debug().Str("symbol", unit.symbol).Str("strategy", unit.cfg.Name).
			Int("signals", len(signals)).Int("timeframes", len(unit.timeframes)).
			Msg("timeframe agreement not reached")
		return nil
	}
	direction := signals[0].Direction
	best := signals[0]
	for _, sig := range signals[1:] {
		if sig.Direction != direction {
			s.log.Debug().Str("symbol", unit.symbol).Str("strategy", unit.cfg.Name).
				Msg("timeframes disagree on direction")
			return nil
		}
		if sig.Confidence > best.Confidence {
			best = sig
		}
	}
	return best
}

// evaluateTuple fetches bars and runs the strategy evaluator for one
// tuple.
func (s *Scheduler) evaluateTuple(ctx context.Context, key TupleKey, cfg *config.StrategyConfig) (*strategy.TradingSignal, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout())
	bars, err := s.market.GetBars(fetchCtx, key.Symbol, key.Timeframe, s.cfg.LookbackBars)
	cancel()
	if err != nil {
		s.log.Warn().Err(err).Str("tuple", key.String()).Msg("bar fetch failed")
		monitoring.EvaluationsTotal.WithLabelValues("error").Inc()
		monitoring.ErrorsTotal.WithLabelValues(string(engerrors.CategoryOf(err))).Inc()
		return nil, err
	}

	evaluator, err := strategy.Lookup(cfg.Evaluator)
	if err != nil {
		monitoring.EvaluationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	sig, err := evaluator.Evaluate(key.Symbol, key.Timeframe, bars, cfg)
	if err != nil {
		if errors.Is(err, engerrors.ErrInsufficientData) {
			// Not enough history yet. Skip quietly; more bars arrive on
			// their own.
			s.log.Debug().Str("tuple", key.String()).Msg("insufficient data")
			monitoring.EvaluationsTotal.WithLabelValues("skipped").Inc()
			return nil, err
		}
		s.log.Warn().Err(err).Str("tuple", key.String()).Msg("evaluation failed")
		monitoring.EvaluationsTotal.WithLabelValues("error").Inc()
		monitoring.ErrorsTotal.WithLabelValues(string(engerrors.CategoryOf(err))).Inc()
		return nil, err
	}

	if sig == nil {
		monitoring.EvaluationsTotal.WithLabelValues("no_signal").Inc()
		return nil, nil
	}
	monitoring.EvaluationsTotal.WithLabelValues("signal").Inc()
	return sig, nil
}

// dispatch runs the post-derivation pipeline: sentiment gate, risk
// sizing, then the automation policy.
func (s *Scheduler) dispatch(ctx context.Context, cfg *config.StrategyConfig, sig *strategy.TradingSignal, snapshot types.AccountSnapshot) {
	allowed, score := s.gate.Allow(ctx, sig.Symbol, sig.Direction, cfg)
	if !allowed {
		s.auditBlocked(sig, cfg, fmt.Sprintf("sentiment %.2f below minimum %.2f",
			score.Compound, cfg.MinSentimentScore))
		monitoring.SignalsTotal.WithLabelValues(string(sig.Direction), "blocked").Inc()
		return
	}

	dec := s.riskMgr.Assess(sig, snapshot, cfg)
	if !dec.Approved {
		s.log.Info().
			Str("symbol", sig.Symbol).
			Str("code", string(dec.Code)).
			Str("reason", dec.Reason).
			Msg("signal rejected by risk manager")
		s.auditBlocked(sig, cfg, dec.Reason)
		monitoring.SignalsTotal.WithLabelValues(string(sig.Direction), "risk_rejected").Inc()
		return
	}

	sig.ProposedQuantity = dec.SizedQuantity
	sig.ProposedStopLoss = dec.StopLossPrice
	sig.ProposedTrailingStop = dec.TrailingStopPercent

	if err := s.policy.Dispatch(ctx, sig, dec, cfg.AutomationMode); err != nil {
		monitoring.SignalsTotal.WithLabelValues(string(sig.Direction), "failed").Inc()
		monitoring.ErrorsTotal.WithLabelValues(string(engerrors.CategoryOf(err))).Inc()
		return
	}
	monitoring.SignalsTotal.WithLabelValues(string(sig.Direction), string(cfg.AutomationMode)).Inc()
	monitoring.PendingSignals.Set(float64(len(s.pending.List(signalstore.StatusPending))))
}

// acquire marks a tuple in flight if it is neither running nor backing
// off.
func (s *Scheduler) acquire(key TupleKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[key] {
		s.log.Debug().Str("tuple", key.String()).Msg("tuple still in flight, skipping")
		return false
	}
	if bs, ok := s.backoff[key]; ok && time.Now().Before(bs.nextEligible) {
		s.log.Debug().Str("tuple", key.String()).Time("eligible", bs.nextEligible).Msg("tuple backing off")
		return false
	}
	s.inFlight[key] = true
	return true
}

// release clears the in-flight mark and updates backoff state. Success
// and insufficient-data outcomes reset the failure streak; retryable
// failures double the delay up to the configured ceiling.
func (s *Scheduler) release(key TupleKey, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)

	if err == nil || errors.Is(err, engerrors.ErrInsufficientData) ||
		engerrors.CategoryOf(err) == engerrors.CategoryInsufficientData {
		delete(s.backoff, key)
		return
	}
	if !engerrors.IsRetryable(err) {
		delete(s.backoff, key)
		return
	}

	bs, ok := s.backoff[key]
	if !ok {
		bs = &backoffState{delay: s.cfg.CycleInterval}
		s.backoff[key] = bs
	} else {
		bs.delay *= 2
	}
	if bs.delay > s.cfg.MaxBackoff() {
		bs.delay = s.cfg.MaxBackoff()
	}
	bs.failures++
	bs.nextEligible = time.Now().Add(bs.delay)

	if bs.failures > s.cfg.RetryBudget {
		s.log.Error().
			Str("tuple", key.String()).
			Int("failures", bs.failures).
			Msg("tuple exhausted retry budget, scheduler degraded")
	}
}

func (s *Scheduler) auditBlocked(sig *strategy.TradingSignal, cfg *config.StrategyConfig, reason string) {
	rec := audit.Record{
		ID:         sig.ID,
		Time:       sig.GeneratedAt,
		Strategy:   cfg.Name,
		Symbol:     sig.Symbol,
		Timeframe:  sig.Timeframe,
		Direction:  string(sig.Direction),
		Confidence: sig.Confidence,
		Outcome:    audit.OutcomeBlocked,
		Reason:     reason,
	}
	if err := s.recorder.Record(rec); err != nil {
		s.log.Error().Err(err).Str("signal_id", sig.ID).Msg("failed to write audit record")
	}
}

func (s *Scheduler) auditExpired(ps *signalstore.PendingSignal) {
	rec := audit.Record{
		ID:         ps.ID,
		Time:       time.Now().UTC(),
		Strategy:   ps.Signal.StrategyName,
		Symbol:     ps.Signal.Symbol,
		Timeframe:  ps.Signal.Timeframe,
		Direction:  string(ps.Signal.Direction),
		Confidence: ps.Signal.Confidence,
		Outcome:    audit.OutcomeExpired,
		Reason:     "confirmation window elapsed",
	}
	if err := s.recorder.Record(rec); err != nil {
		s.log.Error().Err(err).Str("signal_id", ps.ID).Msg("failed to write audit record")
	}
}
