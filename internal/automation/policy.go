package automation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quangtran88/signalbot/internal/audit"
	"github.com/quangtran88/signalbot/internal/broker"
	"github.com/quangtran88/signalbot/internal/config"
	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/internal/risk"
	"github.com/quangtran88/signalbot/internal/signalstore"
	"github.com/quangtran88/signalbot/internal/strategy"
)

// Policy routes risk-approved signals by automation mode: auto executes
// immediately, alert_only records and notifies, semi_auto queues for
// operator confirmation.
type Policy struct {
	executor broker.OrderExecutor
	pending  *signalstore.Store
	audit    *audit.Recorder
	notifier Notifier
	log      zerolog.Logger
}

// NewPolicy wires the dispatch targets together.
func NewPolicy(executor broker.OrderExecutor, pending *signalstore.Store, recorder *audit.Recorder, notifier Notifier, log zerolog.Logger) *Policy {
	return &Policy{
		executor: executor,
		pending:  pending,
		audit:    recorder,
		notifier: notifier,
		log:      log,
	}
}

// Dispatch applies the strategy's automation mode to an approved signal.
// A failed immediate execution is recorded but not retried; the next
// cycle re-derives the signal if the setup still holds.
func (p *Policy) Dispatch(ctx context.Context, sig *strategy.TradingSignal, dec risk.Decision, mode config.AutomationMode) error {
	switch mode {
	case config.ModeAuto:
		return p.execute(ctx, sig, dec)
	case config.ModeAlertOnly:
		return p.alert(ctx, sig, dec)
	case config.ModeSemiAuto:
		return p.enqueue(ctx, sig, dec)
	default:
		return engerrors.New(engerrors.CategoryConfig, "automation", "Dispatch",
			fmt.Sprintf("unknown automation mode %q", mode))
	}
}

func (p *Policy) execute(ctx context.Context, sig *strategy.TradingSignal, dec risk.Decision) error {
	orderRef, err := p.executor.SubmitOrder(ctx, broker.OrderRequest{
		Symbol:              sig.Symbol,
		Direction:           sig.Direction,
		Quantity:            dec.SizedQuantity,
		StopLoss:            dec.StopLossPrice,
		TrailingStopPercent: dec.TrailingStopPercent,
	})
	if err != nil {
		p.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("auto execution failed")
		p.record(sig, dec, audit.OutcomeFailed, err.Error(), "")
		return engerrors.Wrap(err, engerrors.CategoryUnavailable, "automation", "execute")
	}

	p.log.Info().
		Str("symbol", sig.Symbol).
		Str("direction", string(sig.Direction)).
		Str("order_ref", orderRef).
		Float64("quantity", dec.SizedQuantity).
		Msg("order executed")
	p.record(sig, dec, audit.OutcomeExecuted, "", orderRef)
	p.notify(ctx, sig, dec, "executed automatically")
	return nil
}

func (p *Policy) alert(ctx context.Context, sig *strategy.TradingSignal, dec risk.Decision) error {
	p.record(sig, dec, audit.OutcomeAlerted, "", "")
	p.notify(ctx, sig, dec, "alert only, no order placed")
	return nil
}

func (p *Policy) enqueue(ctx context.Context, sig *strategy.TradingSignal, dec risk.Decision) error {
	ps, err := p.pending.Enqueue(sig, dec)
	if err != nil {
		return err
	}
	p.log.Info().Str("signal_id", ps.ID).Str("symbol", sig.Symbol).Msg("signal queued for confirmation")
	p.record(sig, dec, audit.OutcomeQueued, "", "")
	p.notify(ctx, sig, dec, "awaiting confirmation")
	return nil
}

func (p *Policy) record(sig *strategy.TradingSignal, dec risk.Decision, outcome audit.Outcome, reason, orderRef string) {
	err := p.audit.Record(audit.Record{
		ID:         sig.ID,
		Time:       sig.GeneratedAt,
		Strategy:   sig.StrategyName,
		Symbol:     sig.Symbol,
		Timeframe:  sig.Timeframe,
		Direction:  string(sig.Direction),
		Confidence: sig.Confidence,
		Outcome:    outcome,
		Reason:     reason,
		OrderRef:   orderRef,
		Quantity:   dec.SizedQuantity,
	})
	if err != nil {
		p.log.Error().Err(err).Str("signal_id", sig.ID).Msg("failed to write audit record")
	}
}

func (p *Policy) notify(ctx context.Context, sig *strategy.TradingSignal, dec risk.Decision, note string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifySignal(ctx, sig, dec, note); err != nil {
		p.log.Warn().Err(err).Str("signal_id", sig.ID).Msg("notification failed")
	}
}
