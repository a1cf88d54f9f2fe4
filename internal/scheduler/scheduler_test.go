package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtran88/signalbot/internal/audit"
	"github.com/quangtran88/signalbot/internal/automation"
	"github.com/quangtran88/signalbot/internal/broker"
	"github.com/quangtran88/signalbot/internal/config"
	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/internal/logger"
	"github.com/quangtran88/signalbot/internal/sentiment"
	"github.com/quangtran88/signalbot/internal/signalstore"
	"github.com/quangtran88/signalbot/internal/storage"
	"github.com/quangtran88/signalbot/pkg/types"
)

// fakeMarket serves canned bars per (symbol, timeframe) and counts calls.
type fakeMarket struct {
	mu    sync.Mutex
	bars  map[string][]types.OHLCV
	err   error
	calls int
}

func marketKey(symbol, timeframe string) string { return symbol + "/" + timeframe }

func (f *fakeMarket) GetBars(ctx context.Context, symbol, timeframe string, lookback int) ([]types.OHLCV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[marketKey(symbol, timeframe)], nil
}

func (f *fakeMarket) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAccount struct {
	equity    float64
	positions []types.Position
}

func (f *fakeAccount) GetEquity(ctx context.Context) (float64, error) { return f.equity, nil }
func (f *fakeAccount) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	return f.positions, nil
}

type fakeExecutor struct {
	mu        sync.Mutex
	submitted []broker.OrderRequest
}

func (f *fakeExecutor) SubmitOrder(ctx context.Context, req broker.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	return "order-1", nil
}

func (f *fakeExecutor) CancelOrder(ctx context.Context, orderRef string) error { return nil }

func (f *fakeExecutor) orders() []broker.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]broker.OrderRequest(nil), f.submitted...)
}

type fakeSentiment struct {
	score sentiment.Score
}

func (f *fakeSentiment) GetSentiment(ctx context.Context, symbol string) (sentiment.Score, error) {
	return f.score, nil
}

// crossingBars produce a buy crossing under the tiny-period test strategy:
// %K goes 5 -> 30 across the 20 threshold while the 2-period CCI crosses
// -50 from below.
func crossingBars() []types.OHLCV {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	mk := func(close, volume float64, i int) types.OHLCV {
		return types.OHLCV{
			Open: close, High: 110, Low: 90, Close: close, Volume: volume,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return []types.OHLCV{mk(100, 1000, 0), mk(91, 1000, 1), mk(96, 1200, 2)}
}

func quietBars() []types.OHLCV {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	mk := func(i int) types.OHLCV {
		return types.OHLCV{
			Open: 100, High: 110, Low: 90, Close: 100, Volume: 1000,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return []types.OHLCV{mk(0), mk(1), mk(2)}
}

func testStrategy(mode config.AutomationMode, timeframes ...string) *config.StrategyConfig {
	cfg := config.DefaultStrategyConfig("test")
	cfg.AutomationMode = mode
	cfg.StochKPeriod = 2
	cfg.StochDPeriod = 1
	cfg.CCIPeriod = 2
	cfg.CCIOversold = -50
	cfg.CCIOverbought = 50
	if len(timeframes) > 0 {
		cfg.Timeframes = timeframes
	}
	return cfg
}

func engineConfig() *config.Config {
	cfg := config.Default()
	cfg.CycleInterval = time.Minute
	cfg.Watchlist = []string{"AAPL"}
	return cfg
}

type harness struct {
	sched    *Scheduler
	market   *fakeMarket
	exec     *fakeExecutor
	pending  *signalstore.Store
	recorder *audit.Recorder
}

func newHarness(t *testing.T, engCfg *config.Config, stratCfg *config.StrategyConfig, source sentiment.Source) *harness {
	t.Helper()

	strategies, err := config.NewStore("")
	require.NoError(t, err)
	require.NoError(t, strategies.Create(stratCfg))

	exec := &fakeExecutor{}
	pending, err := signalstore.NewStore(storage.NewMemoryKV(), exec, logger.Nop())
	require.NoError(t, err)
	recorder := audit.NewRecorder(storage.NewMemoryKV())

	market := &fakeMarket{bars: map[string][]types.OHLCV{}}
	account := &fakeAccount{equity: 10000}
	gate := sentiment.NewGate(source, logger.Nop())
	policy := automation.NewPolicy(exec, pending, recorder, nil, logger.Nop())

	return &harness{
		sched:    New(engCfg, strategies, market, account, gate, policy, pending, recorder, logger.Nop()),
		market:   market,
		exec:     exec,
		pending:  pending,
		recorder: recorder,
	}
}

func TestScheduler_AutoModeExecutesSignal(t *testing.T) {
	h := newHarness(t, engineConfig(), testStrategy(config.ModeAuto, "1D"), &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = crossingBars()

	h.sched.runCycle(context.Background())

	orders := h.exec.orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "AAPL", orders[0].Symbol)
	// 10% of 10k equity at 96/share floors to 10.
	assert.Equal(t, 10.0, orders[0].Quantity)

	records := h.recorder.List(10)
	require.Len(t, records, 1)
	assert.Equal(t, audit.OutcomeExecuted, records[0].Outcome)
}

func TestScheduler_AlertOnlyNeverExecutes(t *testing.T) {
	h := newHarness(t, engineConfig(), testStrategy(config.ModeAlertOnly, "1D"), &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = crossingBars()

	h.sched.runCycle(context.Background())

	assert.Empty(t, h.exec.orders())
	records := h.recorder.List(10)
	require.Len(t, records, 1)
	assert.Equal(t, audit.OutcomeAlerted, records[0].Outcome)
}

func TestScheduler_SemiAutoQueuesForConfirmation(t *testing.T) {
	h := newHarness(t, engineConfig(), testStrategy(config.ModeSemiAuto, "1D"), &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = crossingBars()

	h.sched.runCycle(context.Background())

	assert.Empty(t, h.exec.orders())
	queued := h.pending.List(signalstore.StatusPending)
	require.Len(t, queued, 1)
	assert.Equal(t, "AAPL", queued[0].Signal.Symbol)
}

func TestScheduler_QuietMarketNoSignal(t *testing.T) {
	h := newHarness(t, engineConfig(), testStrategy(config.ModeAuto, "1D"), &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = quietBars()

	h.sched.runCycle(context.Background())

	assert.Empty(t, h.exec.orders())
	assert.Empty(t, h.recorder.List(10))
}

func TestScheduler_RetryableFailureBacksOff(t *testing.T) {
	h := newHarness(t, engineConfig(), testStrategy(config.ModeAuto, "1D"), &fakeSentiment{})
	h.market.err = engerrors.New(engerrors.CategoryUnavailable, "bybit", "GetBars", "exchange down")

	h.sched.runCycle(context.Background())
	require.Equal(t, 1, h.market.callCount())

	// The tuple is now backing off; the next cycle must skip it.
	h.sched.runCycle(context.Background())
	assert.Equal(t, 1, h.market.callCount(), "backing-off tuple must not be fetched")
}

func TestScheduler_InsufficientDataDoesNotBackOff(t *testing.T) {
	h := newHarness(t, engineConfig(), testStrategy(config.ModeAuto, "1D"), &fakeSentiment{})
	// Two bars is below the k-period requirement of the evaluator.
	h.market.bars[marketKey("AAPL", "1D")] = crossingBars()[:2]

	h.sched.runCycle(context.Background())
	h.sched.runCycle(context.Background())

	assert.Equal(t, 2, h.market.callCount(), "insufficient data is a skip, not a failure")
	assert.True(t, h.sched.Status().Healthy)
}

func TestScheduler_DegradedAfterRetryBudget(t *testing.T) {
	engCfg := engineConfig()
	engCfg.RetryBudget = 1
	h := newHarness(t, engCfg, testStrategy(config.ModeAuto, "1D"), &fakeSentiment{})
	h.market.err = engerrors.New(engerrors.CategoryUnavailable, "bybit", "GetBars", "exchange down")

	key := TupleKey{Strategy: "test", Symbol: "AAPL", Timeframe: "1D"}

	h.sched.runCycle(context.Background())
	assert.True(t, h.sched.Status().Healthy, "one failure is within budget")

	// Clear the backoff window so the next cycle retries immediately.
	h.sched.mu.Lock()
	h.sched.backoff[key].nextEligible = time.Now().Add(-time.Second)
	h.sched.mu.Unlock()

	h.sched.runCycle(context.Background())

	st := h.sched.Status()
	assert.False(t, st.Healthy)
	assert.Contains(t, st.DegradedTuples, key.String())

	// Recovery clears the degradation.
	h.market.err = nil
	h.market.bars[marketKey("AAPL", "1D")] = quietBars()
	h.sched.mu.Lock()
	h.sched.backoff[key].nextEligible = time.Now().Add(-time.Second)
	h.sched.mu.Unlock()

	h.sched.runCycle(context.Background())
	assert.True(t, h.sched.Status().Healthy)
}

func TestScheduler_SentimentBlocksBuy(t *testing.T) {
	stratCfg := testStrategy(config.ModeAuto, "1D")
	stratCfg.EnableNewsFilter = true
	stratCfg.MinSentimentScore = -0.1

	source := &fakeSentiment{score: sentiment.Score{Symbol: "AAPL", Compound: -0.6, Label: sentiment.LabelNegative}}
	h := newHarness(t, engineConfig(), stratCfg, source)
	h.market.bars[marketKey("AAPL", "1D")] = crossingBars()

	h.sched.runCycle(context.Background())

	assert.Empty(t, h.exec.orders())
	records := h.recorder.List(10)
	require.Len(t, records, 1)
	assert.Equal(t, audit.OutcomeBlocked, records[0].Outcome)
	assert.Contains(t, records[0].Reason, "sentiment -0.60", "the blocking score must be in the audit trail")
}

func TestScheduler_RiskRejectionAudited(t *testing.T) {
	stratCfg := testStrategy(config.ModeAuto, "1D")
	stratCfg.MaxPositions = 1

	h := newHarness(t, engineConfig(), stratCfg, &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = crossingBars()

	// Already holding a different symbol at the position cap.
	h.sched.account = &fakeAccount{
		equity:    10000,
		positions: []types.Position{{Symbol: "MSFT", Quantity: 5, EntryPrice: 300}},
	}

	h.sched.runCycle(context.Background())

	assert.Empty(t, h.exec.orders())
	records := h.recorder.List(10)
	require.Len(t, records, 1)
	assert.Equal(t, audit.OutcomeBlocked, records[0].Outcome)
}

func TestScheduler_TimeframeAgreementDispatchesOnce(t *testing.T) {
	stratCfg := testStrategy(config.ModeAuto, "1D", "4H")
	stratCfg.RequireTimeframeAgreement = true

	h := newHarness(t, engineConfig(), stratCfg, &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = crossingBars()
	h.market.bars[marketKey("AAPL", "4H")] = crossingBars()

	h.sched.runCycle(context.Background())

	assert.Len(t, h.exec.orders(), 1, "agreeing timeframes dispatch a single order")
}

func TestScheduler_TimeframeDisagreementSuppresses(t *testing.T) {
	stratCfg := testStrategy(config.ModeAuto, "1D", "4H")
	stratCfg.RequireTimeframeAgreement = true

	h := newHarness(t, engineConfig(), stratCfg, &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = crossingBars()
	h.market.bars[marketKey("AAPL", "4H")] = quietBars()

	h.sched.runCycle(context.Background())

	assert.Empty(t, h.exec.orders(), "a timeframe without a signal vetoes the dispatch")
}

func TestScheduler_SweepsExpiredPending(t *testing.T) {
	engCfg := engineConfig()
	// A zero TTL makes every pending signal stale by the next sweep.
	engCfg.PendingTTLMin = 0
	h := newHarness(t, engCfg, testStrategy(config.ModeSemiAuto, "1D"), &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = crossingBars()

	h.sched.runCycle(context.Background())
	queued := h.pending.List(signalstore.StatusPending)
	require.Len(t, queued, 1)

	h.market.bars[marketKey("AAPL", "1D")] = quietBars()
	h.sched.runCycle(context.Background())

	assert.Empty(t, h.pending.List(signalstore.StatusPending))
	expired := h.pending.List(signalstore.StatusExpired)
	require.Len(t, expired, 1)

	records := h.recorder.List(10)
	require.NotEmpty(t, records)
	assert.Equal(t, audit.OutcomeExpired, records[0].Outcome)
}

func TestScheduler_WatchlistUpdateAppliesNextCycle(t *testing.T) {
	h := newHarness(t, engineConfig(), testStrategy(config.ModeAuto, "1D"), &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = quietBars()
	h.market.bars[marketKey("MSFT", "1D")] = quietBars()
	h.market.bars[marketKey("NVDA", "1D")] = quietBars()

	h.sched.runCycle(context.Background())
	assert.Equal(t, 1, h.market.callCount())

	h.sched.SetWatchlist([]string{"MSFT", "NVDA"})
	assert.Equal(t, []string{"MSFT", "NVDA"}, h.sched.Watchlist())

	h.sched.runCycle(context.Background())
	assert.Equal(t, 3, h.market.callCount(), "the new symbols replace the old ones")
}

func TestScheduler_WatchlistUpdateDuringCycles(t *testing.T) {
	h := newHarness(t, engineConfig(), testStrategy(config.ModeAuto, "1D"), &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = quietBars()
	h.market.bars[marketKey("MSFT", "1D")] = quietBars()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			h.sched.runCycle(context.Background())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			h.sched.SetWatchlist([]string{"MSFT"})
			h.sched.SetWatchlist([]string{"AAPL"})
		}
	}()
	wg.Wait()

	assert.Equal(t, []string{"AAPL"}, h.sched.Watchlist())
}

func TestScheduler_StartStopLifecycle(t *testing.T) {
	engCfg := engineConfig()
	engCfg.CycleInterval = time.Hour // only the immediate first cycle runs
	h := newHarness(t, engCfg, testStrategy(config.ModeAlertOnly, "1D"), &fakeSentiment{})
	h.market.bars[marketKey("AAPL", "1D")] = quietBars()

	require.NoError(t, h.sched.Start())
	assert.Error(t, h.sched.Start(), "double start must fail")
	assert.True(t, h.sched.Running())

	require.NoError(t, h.sched.Stop())
	assert.False(t, h.sched.Running())
	assert.Error(t, h.sched.Stop(), "double stop must fail")
}
