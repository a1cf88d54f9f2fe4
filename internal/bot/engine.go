package bot

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quangtran88/signalbot/internal/audit"
	"github.com/quangtran88/signalbot/internal/automation"
	"github.com/quangtran88/signalbot/internal/broker"
	"github.com/quangtran88/signalbot/internal/broker/bybit"
	"github.com/quangtran88/signalbot/internal/config"
	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/internal/indicators"
	"github.com/quangtran88/signalbot/internal/logger"
	"github.com/quangtran88/signalbot/internal/scheduler"
	"github.com/quangtran88/signalbot/internal/sentiment"
	"github.com/quangtran88/signalbot/internal/signalstore"
	"github.com/quangtran88/signalbot/internal/storage"
	"github.com/quangtran88/signalbot/internal/strategy"
	"github.com/quangtran88/signalbot/pkg/types"
)

// Engine owns every component of the signal lifecycle and exposes the
// operations the API and CLI surface.
type Engine struct {
	cfg        *config.Config
	log        zerolog.Logger
	kv         storage.KV
	strategies *config.Store
	market     broker.MarketDataSource
	account    broker.AccountSource
	pending    *signalstore.Store
	recorder   *audit.Recorder
	sentiments sentiment.Source
	analyzer   *sentiment.Analyzer
	sched      *scheduler.Scheduler
	rdb        *redis.Client
}

// New wires the engine from configuration. The caller owns Close.
func New(cfg *config.Config, log zerolog.Logger) (*Engine, error) {
	kv, err := storage.OpenBadger(filepath.Join(cfg.DataDir, "engine"))
	if err != nil {
		return nil, err
	}

	strategies, err := config.NewStore(cfg.StrategyFile)
	if err != nil {
		kv.Close()
		return nil, err
	}
	if len(strategies.List()) == 0 {
		if err := strategies.Create(config.DefaultStrategyConfig("default")); err != nil {
			kv.Close()
			return nil, err
		}
	}

	client := bybit.NewClient(bybit.Config{
		APIKey:    cfg.BybitAPIKey,
		APISecret: cfg.BybitAPISecret,
		Testnet:   cfg.ExchangeTestnet,
		Demo:      cfg.ExchangeDemo,
	})

	pending, err := signalstore.NewStore(kv, client, logger.Component(log, "signalstore"))
	if err != nil {
		kv.Close()
		return nil, err
	}
	recorder := audit.NewRecorder(kv)

	analyzer := sentiment.NewAnalyzer(cfg.SentimentFeeds, logger.Component(log, "sentiment"))
	var source sentiment.Source = analyzer
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		source = sentiment.NewCachedSource(analyzer, rdb, cfg.SentimentTTL(), logger.Component(log, "sentiment-cache"))
	}
	gate := sentiment.NewGate(source, logger.Component(log, "sentiment"))

	var notifier automation.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifier = automation.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
	} else {
		notifier = automation.NewLogNotifier(logger.Component(log, "notifier"))
	}

	policy := automation.NewPolicy(client, pending, recorder, notifier, logger.Component(log, "automation"))
	sched := scheduler.New(cfg, strategies, client, client, gate, policy, pending, recorder, logger.Component(log, "scheduler"))

	return &Engine{
		cfg:        cfg,
		log:        log,
		kv:         kv,
		strategies: strategies,
		market:     client,
		account:    client,
		pending:    pending,
		recorder:   recorder,
		sentiments: source,
		analyzer:   analyzer,
		sched:      sched,
		rdb:        rdb,
	}, nil
}

// Close releases storage and connections. The scheduler is stopped first
// if still running.
func (e *Engine) Close() error {
	if e.sched.Running() {
		if err := e.sched.Stop(); err != nil {
			e.log.Warn().Err(err).Msg("scheduler stop during close")
		}
	}
	if e.rdb != nil {
		if err := e.rdb.Close(); err != nil {
			e.log.Warn().Err(err).Msg("redis close")
		}
	}
	return e.kv.Close()
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Strategies returns the strategy config store.
func (e *Engine) Strategies() *config.Store { return e.strategies }

// Pending returns the pending signal store.
func (e *Engine) Pending() *signalstore.Store { return e.pending }

// Audit returns the audit recorder.
func (e *Engine) Audit() *audit.Recorder { return e.recorder }

// StartScheduler starts the evaluation loop.
func (e *Engine) StartScheduler() error { return e.sched.Start() }

// StopScheduler stops the evaluation loop.
func (e *Engine) StopScheduler() error { return e.sched.Stop() }

// SchedulerStatus returns the health snapshot.
func (e *Engine) SchedulerStatus() scheduler.Status { return e.sched.Status() }

// AccountSnapshot reads equity and open positions.
func (e *Engine) AccountSnapshot(ctx context.Context) (types.AccountSnapshot, error) {
	return broker.Snapshot(ctx, e.account)
}

// Sentiment reads the per-symbol news sentiment (through the cache when
// configured).
func (e *Engine) Sentiment(ctx context.Context, symbol string) (sentiment.Score, error) {
	return e.sentiments.GetSentiment(ctx, symbol)
}

// MarketSentiment reads the unfiltered market-wide sentiment.
func (e *Engine) MarketSentiment(ctx context.Context) (sentiment.Score, error) {
	return e.analyzer.GetMarketSentiment(ctx)
}

// Watchlist returns a copy of the evaluated symbols.
func (e *Engine) Watchlist() []string {
	return e.sched.Watchlist()
}

// SetWatchlist replaces the evaluated symbols. The next cycle picks up
// the change.
func (e *Engine) SetWatchlist(symbols []string) error {
	if len(symbols) == 0 {
		return engerrors.New(engerrors.CategoryConfig, "engine", "SetWatchlist", "watchlist must not be empty")
	}
	e.sched.SetWatchlist(symbols)
	return nil
}

// Analysis is the on-demand evaluation result for one symbol/timeframe.
type Analysis struct {
	Symbol    string                  `json:"symbol"`
	Timeframe string                  `json:"timeframe"`
	Bars      int                     `json:"bars"`
	StochK    float64                 `json:"stoch_k"`
	StochD    float64                 `json:"stoch_d"`
	CCI       float64                 `json:"cci"`
	LastClose float64                 `json:"last_close"`
	Signal    *strategy.TradingSignal `json:"signal,omitempty"`
}

// Analyze runs one ad-hoc evaluation of a symbol against a strategy
// without dispatching anything.
func (e *Engine) Analyze(ctx context.Context, symbol, timeframe, strategyName string) (*Analysis, error) {
	cfg, ok := e.strategies.Get(strategyName)
	if !ok {
		return nil, engerrors.Wrap(fmt.Errorf("strategy %q: %w", strategyName, engerrors.ErrNotFound),
			engerrors.CategoryConfig, "engine", "Analyze")
	}
	if timeframe == "" {
		timeframe = cfg.Timeframes[0]
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout())
	defer cancel()
	bars, err := e.market.GetBars(fetchCtx, symbol, timeframe, e.cfg.LookbackBars)
	if err != nil {
		return nil, err
	}

	stochSeries, err := indicators.NewStochastic(cfg.StochKPeriod, cfg.StochDPeriod).Calculate(bars)
	if err != nil {
		return nil, err
	}
	cciSeries, err := indicators.NewCCI(cfg.CCIPeriod).Calculate(bars)
	if err != nil {
		return nil, err
	}
	k, d, err := stochSeries.Latest()
	if err != nil {
		return nil, err
	}
	cciVal, err := cciSeries.Latest()
	if err != nil {
		return nil, err
	}

	evaluator, err := strategy.Lookup(cfg.Evaluator)
	if err != nil {
		return nil, err
	}
	sig, err := evaluator.Evaluate(symbol, timeframe, bars, cfg)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Symbol:    symbol,
		Timeframe: timeframe,
		Bars:      len(bars),
		StochK:    k,
		StochD:    d,
		CCI:       cciVal,
		LastClose: bars[len(bars)-1].Close,
		Signal:    sig,
	}, nil
}

// ExportRecords loads the persisted audit trail for export.
func (e *Engine) ExportRecords() ([]audit.Record, error) {
	return e.recorder.LoadAll()
}
