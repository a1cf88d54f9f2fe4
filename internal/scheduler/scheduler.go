package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quangtran88/signalbot/internal/audit"
	"github.com/quangtran88/signalbot/internal/automation"
	"github.com/quangtran88/signalbot/internal/broker"
	"github.com/quangtran88/signalbot/internal/config"
	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/internal/monitoring"
	"github.com/quangtran88/signalbot/internal/risk"
	"github.com/quangtran88/signalbot/internal/sentiment"
	"github.com/quangtran88/signalbot/internal/signalstore"
)

// TupleKey identifies one unit of evaluation work.
type TupleKey struct {
	Strategy  string
	Symbol    string
	Timeframe string
}

func (k TupleKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Strategy, k.Symbol, k.Timeframe)
}

// backoffState tracks consecutive failures for one tuple.
type backoffState struct {
	failures     int
	delay        time.Duration
	nextEligible time.Time
}

// Status is the scheduler health snapshot served by the API.
type Status struct {
	Running        bool      `json:"running"`
	Healthy        bool      `json:"healthy"`
	CycleCount     int64     `json:"cycle_count"`
	LastCycleStart time.Time `json:"last_cycle_start,omitempty"`
	LastCycleTook  string    `json:"last_cycle_took,omitempty"`
	DegradedTuples []string  `json:"degraded_tuples,omitempty"`
}

// Scheduler drives the periodic evaluation of every
// (strategy, symbol, timeframe) tuple: fetch bars, evaluate, gate, size,
// and dispatch by automation mode. Tuples run concurrently within a
// cycle; a tuple still in flight when the next cycle starts is skipped,
// not queued.
type Scheduler struct {
	cfg        *config.Config
	strategies *config.Store
	market     broker.MarketDataSource
	account    broker.AccountSource
	gate       *sentiment.Gate
	riskMgr    *risk.Manager
	policy     *automation.Policy
	pending    *signalstore.Store
	recorder   *audit.Recorder
	log        zerolog.Logger

	mu             sync.Mutex
	watchlist      []string
	running        bool
	stopChan       chan struct{}
	wg             sync.WaitGroup
	inFlight       map[TupleKey]bool
	backoff        map[TupleKey]*backoffState
	cycleCount     int64
	lastCycleStart time.Time
	lastCycleTook  time.Duration
}

// New wires a scheduler over the evaluation pipeline.
func New(
	cfg *config.Config,
	strategies *config.Store,
	market broker.MarketDataSource,
	account broker.AccountSource,
	gate *sentiment.Gate,
	policy *automation.Policy,
	pending *signalstore.Store,
	recorder *audit.Recorder,
	log zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		strategies: strategies,
		market:     market,
		account:    account,
		gate:       gate,
		riskMgr:    risk.NewManager(),
		policy:     policy,
		pending:    pending,
		recorder:   recorder,
		log:        log,
		watchlist:  append([]string(nil), cfg.Watchlist...),
		inFlight:   make(map[TupleKey]bool),
		backoff:    make(map[TupleKey]*backoffState),
	}
}

// Watchlist returns a copy of the symbols evaluated each cycle.
func (s *Scheduler) Watchlist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.watchlist...)
}

// SetWatchlist replaces the evaluated symbols. The next cycle picks up
// the change; the cycle already in flight keeps its snapshot.
func (s *Scheduler) SetWatchlist(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchlist = append([]string(nil), symbols...)
}

// Start launches the cycle loop. Starting a running scheduler is an
// invalid state error.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return engerrors.New(engerrors.CategoryInvalidState, "scheduler", "Start", "already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.stopChan)

	s.log.Info().
		Dur("interval", s.cfg.CycleInterval).
		Strs("watchlist", s.watchlist).
		Msg("scheduler started")
	return nil
}

// Stop halts the loop and waits for in-flight tuples to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return engerrors.New(engerrors.CategoryInvalidState, "scheduler", "Stop", "not running")
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
	return nil
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the health snapshot. The scheduler is degraded once any
// tuple has failed more times in a row than the retry budget allows.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var degraded []string
	for key, bs := range s.backoff {
		if bs.failures > s.cfg.RetryBudget {
			degraded = append(degraded, key.String())
		}
	}
	sort.Strings(degraded)

	st := Status{
		Running:        s.running,
		Healthy:        len(degraded) == 0,
		CycleCount:     s.cycleCount,
		LastCycleStart: s.lastCycleStart,
		DegradedTuples: degraded,
	}
	if s.lastCycleTook > 0 {
		st.LastCycleTook = s.lastCycleTook.String()
	}
	if st.Healthy {
		monitoring.SchedulerHealthy.Set(1)
	} else {
		monitoring.SchedulerHealthy.Set(0)
	}
	return st
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CycleInterval)
	defer ticker.Stop()

	// First cycle runs immediately rather than one interval in.
	s.runCycle(context.Background())

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.runCycle(context.Background())
		}
	}
}

// runCycle performs one full evaluation pass: sweep expired pending
// signals, snapshot the account once, then evaluate every due tuple
// concurrently.
func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	s.cycleCount++
	s.lastCycleStart = start.UTC()
	s.mu.Unlock()

	expired := s.pending.SweepExpired(time.Now().UTC(), s.cfg.PendingTTL())
	for _, ps := range expired {
		s.log.Info().Str("signal_id", ps.ID).Str("symbol", ps.Signal.Symbol).Msg("pending signal expired")
		s.auditExpired(ps)
	}
	monitoring.PendingSignals.Set(float64(len(s.pending.List(signalstore.StatusPending))))

	snapCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout())
	snapshot, err := broker.Snapshot(snapCtx, s.account)
	cancel()
	if err != nil {
		// Without equity and positions no sizing is possible; the whole
		// cycle is skipped rather than half-run.
		s.log.Error().Err(err).Msg("account snapshot failed, skipping cycle")
		monitoring.ErrorsTotal.WithLabelValues(string(engerrors.CategoryOf(err))).Inc()
		return
	}

	var cycleWG sync.WaitGroup
	for _, unit := range s.workUnits() {
		unit := unit
		cycleWG.Add(1)
		go func() {
			defer cycleWG.Done()
			s.runUnit(ctx, unit, snapshot)
		}()
	}
	cycleWG.Wait()

	took := time.Since(start)
	s.mu.Lock()
	s.lastCycleTook = took
	s.mu.Unlock()
	monitoring.CycleDuration.Observe(took.Seconds())

	s.log.Debug().Dur("took", took).Msg("cycle complete")
}
