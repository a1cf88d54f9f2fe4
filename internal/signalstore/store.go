package signalstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quangtran88/signalbot/internal/broker"
	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/internal/risk"
	"github.com/quangtran88/signalbot/internal/storage"
	"github.com/quangtran88/signalbot/internal/strategy"
)

// Status is the lifecycle state of a pending signal. Pending and
// confirming are the non-terminal states; confirmed, rejected and expired
// are final and never mutated again.
type Status string

const (
	StatusPending Status = "pending"

	// A confirmation's order submission is in flight. Held in memory only:
	// a crash mid-submission reloads the signal as pending.
	StatusConfirming Status = "confirming"

	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
)

// PendingSignal is a signal awaiting operator confirmation in semi_auto
// mode.
type PendingSignal struct {
	ID        string                  `json:"id"`
	Signal    *strategy.TradingSignal `json:"signal"`
	Decision  risk.Decision           `json:"decision"`
	Status    Status                  `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
	DecidedAt *time.Time              `json:"decided_at,omitempty"`
	OrderRef  string                  `json:"order_ref,omitempty"`
}

// clone returns a copy safe to hand to callers; the store keeps mutating
// its own instance under the lock.
func (ps *PendingSignal) clone() *PendingSignal {
	cp := *ps
	return &cp
}

const keyPrefix = "pending:"

// Store holds pending signals, persists them across restarts, and
// executes confirmations through the order executor.
type Store struct {
	mu       sync.Mutex
	signals  map[string]*PendingSignal
	kv       storage.KV
	executor broker.OrderExecutor
	log      zerolog.Logger
}

// NewStore creates a store backed by kv, reloading any persisted signals.
// Signals still pending from a previous run stay pending; their TTL is
// enforced against the original creation time on the next sweep.
func NewStore(kv storage.KV, executor broker.OrderExecutor, log zerolog.Logger) (*Store, error) {
	s := &Store{
		signals:  make(map[string]*PendingSignal),
		kv:       kv,
		executor: executor,
		log:      log,
	}
	err := kv.Scan(keyPrefix, func(key string, value []byte) error {
		var ps PendingSignal
		if err := json.Unmarshal(value, &ps); err != nil {
			return fmt.Errorf("corrupt pending signal at %q: %w", key, err)
		}
		s.signals[ps.ID] = &ps
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load pending signals: %w", err)
	}
	return s, nil
}

// Enqueue stores an approved signal in the pending state.
func (s *Store) Enqueue(sig *strategy.TradingSignal, dec risk.Decision) (*PendingSignal, error) {
	ps := &PendingSignal{
		ID:        sig.ID,
		Signal:    sig,
		Decision:  dec,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.signals[ps.ID]; exists {
		return nil, engerrors.New(engerrors.CategoryInvalidState, "signalstore", "Enqueue",
			fmt.Sprintf("signal %s already queued", ps.ID))
	}
	s.signals[ps.ID] = ps
	if err := s.persist(ps); err != nil {
		return nil, err
	}
	return ps.clone(), nil
}

// Confirm executes the pending signal's order and marks it confirmed.
// Only pending signals can be confirmed; a failed order submission leaves
// the signal pending so the operator can retry or reject.
func (s *Store) Confirm(ctx context.Context, id string) (*PendingSignal, error) {
	s.mu.Lock()
	ps, ok := s.signals[id]
	if !ok {
		s.mu.Unlock()
		return nil, engerrors.New(engerrors.CategoryInvalidState, "signalstore", "Confirm",
			fmt.Sprintf("signal %s: %v", id, engerrors.ErrNotFound))
	}
	if ps.Status != StatusPending {
		s.mu.Unlock()
		return nil, engerrors.New(engerrors.CategoryInvalidState, "signalstore", "Confirm",
			fmt.Sprintf("signal %s is %s, only pending signals can be confirmed", id, ps.Status))
	}
	// Marking the signal confirming keeps sweeps, rejections and a second
	// Confirm away while the order is in flight.
	ps.Status = StatusConfirming
	req := orderRequest(ps)
	s.mu.Unlock()

	// Order submission happens outside the lock; the exchange round trip
	// must not block reads and sweeps.
	orderRef, err := s.executor.SubmitOrder(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		ps.Status = StatusPending
		s.log.Error().Err(err).Str("signal_id", id).Msg("order submission failed, signal stays pending")
		return nil, engerrors.Wrap(err, engerrors.CategoryUnavailable, "signalstore", "Confirm")
	}
	now := time.Now().UTC()
	ps.Status = StatusConfirmed
	ps.DecidedAt = &now
	ps.OrderRef = orderRef
	if err := s.persist(ps); err != nil {
		return nil, err
	}
	return ps.clone(), nil
}

// Reject marks a pending signal rejected without any order activity.
func (s *Store) Reject(id string) (*PendingSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.signals[id]
	if !ok {
		return nil, engerrors.New(engerrors.CategoryInvalidState, "signalstore", "Reject",
			fmt.Sprintf("signal %s: %v", id, engerrors.ErrNotFound))
	}
	if ps.Status != StatusPending {
		return nil, engerrors.New(engerrors.CategoryInvalidState, "signalstore", "Reject",
			fmt.Sprintf("signal %s is %s, only pending signals can be rejected", id, ps.Status))
	}
	now := time.Now().UTC()
	ps.Status = StatusRejected
	ps.DecidedAt = &now
	if err := s.persist(ps); err != nil {
		return nil, err
	}
	return ps.clone(), nil
}

// SweepExpired transitions pending signals older than ttl to expired and
// returns them. Running it twice over the same set is a no-op the second
// time.
func (s *Store) SweepExpired(now time.Time, ttl time.Duration) []*PendingSignal {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*PendingSignal
	for _, ps := range s.signals {
		if ps.Status != StatusPending {
			continue
		}
		if now.Sub(ps.CreatedAt) < ttl {
			continue
		}
		decided := now.UTC()
		ps.Status = StatusExpired
		ps.DecidedAt = &decided
		if err := s.persist(ps); err != nil {
			s.log.Error().Err(err).Str("signal_id", ps.ID).Msg("failed to persist expiry")
		}
		expired = append(expired, ps.clone())
	}
	return expired
}

// Get returns the signal with the given id.
func (s *Store) Get(id string) (*PendingSignal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.signals[id]
	if !ok {
		return nil, false
	}
	return ps.clone(), true
}

// List returns signals matching the status filter, newest first. An empty
// status returns everything.
func (s *Store) List(status Status) []*PendingSignal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*PendingSignal, 0, len(s.signals))
	for _, ps := range s.signals {
		if status != "" && ps.Status != status {
			continue
		}
		out = append(out, ps.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) persist(ps *PendingSignal) error {
	raw, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("failed to encode pending signal: %w", err)
	}
	if err := s.kv.Put(keyPrefix+ps.ID, raw); err != nil {
		return fmt.Errorf("failed to persist pending signal: %w", err)
	}
	return nil
}

func orderRequest(ps *PendingSignal) broker.OrderRequest {
	return broker.OrderRequest{
		Symbol:              ps.Signal.Symbol,
		Direction:           ps.Signal.Direction,
		Quantity:            ps.Decision.SizedQuantity,
		StopLoss:            ps.Decision.StopLossPrice,
		TrailingStopPercent: ps.Decision.TrailingStopPercent,
	}
}
