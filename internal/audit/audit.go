package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quangtran88/signalbot/internal/storage"
)

// Outcome records what happened to a derived signal.
type Outcome string

const (
	OutcomeExecuted  Outcome = "executed"
	OutcomeAlerted   Outcome = "alerted"
	OutcomeQueued    Outcome = "queued"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeExpired   Outcome = "expired"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeFailed    Outcome = "failed"
)

// Record is one entry in the signal audit trail.
type Record struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Strategy   string    `json:"strategy"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Direction  string    `json:"direction"`
	Confidence float64   `json:"confidence"`
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	OrderRef   string    `json:"order_ref,omitempty"`
	Quantity   float64   `json:"quantity,omitempty"`
}

const keyPrefix = "audit:"

// recentCap bounds the in-memory ring served to the API without a disk
// scan.
const recentCap = 256

// Recorder persists the audit trail and keeps a small in-memory window of
// recent entries for fast reads.
type Recorder struct {
	kv storage.KV

	mu     sync.RWMutex
	recent []Record
}

// NewRecorder creates a recorder over kv.
func NewRecorder(kv storage.KV) *Recorder {
	return &Recorder{kv: kv}
}

// Record appends an entry to the trail. Persistence failure does not lose
// the entry for API reads; it stays in the recent window.
func (r *Recorder) Record(rec Record) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}

	r.mu.Lock()
	r.recent = append(r.recent, rec)
	if len(r.recent) > recentCap {
		r.recent = r.recent[len(r.recent)-recentCap:]
	}
	r.mu.Unlock()

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode audit record: %w", err)
	}
	key := fmt.Sprintf("%s%d:%s", keyPrefix, rec.Time.UnixNano(), rec.ID)
	if err := r.kv.Put(key, raw); err != nil {
		return fmt.Errorf("failed to persist audit record: %w", err)
	}
	return nil
}

// List returns up to limit recent records, newest first.
func (r *Recorder) List(limit int) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Record, limit)
	for i := 0; i < limit; i++ {
		out[i] = r.recent[n-1-i]
	}
	return out
}

// LoadAll reads the full persisted trail in chronological order, for
// export.
func (r *Recorder) LoadAll() ([]Record, error) {
	var records []Record
	err := r.kv.Scan(keyPrefix, func(key string, value []byte) error {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("corrupt audit record at %q: %w", key, err)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Time.Before(records[j].Time) })
	return records, nil
}
