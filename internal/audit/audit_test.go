package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtran88/signalbot/internal/storage"
)

func record(i int, outcome Outcome) Record {
	return Record{
		ID:        fmt.Sprintf("sig-%03d", i),
		Time:      time.Date(2025, 6, 2, 10, 0, i, 0, time.UTC),
		Strategy:  "default",
		Symbol:    "AAPL",
		Timeframe: "1D",
		Direction: "buy",
		Outcome:   outcome,
	}
}

func TestRecorder_ListNewestFirst(t *testing.T) {
	r := NewRecorder(storage.NewMemoryKV())

	require.NoError(t, r.Record(record(1, OutcomeAlerted)))
	require.NoError(t, r.Record(record(2, OutcomeExecuted)))
	require.NoError(t, r.Record(record(3, OutcomeBlocked)))

	got := r.List(2)
	require.Len(t, got, 2)
	assert.Equal(t, "sig-003", got[0].ID)
	assert.Equal(t, "sig-002", got[1].ID)

	all := r.List(0)
	assert.Len(t, all, 3)
}

func TestRecorder_LoadAllChronological(t *testing.T) {
	kv := storage.NewMemoryKV()
	r := NewRecorder(kv)

	// Insert out of order; LoadAll must sort by time.
	require.NoError(t, r.Record(record(5, OutcomeExecuted)))
	require.NoError(t, r.Record(record(1, OutcomeAlerted)))
	require.NoError(t, r.Record(record(3, OutcomeQueued)))

	records, err := r.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "sig-001", records[0].ID)
	assert.Equal(t, "sig-003", records[1].ID)
	assert.Equal(t, "sig-005", records[2].ID)
}

func TestRecorder_SurvivesRestart(t *testing.T) {
	kv := storage.NewMemoryKV()
	r := NewRecorder(kv)
	require.NoError(t, r.Record(record(1, OutcomeExecuted)))

	// A fresh recorder over the same store has an empty recent window but
	// the persisted trail intact.
	reloaded := NewRecorder(kv)
	assert.Empty(t, reloaded.List(10))

	records, err := reloaded.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, OutcomeExecuted, records[0].Outcome)
}

func TestRecorder_ZeroTimeDefaulted(t *testing.T) {
	r := NewRecorder(storage.NewMemoryKV())
	rec := record(1, OutcomeAlerted)
	rec.Time = time.Time{}

	require.NoError(t, r.Record(rec))
	got := r.List(1)
	require.Len(t, got, 1)
	assert.False(t, got[0].Time.IsZero())
}
