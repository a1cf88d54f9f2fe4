package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtran88/signalbot/internal/audit"
	"github.com/quangtran88/signalbot/internal/broker"
	"github.com/quangtran88/signalbot/internal/config"
	"github.com/quangtran88/signalbot/internal/logger"
	"github.com/quangtran88/signalbot/internal/risk"
	"github.com/quangtran88/signalbot/internal/signalstore"
	"github.com/quangtran88/signalbot/internal/storage"
	"github.com/quangtran88/signalbot/internal/strategy"
)

type mockExecutor struct {
	submitted []broker.OrderRequest
	err       error
}

func (m *mockExecutor) SubmitOrder(ctx context.Context, req broker.OrderRequest) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.submitted = append(m.submitted, req)
	return "order-xyz", nil
}

func (m *mockExecutor) CancelOrder(ctx context.Context, orderRef string) error { return nil }

type mockNotifier struct {
	notes []string
}

func (m *mockNotifier) NotifySignal(ctx context.Context, sig *strategy.TradingSignal, dec risk.Decision, note string) error {
	m.notes = append(m.notes, note)
	return nil
}

func newPolicyUnderTest(t *testing.T, exec broker.OrderExecutor, notifier Notifier) (*Policy, *signalstore.Store, *audit.Recorder) {
	t.Helper()
	pending, err := signalstore.NewStore(storage.NewMemoryKV(), exec, logger.Nop())
	require.NoError(t, err)
	recorder := audit.NewRecorder(storage.NewMemoryKV())
	return NewPolicy(exec, pending, recorder, notifier, logger.Nop()), pending, recorder
}

func signalFixture() *strategy.TradingSignal {
	return &strategy.TradingSignal{
		ID:           uuid.NewString(),
		Symbol:       "MSFT",
		Timeframe:    "1D",
		StrategyName: "default",
		Direction:    strategy.DirectionBuy,
		Confidence:   0.7,
		Price:        400,
	}
}

func decisionFixture() risk.Decision {
	return risk.Decision{Approved: true, SizedQuantity: 5, StopLossPrice: 392}
}

func TestPolicy_AutoSubmitsOrder(t *testing.T) {
	exec := &mockExecutor{}
	notifier := &mockNotifier{}
	policy, pending, recorder := newPolicyUnderTest(t, exec, notifier)

	err := policy.Dispatch(context.Background(), signalFixture(), decisionFixture(), config.ModeAuto)
	require.NoError(t, err)

	require.Len(t, exec.submitted, 1)
	assert.Equal(t, "MSFT", exec.submitted[0].Symbol)
	assert.Empty(t, pending.List(""), "auto mode must not queue")

	records := recorder.List(10)
	require.Len(t, records, 1)
	assert.Equal(t, audit.OutcomeExecuted, records[0].Outcome)
	assert.Equal(t, "order-xyz", records[0].OrderRef)
}

func TestPolicy_AlertOnlyNeverSubmits(t *testing.T) {
	exec := &mockExecutor{}
	notifier := &mockNotifier{}
	policy, pending, recorder := newPolicyUnderTest(t, exec, notifier)

	err := policy.Dispatch(context.Background(), signalFixture(), decisionFixture(), config.ModeAlertOnly)
	require.NoError(t, err)

	assert.Empty(t, exec.submitted, "alert_only must never reach the executor")
	assert.Empty(t, pending.List(""))

	records := recorder.List(10)
	require.Len(t, records, 1)
	assert.Equal(t, audit.OutcomeAlerted, records[0].Outcome)
	require.Len(t, notifier.notes, 1)
	assert.Contains(t, notifier.notes[0], "no order placed")
}

func TestPolicy_SemiAutoQueues(t *testing.T) {
	exec := &mockExecutor{}
	policy, pending, recorder := newPolicyUnderTest(t, exec, &mockNotifier{})

	sig := signalFixture()
	err := policy.Dispatch(context.Background(), sig, decisionFixture(), config.ModeSemiAuto)
	require.NoError(t, err)

	assert.Empty(t, exec.submitted, "semi_auto waits for confirmation")

	queued := pending.List(signalstore.StatusPending)
	require.Len(t, queued, 1)
	assert.Equal(t, sig.ID, queued[0].ID)

	records := recorder.List(10)
	require.Len(t, records, 1)
	assert.Equal(t, audit.OutcomeQueued, records[0].Outcome)
}

func TestPolicy_AutoFailureRecordedNotRetried(t *testing.T) {
	exec := &mockExecutor{err: errors.New("exchange rejected")}
	policy, _, recorder := newPolicyUnderTest(t, exec, &mockNotifier{})

	err := policy.Dispatch(context.Background(), signalFixture(), decisionFixture(), config.ModeAuto)
	require.Error(t, err)

	records := recorder.List(10)
	require.Len(t, records, 1)
	assert.Equal(t, audit.OutcomeFailed, records[0].Outcome)
	assert.Contains(t, records[0].Reason, "exchange rejected")
}

func TestPolicy_UnknownModeRejected(t *testing.T) {
	policy, _, _ := newPolicyUnderTest(t, &mockExecutor{}, nil)
	err := policy.Dispatch(context.Background(), signalFixture(), decisionFixture(), config.AutomationMode("manual"))
	require.Error(t, err)
}
