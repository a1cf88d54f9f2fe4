package indicators

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginerrors "github.com/quangtran88/signalbot/internal/errors"
)

func TestStochastic_Calculate_InsufficientData(t *testing.T) {
	stoch := NewStochastic(14, 3)
	data := generateTestData(10)

	_, err := stoch.Calculate(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, enginerrors.ErrInsufficientData))
}

func TestStochastic_Calculate_Bounds(t *testing.T) {
	stoch := NewStochastic(14, 3)
	data := generateTestData(100)

	series, err := stoch.Calculate(data)
	require.NoError(t, err)

	for i := series.KValidFrom; i < len(series.K); i++ {
		assert.GreaterOrEqual(t, series.K[i], 0.0, "bar %d", i)
		assert.LessOrEqual(t, series.K[i], 100.0, "bar %d", i)
	}
	for i := series.DValidFrom; i < len(series.D); i++ {
		assert.GreaterOrEqual(t, series.D[i], 0.0, "bar %d", i)
		assert.LessOrEqual(t, series.D[i], 100.0, "bar %d", i)
	}
}

func TestStochastic_Calculate_FlatRangeIsNeutral(t *testing.T) {
	stoch := NewStochastic(14, 3)
	data := generateFlatData(30)

	series, err := stoch.Calculate(data)
	require.NoError(t, err)

	for i := series.KValidFrom; i < len(series.K); i++ {
		assert.Equal(t, 50.0, series.K[i], "bar %d", i)
	}
	for i := series.DValidFrom; i < len(series.D); i++ {
		assert.Equal(t, 50.0, series.D[i], "bar %d", i)
	}
}

func TestStochastic_Calculate_CloseAtExtremes(t *testing.T) {
	// Close pinned to the window high reads 100, pinned to the low reads 0.
	data := generateTestData(20)
	for i := range data {
		data[i].High = 110
		data[i].Low = 90
		data[i].Close = 110
	}
	stoch := NewStochastic(5, 3)

	series, err := stoch.Calculate(data)
	require.NoError(t, err)
	k, _, err := series.Latest()
	require.NoError(t, err)
	assert.Equal(t, 100.0, k)

	for i := range data {
		data[i].Close = 90
	}
	series, err = stoch.Calculate(data)
	require.NoError(t, err)
	k, _, err = series.Latest()
	require.NoError(t, err)
	assert.Equal(t, 0.0, k)
}

func TestStochastic_Calculate_DIsSMAOfK(t *testing.T) {
	stoch := NewStochastic(14, 3)
	data := generateTestData(60)

	series, err := stoch.Calculate(data)
	require.NoError(t, err)

	last := len(data) - 1
	expected := (series.K[last] + series.K[last-1] + series.K[last-2]) / 3
	_, d, err := series.Latest()
	require.NoError(t, err)
	assert.InDelta(t, expected, d, 1e-9)
}

func TestStochasticSeries_At_BeforeLookback(t *testing.T) {
	stoch := NewStochastic(14, 3)
	data := generateTestData(30)

	series, err := stoch.Calculate(data)
	require.NoError(t, err)

	_, _, err = series.At(series.DValidFrom - 1)
	assert.True(t, errors.Is(err, enginerrors.ErrInsufficientData))
}

func TestStochastic_Calculate_ExactMinimum(t *testing.T) {
	stoch := NewStochastic(14, 3)
	data := generateTestData(stoch.RequiredPeriods())

	series, err := stoch.Calculate(data)
	require.NoError(t, err)

	_, _, err = series.Latest()
	assert.NoError(t, err)
	_, _, err = series.Previous()
	assert.Error(t, err, "one bar short of a defined previous value")
}

func TestStochastic_Calculate_Deterministic(t *testing.T) {
	stoch := NewStochastic(14, 3)
	data := generateTestData(80)

	a, err := stoch.Calculate(data)
	require.NoError(t, err)
	b, err := stoch.Calculate(data)
	require.NoError(t, err)

	assert.Equal(t, a.K, b.K)
	assert.Equal(t, a.D, b.D)
}

func BenchmarkStochastic_Calculate(b *testing.B) {
	stoch := NewStochastic(14, 3)
	data := generateTestData(500)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = stoch.Calculate(data)
	}
}
