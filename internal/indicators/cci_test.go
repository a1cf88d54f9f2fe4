package indicators

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginerrors "github.com/quangtran88/signalbot/internal/errors"
)

func TestCCI_Calculate_InsufficientData(t *testing.T) {
	cci := NewCCI(20)
	data := generateTestData(10)

	_, err := cci.Calculate(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, enginerrors.ErrInsufficientData))
}

func TestCCI_Calculate_FlatMarketIsZero(t *testing.T) {
	cci := NewCCI(20)
	data := generateFlatData(40)

	series, err := cci.Calculate(data)
	require.NoError(t, err)

	for i := series.ValidFrom; i < len(series.Values); i++ {
		assert.Equal(t, 0.0, series.Values[i], "bar %d", i)
	}
}

func TestCCI_Calculate_RisingMarketIsPositive(t *testing.T) {
	cci := NewCCI(10)
	data := generateFlatData(30)
	for i := range data {
		price := 100 + float64(i)
		data[i].Open = price
		data[i].High = price + 1
		data[i].Low = price - 1
		data[i].Close = price
	}

	series, err := cci.Calculate(data)
	require.NoError(t, err)

	latest, err := series.Latest()
	require.NoError(t, err)
	assert.Greater(t, latest, 0.0)
}

func TestCCI_Calculate_KnownValue(t *testing.T) {
	// Five flat bars then a jump: tp = [100 100 100 100 110],
	// mean = 102, mad = (2+2+2+2+8)/5 = 3.2, cci = 8/(0.015*3.2).
	cci := NewCCI(5)
	data := generateFlatData(5)
	data[4].High = 110
	data[4].Low = 110
	data[4].Close = 110

	series, err := cci.Calculate(data)
	require.NoError(t, err)

	latest, err := series.Latest()
	require.NoError(t, err)
	assert.InDelta(t, 8.0/(0.015*3.2), latest, 1e-9)
}

func TestCCISeries_At_BeforeLookback(t *testing.T) {
	cci := NewCCI(20)
	data := generateTestData(40)

	series, err := cci.Calculate(data)
	require.NoError(t, err)

	_, err = series.At(series.ValidFrom - 1)
	assert.True(t, errors.Is(err, enginerrors.ErrInsufficientData))
}

func TestCCI_Calculate_Deterministic(t *testing.T) {
	cci := NewCCI(20)
	data := generateTestData(100)

	a, err := cci.Calculate(data)
	require.NoError(t, err)
	b, err := cci.Calculate(data)
	require.NoError(t, err)

	assert.Equal(t, a.Values, b.Values)
}

func BenchmarkCCI_Calculate(b *testing.B) {
	cci := NewCCI(20)
	data := generateTestData(500)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = cci.Calculate(data)
	}
}
