package indicators

import (
	"math"
	"time"

	"github.com/quangtran88/signalbot/pkg/types"
)

// generateTestData produces a smooth oscillating price series so indicator
// values stay well defined.
func generateTestData(n int) []types.OHLCV {
	data := make([]types.OHLCV, n)
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price := 100 + 10*math.Sin(float64(i)/5)
		data[i] = types.OHLCV{
			Open:      price - 0.5,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1000 + float64(i%7)*100,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return data
}

// generateFlatData produces bars with identical high/low/close, the
// degenerate case for range-based oscillators.
func generateFlatData(n int) []types.OHLCV {
	data := make([]types.OHLCV, n)
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		data[i] = types.OHLCV{
			Open:      100,
			High:      100,
			Low:       100,
			Close:     100,
			Volume:    1000,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return data
}
