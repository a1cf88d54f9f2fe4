package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/pkg/types"
)

type klineResult struct {
	Symbol string     `json:"symbol"`
	List   [][]string `json:"list"`
}

// GetBars fetches lookback klines for a symbol and timeframe, returned in
// ascending time order. Bybit responds newest first, so the list is
// reversed before conversion.
func (c *Client) GetBars(ctx context.Context, symbol, timeframe string, lookback int) ([]types.OHLCV, error) {
	iv, err := interval(timeframe)
	if err != nil {
		return nil, engerrors.New(engerrors.CategoryConfig, "bybit", "GetBars", err.Error())
	}
	if err := c.marketLimit.Wait(ctx); err != nil {
		return nil, engerrors.Wrap(err, engerrors.CategoryRateLimited, "bybit", "GetBars")
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
		"interval": iv,
		"limit":    lookback,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, engerrors.Wrap(err, engerrors.CategoryUnavailable, "bybit", "GetBars")
	}

	var kr klineResult
	if err := decodeResponse(result, "GetBars", &kr); err != nil {
		return nil, err
	}

	bars := make([]types.OHLCV, 0, len(kr.List))
	for i := len(kr.List) - 1; i >= 0; i-- {
		row := kr.List[i]
		if len(row) < 6 {
			return nil, engerrors.New(engerrors.CategoryUnavailable, "bybit", "GetBars",
				fmt.Sprintf("malformed kline row for %s: %d fields", symbol, len(row)))
		}
		bars = append(bars, types.OHLCV{
			Timestamp: time.UnixMilli(parseMillis(row[0])).UTC(),
			Open:      parseFloat(row[1]),
			High:      parseFloat(row[2]),
			Low:       parseFloat(row[3]),
			Close:     parseFloat(row[4]),
			Volume:    parseFloat(row[5]),
		})
	}
	return bars, nil
}

// decodeResponse checks the API envelope and decodes Result into out.
func decodeResponse(response interface{}, op string, out interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return engerrors.New(engerrors.CategoryUnavailable, "bybit", op, "invalid response type")
	}
	if serverResp.RetCode != 0 {
		return apiError(op, serverResp.RetCode, serverResp.RetMsg)
	}
	raw, err := json.Marshal(serverResp.Result)
	if err != nil {
		return engerrors.Wrap(err, engerrors.CategoryUnavailable, "bybit", op)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return engerrors.Wrap(err, engerrors.CategoryUnavailable, "bybit", op)
	}
	return nil
}

// apiError maps a non-zero Bybit retCode to an engine error category.
// 10006 and 10018 are the documented rate-limit codes.
func apiError(op string, retCode int, retMsg string) error {
	msg := fmt.Sprintf("bybit API error %d: %s", retCode, retMsg)
	switch retCode {
	case 10006, 10018:
		return engerrors.New(engerrors.CategoryRateLimited, "bybit", op, msg)
	default:
		return engerrors.New(engerrors.CategoryUnavailable, "bybit", op, msg)
	}
}
