package bybit

import (
	"context"

	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/pkg/types"
)

type walletResult struct {
	List []struct {
		TotalEquity           string `json:"totalEquity"`
		AccountType           string `json:"accountType"`
		TotalAvailableBalance string `json:"totalAvailableBalance"`
		TotalWalletBalance    string `json:"totalWalletBalance"`
	} `json:"list"`
}

type positionResult struct {
	List []struct {
		Symbol       string `json:"symbol"`
		Side         string `json:"side"`
		Size         string `json:"size"`
		AvgPrice     string `json:"avgPrice"`
		EntryPrice   string `json:"entryPrice"`
		PositionIdx  int    `json:"positionIdx"`
		TrailingStop string `json:"trailingStop"`
	} `json:"list"`
}

// GetEquity reads the unified account's total equity in USD.
func (c *Client) GetEquity(ctx context.Context) (float64, error) {
	if err := c.accountLimit.Wait(ctx); err != nil {
		return 0, engerrors.Wrap(err, engerrors.CategoryRateLimited, "bybit", "GetEquity")
	}

	params := map[string]interface{}{
		"accountType": "UNIFIED",
	}
	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return 0, engerrors.Wrap(err, engerrors.CategoryUnavailable, "bybit", "GetEquity")
	}

	var wr walletResult
	if err := decodeResponse(result, "GetEquity", &wr); err != nil {
		return 0, err
	}
	if len(wr.List) == 0 {
		return 0, engerrors.New(engerrors.CategoryUnavailable, "bybit", "GetEquity", "no account data returned")
	}
	return parseFloat(wr.List[0].TotalEquity), nil
}

// GetOpenPositions lists the account's nonzero positions. Short sides are
// ignored since the engine is long only.
func (c *Client) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	if err := c.accountLimit.Wait(ctx); err != nil {
		return nil, engerrors.Wrap(err, engerrors.CategoryRateLimited, "bybit", "GetOpenPositions")
	}

	params := map[string]interface{}{
		"category":   c.category,
		"settleCoin": "USDT",
	}
	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	if err != nil {
		return nil, engerrors.Wrap(err, engerrors.CategoryUnavailable, "bybit", "GetOpenPositions")
	}

	var pr positionResult
	if err := decodeResponse(result, "GetOpenPositions", &pr); err != nil {
		return nil, err
	}

	positions := make([]types.Position, 0, len(pr.List))
	for _, p := range pr.List {
		size := parseFloat(p.Size)
		if size <= 0 || p.Side == "Sell" {
			continue
		}
		entry := parseFloat(p.AvgPrice)
		if entry == 0 {
			entry = parseFloat(p.EntryPrice)
		}
		positions = append(positions, types.Position{
			Symbol:     p.Symbol,
			Quantity:   size,
			EntryPrice: entry,
		})
	}
	return positions, nil
}
