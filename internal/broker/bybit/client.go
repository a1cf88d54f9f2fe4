package bybit

import (
	"fmt"
	"strconv"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/quangtran88/signalbot/internal/broker/ratelimit"
)

// Client implements the broker interfaces over the Bybit v5 API. It keeps
// per-category rate limiters so market-data polling cannot starve order
// submission.
type Client struct {
	httpClient *bybit_api.Client
	category   string

	marketLimit  *ratelimit.Limiter
	accountLimit *ratelimit.Limiter
	tradeLimit   *ratelimit.Limiter
}

// Config holds the Bybit connection settings.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool
	Category  string // "spot", "linear"
}

// NewClient creates a Bybit-backed broker client.
func NewClient(cfg Config) *Client {
	var baseURL string
	switch {
	case cfg.Demo:
		baseURL = "https://api-demo.bybit.com"
	case cfg.Testnet:
		baseURL = bybit_api.TESTNET
	default:
		baseURL = bybit_api.MAINNET
	}

	category := cfg.Category
	if category == "" {
		category = "spot"
	}

	return &Client{
		httpClient: bybit_api.NewBybitHttpClient(
			cfg.APIKey,
			cfg.APISecret,
			bybit_api.WithBaseURL(baseURL),
		),
		category:     category,
		marketLimit:  ratelimit.New(50, 50),
		accountLimit: ratelimit.New(20, 20),
		tradeLimit:   ratelimit.New(10, 10),
	}
}

// interval maps engine timeframes to Bybit kline intervals.
func interval(timeframe string) (string, error) {
	switch timeframe {
	case "1m":
		return "1", nil
	case "5m":
		return "5", nil
	case "15m":
		return "15", nil
	case "30m":
		return "30", nil
	case "1H":
		return "60", nil
	case "4H":
		return "240", nil
	case "1D":
		return "D", nil
	case "1W":
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseMillis(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
