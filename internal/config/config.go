package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the engine-level configuration. Secrets (exchange keys,
// Telegram token) come from the environment, everything else from a JSON
// file with sensible defaults.
type Config struct {
	// Scheduler
	CycleInterval    time.Duration `json:"-"`
	CycleIntervalSec int           `json:"cycle_interval_seconds"`
	LookbackBars     int           `json:"lookback_bars"`
	FetchTimeoutSec  int           `json:"fetch_timeout_seconds"`
	MaxBackoffSec    int           `json:"max_backoff_seconds"`
	RetryBudget      int           `json:"retry_budget"`

	// Pending signal lifecycle
	PendingTTLMin int `json:"pending_ttl_minutes"`

	// Watchlist evaluated by every active strategy
	Watchlist []string `json:"watchlist"`

	// HTTP control surface
	HTTPAddr string `json:"http_addr"`

	// Storage
	DataDir       string `json:"data_dir"`
	StrategyFile  string `json:"strategy_file"`
	RedisAddr     string `json:"redis_addr"`
	SentimentTTLm int    `json:"sentiment_cache_ttl_minutes"`

	// Sentiment feeds
	SentimentFeeds []string `json:"sentiment_feeds"`

	// Exchange environment
	ExchangeDemo    bool `json:"exchange_demo"`
	ExchangeTestnet bool `json:"exchange_testnet"`

	// From environment only
	BybitAPIKey        string `json:"-"`
	BybitAPISecret     string `json:"-"`
	TelegramToken      string `json:"-"`
	TelegramChatID     string `json:"-"`
	LogLevel           string `json:"log_level"`
	LogFormat          string `json:"log_format"`
	AutoStartScheduler bool   `json:"auto_start_scheduler"`
}

// Default returns the baseline engine configuration.
func Default() *Config {
	return &Config{
		CycleIntervalSec: 300,
		LookbackBars:     200,
		FetchTimeoutSec:  15,
		MaxBackoffSec:    300,
		RetryBudget:      5,
		PendingTTLMin:    60,
		HTTPAddr:         ":8080",
		DataDir:          "data",
		StrategyFile:     "data/strategies.json",
		SentimentTTLm:    15,
		SentimentFeeds: []string{
			"https://feeds.marketwatch.com/marketwatch/topstories/",
			"https://www.cnbc.com/id/100003114/device/rss/rss.html",
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads the engine config file (optional) and applies environment
// overrides for secrets.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.BybitAPIKey = os.Getenv("BYBIT_API_KEY")
	cfg.BybitAPISecret = os.Getenv("BYBIT_API_SECRET")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}

	cfg.CycleInterval = time.Duration(cfg.CycleIntervalSec) * time.Second
	if cfg.CycleInterval <= 0 {
		return nil, fmt.Errorf("cycle_interval_seconds must be positive")
	}
	if cfg.LookbackBars < 50 {
		return nil, fmt.Errorf("lookback_bars must be at least 50")
	}
	return cfg, nil
}

// FetchTimeout returns the bound applied to every external fetch.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// MaxBackoff returns the backoff ceiling for failing tuples.
func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffSec) * time.Second
}

// PendingTTL returns how long a pending signal stays actionable.
func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLMin) * time.Minute
}

// SentimentTTL returns the sentiment cache lifetime.
func (c *Config) SentimentTTL() time.Duration {
	return time.Duration(c.SentimentTTLm) * time.Minute
}
