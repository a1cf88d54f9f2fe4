package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket guarding calls to the exchange API. One
// limiter per call category (market data, account, trading) keeps a burst
// of tuple evaluations from tripping exchange-side limits.
type Limiter struct {
	capacity   int
	tokens     int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// New creates a limiter that starts full.
func New(capacity, refillRate int) *Limiter {
	return &Limiter{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	if l.tokens > 0 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second / time.Duration(max(l.refillRate, 1))):
		}
	}
}

func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill)
	if elapsed < time.Second {
		return
	}
	added := int(elapsed.Seconds()) * l.refillRate
	l.tokens = min(l.capacity, l.tokens+added)
	l.lastRefill = now
}
