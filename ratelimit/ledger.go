// Package ratelimit implements a per-caller sliding window request limiter.
package ratelimit

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of accepted requests per window.
	DefaultLimit = 10

	// DefaultWindow is the length of the trailing window.
	DefaultWindow = time.Minute
)

// ErrRateLimited is returned when a caller has used up its window.
var ErrRateLimited = errors.New("rate limit exceeded")

// Ledger remembers, per caller, the times of accepted requests within the
// trailing window. Rejected requests are not recorded.
type Ledger struct {
	limit  int
	window time.Duration
	now    func() time.Time

	// mu protects requests.
	mu       sync.Mutex
	requests map[string][]time.Time
}

// NewLedger creates a ledger accepting limit requests per window per caller.
// Non-positive arguments fall back to the defaults.
func NewLedger(limit int, window time.Duration) *Ledger {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Ledger{
		limit:    limit,
		window:   window,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

// WithClock replaces the time source. Intended for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Limit returns the per-window request allowance.
func (l *Ledger) Limit() int { return l.limit }

// Window returns the window length.
func (l *Ledger) Window() time.Duration { return l.window }

// Allow charges one request to caller at the current time.
func (l *Ledger) Allow(caller string) error {
	return l.AllowAt(caller, l.now())
}

// AllowAt charges one request to caller at now. It returns ErrRateLimited,
// recording nothing, when caller already has limit requests in the window.
func (l *Ledger) AllowAt(caller string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(caller, now)
	if len(recent) >= l.limit {
		return ErrRateLimited
	}
	l.requests[caller] = append(recent, now)
	return nil
}

// Remaining returns how many more requests caller may make right now.
func (l *Ledger) Remaining(caller string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.limit - len(l.prune(caller, l.now()))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RetryAfter returns how long until caller's oldest recorded request leaves
// the window, or zero if caller has room now.
func (l *Ledger) RetryAfter(caller string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(caller, now)
	if len(recent) < l.limit {
		return 0
	}
	return recent[0].Add(l.window).Sub(now)
}

// prune drops timestamps that are at least window old and evicts the caller
// if nothing is left. Caller must hold mu.
func (l *Ledger) prune(caller string, now time.Time) []time.Time {
	stamps, ok := l.requests[caller]
	if !ok {
		return nil
	}

	i := 0
	for i < len(stamps) && now.Sub(stamps[i]) >= l.window {
		i++
	}
	recent := stamps[i:]

	if len(recent) == 0 {
		delete(l.requests, caller)
		return nil
	}
	if i > 0 {
		l.requests[caller] = recent
	}
	return recent
}

// Sweep prunes every caller and evicts the idle ones. It returns the number
// of callers evicted.
func (l *Ledger) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.requests)
	for caller := range l.requests {
		l.prune(caller, now)
	}
	return before - len(l.requests)
}

// Len returns the number of callers currently tracked.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// Run sweeps the ledger every interval until ctx is done.
func (l *Ledger) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := l.Sweep(l.now()); n > 0 {
				log.Printf("[RateLimit] Evicted %d idle callers", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
