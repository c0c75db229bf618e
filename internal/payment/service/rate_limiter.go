package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CheckResult reports a rate-limit decision for one attempt.
type CheckResult struct {
	Allowed      bool
	BlockedUntil time.Time
}

// RateLimiter throttles tokenization attempts per subject key.
type RateLimiter interface {
	// Check consumes one attempt for the key. A denied attempt starts or
	// extends the cooldown window.
	Check(key string) CheckResult

	// Peek reports whether the key is currently blocked without consuming
	// an attempt.
	Peek(key string) CheckResult
}

// limiterEntry holds one subject's token bucket, cooldown state, and last
// access time for cleanup.
type limiterEntry struct {
	limiter      *rate.Limiter
	blockedUntil time.Time
	lastAccess   time.Time
	mu           sync.Mutex
}

type tokenBucketLimiter struct {
	entries   sync.Map // map[string]*limiterEntry
	perMinute int
	cooldown  time.Duration
}

// NewRateLimiter creates a per-key token bucket limiter allowing perMinute
// attempts with burst capacity equal to the full window. Exceeding the
// limit blocks the key for the cooldown duration. Stale entries are cleaned
// up in the background until ctx is cancelled.
func NewRateLimiter(ctx context.Context, perMinute int, cooldown time.Duration) RateLimiter {
	limiter := &tokenBucketLimiter{
		perMinute: perMinute,
		cooldown:  cooldown,
	}
	go limiter.cleanupStale(ctx, 5*time.Minute)
	return limiter
}

func (l *tokenBucketLimiter) getEntry(key string) *limiterEntry {
	if val, ok := l.entries.Load(key); ok {
		return val.(*limiterEntry)
	}
	entry := &limiterEntry{
		limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute),
	}
	actual, _ := l.entries.LoadOrStore(key, entry)
	return actual.(*limiterEntry)
}

func (l *tokenBucketLimiter) Check(key string) CheckResult {
	entry := l.getEntry(key)
	now := time.Now()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lastAccess = now

	if now.Before(entry.blockedUntil) {
		return CheckResult{Allowed: false, BlockedUntil: entry.blockedUntil}
	}
	if !entry.limiter.Allow() {
		entry.blockedUntil = now.Add(l.cooldown)
		return CheckResult{Allowed: false, BlockedUntil: entry.blockedUntil}
	}
	return CheckResult{Allowed: true}
}

func (l *tokenBucketLimiter) Peek(key string) CheckResult {
	entry := l.getEntry(key)
	now := time.Now()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lastAccess = now

	if now.Before(entry.blockedUntil) {
		return CheckResult{Allowed: false, BlockedUntil: entry.blockedUntil}
	}
	return CheckResult{Allowed: true}
}

// cleanupStale removes entries not accessed in the last hour.
func (l *tokenBucketLimiter) cleanupStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			threshold := time.Now().Add(-1 * time.Hour)
			l.entries.Range(func(key, value any) bool {
				entry := value.(*limiterEntry)
				entry.mu.Lock()
				stale := entry.lastAccess.Before(threshold)
				entry.mu.Unlock()
				if stale {
					l.entries.Delete(key)
				}
				return true
			})
		}
	}
}
