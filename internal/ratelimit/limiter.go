// Package ratelimit provides the per-caller admission gate.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Remaining int
}

// Config holds token bucket parameters.
type Config struct {
	// Burst is the bucket capacity; first-seen keys start full.
	Burst int
	// RefillInterval is the fixed interval between refills.
	RefillInterval time.Duration
	// RefillAmount is the number of tokens added per whole elapsed interval.
	RefillAmount int
	// CleanupInterval is how often idle buckets are evicted (default: 1 minute).
	CleanupInterval time.Duration
}

// Limiter is a per-key token bucket admission gate. It is a soft,
// per-instance limiter: no state survives a restart and no coordination
// happens across instances.
//
// Check-and-consume is atomic per key; concurrent requests for the same key
// serialize on the bucket's mutex, so a final token can never be spent
// twice. Keys do not contend with each other beyond the map lookup.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stopCh   chan struct{}
	stopOnce sync.Once
}

// bucket tracks the token balance for one caller key.
//
// Invariant: 0 <= tokens <= cfg.Burst. lastRefill only ever advances by
// whole refill intervals so the fractional remainder is carried forward,
// never lost.
type bucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time

	// deleted marks a bucket evicted from the map between a caller's map
	// lookup and its lock acquisition; such callers must retry on the
	// live map instead of spending tokens on the orphan.
	deleted bool
}

// UserKey builds the caller key for a user identifier.
func UserKey(userID string) string {
	return "u:" + userID
}

// New creates a limiter and starts its idle-bucket cleanup loop.
func New(cfg Config) *Limiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = 6 * time.Second
	}
	if cfg.RefillAmount <= 0 {
		cfg.RefillAmount = 1
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	lim := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
	go lim.cleanupLoop()
	return lim
}

// Allow attempts to consume one token for the given key.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()
	for {
		b := l.bucket(key, now)

		b.mu.Lock()
		if b.deleted {
			// Evicted between the map lookup and here; retry on the live map
			b.mu.Unlock()
			continue
		}

		b.refillLocked(now, l.cfg)
		b.lastSeen = now

		d := Decision{}
		if b.tokens > 0 {
			b.tokens--
			d = Decision{Allowed: true, Remaining: b.tokens}
		}
		b.mu.Unlock()
		return d
	}
}

// Close stops the cleanup loop. Safe to call more than once.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// bucket returns the bucket for key, creating a full one on first sight.
func (l *Limiter) bucket(key string, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			tokens:     l.cfg.Burst,
			lastRefill: now,
			lastSeen:   now,
		}
		l.buckets[key] = b
	}
	return b
}

// refillLocked credits tokens for every whole refill interval elapsed since
// lastRefill, capped at burst. Caller holds b.mu.
func (b *bucket) refillLocked(now time.Time, cfg Config) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed < cfg.RefillInterval {
		return
	}

	intervals := int(elapsed / cfg.RefillInterval)
	b.tokens += intervals * cfg.RefillAmount
	if b.tokens > cfg.Burst {
		b.tokens = cfg.Burst
	}
	// Advance by the consumed whole intervals only; the remainder keeps
	// accruing toward the next refill.
	b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * cfg.RefillInterval)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// cleanup evicts buckets idle long enough to have refilled completely;
// dropping one is indistinguishable from keeping it.
func (l *Limiter) cleanup() {
	fullRefill := l.cfg.RefillInterval * time.Duration((l.cfg.Burst+l.cfg.RefillAmount-1)/l.cfg.RefillAmount)
	threshold := l.now().Add(-fullRefill - l.cfg.RefillInterval)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		b.mu.Lock()
		if b.lastSeen.Before(threshold) {
			b.deleted = true
			delete(l.buckets, key)
		}
		b.mu.Unlock()
	}
}
