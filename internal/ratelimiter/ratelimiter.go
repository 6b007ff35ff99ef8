// Package ratelimiter implements per-key token buckets.
package ratelimiter

import (
	"sync"
	"time"
)

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// Limiter keeps one token bucket per key. Buckets idle for longer than the
// expiration are dropped, which is equivalent to a full bucket.
type Limiter struct {
	rate           float64 // tokens per second
	capacity       float64
	expirationTime time.Duration
	now            func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func New(rate, capacity float64, expirationTime time.Duration) *Limiter {
	return &Limiter{
		rate:           rate,
		capacity:       capacity,
		expirationTime: expirationTime,
		now:            time.Now,
		buckets:        make(map[string]*bucket),
		lastSweep:      time.Now(),
	}
}

// Allow takes a token from key's bucket and reports whether there was one.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, lastSeen: now}
		l.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * l.rate
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// sweep drops idle buckets at most once per expiration period.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.expirationTime {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.expirationTime {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
