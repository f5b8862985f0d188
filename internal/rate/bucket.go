// Package rate implements the fixed-window token bucket guarding the API.
package rate

import (
	"sync"
	"time"
)

// Bucket hands out up to max tokens per fill interval. The token count
// snaps back to max once the interval elapses; unused tokens do not
// carry over and there is no gradual refill.
type Bucket struct {
	mu       sync.Mutex
	max      int
	every    time.Duration
	tokens   int
	resetAt  time.Time
	lastSeen time.Time
	now      func() time.Time
}

func NewBucket(max int, every time.Duration, now func() time.Time) *Bucket {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &Bucket{
		max:      max,
		every:    every,
		tokens:   max,
		resetAt:  t.Add(every),
		lastSeen: t,
		now:      now,
	}
}

// Consume takes one token, reporting false when the window is exhausted.
func (b *Bucket) Consume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.now()
	b.lastSeen = t
	if !t.Before(b.resetAt) {
		b.tokens = b.max
		b.resetAt = t.Add(b.every)
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Limiter keeps one Bucket per key, typically a client IP. Buckets idle
// for longer than the fill interval are dropped on the next access.
type Limiter struct {
	mu      sync.Mutex
	max     int
	every   time.Duration
	buckets map[string]*Bucket
	now     func() time.Time
}

func NewLimiter(max int, every time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		every:   every,
		buckets: make(map[string]*Bucket),
		now:     time.Now,
	}
}

// WithClock overrides the limiter clock. Tests only.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow consumes a token from the bucket for key, creating it on first use.
// The consume happens under the registry lock so a concurrent sweep cannot
// evict the bucket between lookup and decrement.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked()
	b, ok := l.buckets[key]
	if !ok {
		b = NewBucket(l.max, l.every, l.now)
		l.buckets[key] = b
	}
	return b.Consume()
}

func (l *Limiter) sweepLocked() {
	cutoff := l.now().Add(-l.every)
	for key, b := range l.buckets {
		b.mu.Lock()
		idle := b.lastSeen.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(l.buckets, key)
		}
	}
}
