package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	mu      sync.Mutex
	m       map[string]*bucket
	now     func() time.Time
	idleTTL time.Duration
	sweeps  int
}

func New() *Limiter {
	return &Limiter{m: make(map[string]*bucket), now: time.Now, idleTTL: 10 * time.Minute}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	// refill
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}

	l.sweeps++
	if l.sweeps >= 1024 {
		l.sweeps = 0
		l.sweepLocked(now)
	}

	if b.tokens >= 1 {
		b.tokens -= 1
		return true
	}
	return false
}

// sweepLocked drops buckets untouched for idleTTL; they would be full again anyway.
func (l *Limiter) sweepLocked(now time.Time) {
	for k, b := range l.m {
		if now.Sub(b.last) > l.idleTTL {
			delete(l.m, k)
		}
	}
}
