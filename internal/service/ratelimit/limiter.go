package ratelimit

import (
	"sync"
	"time"
)

// quota is one token bucket. Tokens refill continuously; a fetch consumes
// one token and fails immediately when none are left.
type quota struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter enforces per-provider request quotas. One bucket per key so
// separately configured providers never starve each other.
type Limiter struct {
	mu sync.Mutex
	m  map[string]*quota
}

func New() *Limiter { return &Limiter{m: make(map[string]*quota)} }

// Allow reports whether one request can be spent for key right now. The
// bucket is created on first use with a full budget.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.m[key]
	if !ok {
		q = &quota{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = q
	}

	if elapsed := now.Sub(q.last).Seconds(); elapsed > 0 {
		q.tokens += elapsed * q.refillRate
		if q.tokens > q.capacity {
			q.tokens = q.capacity
		}
		q.last = now
	}

	if q.tokens < 1 {
		return false
	}
	q.tokens--
	return true
}
