package ratelimit

import (
	"sync"
	"time"

	xhttp "MacroPull/pkg/http"

	"github.com/labstack/echo/v4"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token bucket. Every key shares one capacity and refill rate.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	idle       time.Duration
	now        func() time.Time
}

// Option configures Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(l *Limiter) { l.now = now } }

// WithIdleTTL sets how long an untouched bucket is kept before Sweep drops it.
func WithIdleTTL(d time.Duration) Option { return func(l *Limiter) { l.idle = d } }

func New(capacity, refillPerSec float64, opts ...Option) *Limiter {
	l := &Limiter{
		m:          make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillPerSec,
		idle:       10 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	// refill
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Sweep drops buckets idle for longer than the idle TTL.
func (l *Limiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, b := range l.m {
		if now.Sub(b.last) > l.idle {
			delete(l.m, k)
			n++
		}
	}
	return n
}

// Middleware limits requests per client IP and answers 429 when a bucket is empty.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set(echo.HeaderRetryAfter, "1")
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			if l.shouldSweep() {
				l.Sweep()
			}
			return next(c)
		}
	}
}

func (l *Limiter) shouldSweep() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m) > 1024
}
