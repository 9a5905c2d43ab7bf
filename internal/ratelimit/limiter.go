// Package ratelimit throttles requests per caller key using token buckets
// from golang.org/x/time/rate.
//
//	l := ratelimit.NewKeyedLimiter(10) // 10 requests per minute per key
//	if !l.Allow(ctx, clientIP) {
//		return ratelimit.ErrRateLimitExceeded
//	}
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrRateLimitExceeded is returned when a key has no capacity left.
	ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

	// ErrContextCancelled is returned when Wait gives up on its context.
	ErrContextCancelled = errors.New("ratelimit: context canceled")
)

// Limiter throttles by key. Implementations are safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
	Wait(ctx context.Context, key string) error
	SetLimit(rpm int)
	Usage(key string) Usage
}

// Usage reports the bucket of one key.
type Usage struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

const (
	unlimited = 1_000_000
	idleAfter = 10 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one bucket per key. The burst equals the per-minute
// limit, so a fresh key can spend its whole minute at once. Buckets idle for
// ten minutes are dropped on the next access.
type KeyedLimiter struct {
	buckets   map[string]*bucket
	now       func() time.Time
	lastPrune time.Time
	rpm       int
	mu        sync.Mutex
}

// NewKeyedLimiter treats rpm <= 0 as unlimited.
func NewKeyedLimiter(rpm int) *KeyedLimiter {
	return &KeyedLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
		rpm:     normalize(rpm),
	}
}

func normalize(rpm int) int {
	if rpm <= 0 {
		return unlimited
	}
	return rpm
}

func newBucketLimiter(rpm int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
}

func (l *KeyedLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > idleAfter {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > idleAfter {
				delete(l.buckets, k)
			}
		}
		l.lastPrune = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: newBucketLimiter(l.rpm)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Allow consumes one token for key without blocking.
func (l *KeyedLimiter) Allow(_ context.Context, key string) bool {
	return l.get(key).AllowN(l.now(), 1)
}

// Wait blocks until key has a token or ctx ends.
func (l *KeyedLimiter) Wait(ctx context.Context, key string) error {
	if err := l.get(key).Wait(ctx); err != nil {
		return ErrContextCancelled
	}
	return nil
}

// SetLimit replaces the per-minute limit; existing buckets are reset.
func (l *KeyedLimiter) SetLimit(rpm int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rpm = normalize(rpm)
	l.buckets = make(map[string]*bucket)
}

func (l *KeyedLimiter) Usage(key string) Usage {
	lim := l.get(key)
	l.mu.Lock()
	limit := l.rpm
	l.mu.Unlock()
	return Usage{Limit: limit, Remaining: max(int(lim.TokensAt(l.now())), 0)}
}

// Len returns the number of tracked keys.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
