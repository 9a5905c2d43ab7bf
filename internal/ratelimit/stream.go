package ratelimit

import (
	"time"

	"github.com/samber/ro"
	roratelimit "github.com/samber/ro/plugins/ratelimit/native"
)

// DefaultInterval is the window used when a stream limit has none.
const DefaultInterval = time.Minute

// Limit passes at most count items per interval and key through source.
// Items over the limit are dropped. An empty key shares one bucket.
func Limit[T any](source ro.Observable[T], count int64, interval time.Duration, key func(T) string) ro.Observable[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if count <= 0 {
		count = unlimited
	}
	return ro.Pipe1(source, roratelimit.NewRateLimiter[T](count, interval, key))
}
