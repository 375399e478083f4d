// README: Sliding-window rate limiter over an injectable counter store.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// CounterStore increments the counter behind a window-scoped key and returns
// the new count. ttl only garbage-collects stale keys; the window boundary
// is encoded in the key itself.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is the fixed expiry of the current window in epoch
	// milliseconds. Rejected calls do not extend it.
	ResetAt int64
}

type Limiter struct {
	store  CounterStore
	limit  int
	window time.Duration
	now    func() time.Time
}

func New(store CounterStore, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window, now: time.Now}
}

// Allow records one call for id and reports whether it is admitted. On a
// store error the call is admitted (fail open) and the error returned so the
// caller can log it.
func (l *Limiter) Allow(ctx context.Context, id string) (Result, error) {
	now := l.now()
	windowSec := int64(l.window / time.Second)
	windowKey := now.Unix() / windowSec
	resetAt := (windowKey + 1) * windowSec * 1000

	res := Result{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: resetAt}

	count, err := l.store.Incr(ctx, fmt.Sprintf("ratelimit:%s:%d", id, windowKey), l.window)
	if err != nil {
		return res, err
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	res.Allowed = count <= int64(l.limit)
	res.Remaining = remaining
	return res, nil
}

// RetryAfterSeconds converts a rejection into the Retry-After header value.
func (l *Limiter) RetryAfterSeconds(r Result) int {
	ms := r.ResetAt - l.now().UnixMilli()
	if ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}
