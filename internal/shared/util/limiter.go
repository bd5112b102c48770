package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket: perSecond tokens are added every second and at most burst
// are kept. Requests that cannot run at once are counted as throttled.
type Limiter struct {
	inner     *rate.Limiter
	throttled atomic.Int64
}

func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{inner: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow takes a token if one is available now.
func (l *Limiter) Allow() bool {
	if l.inner.AllowN(time.Now(), 1) {
		return true
	}
	l.throttled.Add(1)
	return false
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	r := l.inner.ReserveN(time.Now(), 1)
	if !r.OK() {
		return fmt.Errorf("limiter cannot grant a token with burst %d", l.inner.Burst())
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	l.throttled.Add(1)
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Throttled is the number of requests that had to be refused or delayed.
func (l *Limiter) Throttled() int64 {
	return l.throttled.Load()
}
