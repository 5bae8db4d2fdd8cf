package pipeline

import (
	"context"
	"sync/atomic"
)

// Limiter bounds the number of transforms running at once. A limit of 0
// means unbounded.
type Limiter struct {
	sem      chan struct{}
	active   atomic.Int64
	peak     atomic.Int64
	rejected atomic.Int64
}

// LimiterStats is a snapshot of a Limiter.
type LimiterStats struct {
	Limit    int   `json:"limit"`
	Active   int64 `json:"active"`
	Peak     int64 `json:"peak"`
	Rejected int64 `json:"rejected"`
}

func NewLimiter(limit int) *Limiter {
	l := &Limiter{}
	if limit > 0 {
		l.sem = make(chan struct{}, limit)
	}
	return l
}

// Acquire blocks until a slot is free or ctx ends.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.sem != nil {
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			l.rejected.Add(1)
			return ctx.Err()
		}
	}
	l.track()
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *Limiter) TryAcquire() bool {
	if l.sem != nil {
		select {
		case l.sem <- struct{}{}:
		default:
			l.rejected.Add(1)
			return false
		}
	}
	l.track()
	return true
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	if l.sem != nil {
		select {
		case <-l.sem:
		default:
		}
	}
}

func (l *Limiter) track() {
	n := l.active.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// Stats returns current counters.
func (l *Limiter) Stats() LimiterStats {
	return LimiterStats{
		Limit:    cap(l.sem),
		Active:   l.active.Load(),
		Peak:     l.peak.Load(),
		Rejected: l.rejected.Load(),
	}
}
