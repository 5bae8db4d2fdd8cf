package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces fixed-window request limits and daily quotas per
// client.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64 // bytes

	clients map[string]*ClientUsage
	checks  int
	now     func() time.Time
}

// ClientUsage is the usage of one client in its current windows.
type ClientUsage struct {
	MinuteStart time.Time
	HourStart   time.Time
	Day         time.Time // local midnight of the current day
	Minute      int
	Hour        int
	Today       int
	DataToday   int64
	LastSeen    time.Time
}

// pruneEvery is how many checks pass between sweeps of idle clients.
const pruneEvery = 1024

// NewRateLimiter creates a rate limiter. A zero limit is not enforced.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*ClientUsage),
		now:               time.Now,
	}
}

// CheckRateLimit admits or rejects one request of dataSize bytes from
// clientID. Rejected requests are not counted.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.checks++
	if rl.checks%pruneEvery == 0 {
		rl.prune(now)
	}

	u := rl.clients[clientID]
	if u == nil {
		u = &ClientUsage{MinuteStart: now, HourStart: now, Day: midnight(now)}
		rl.clients[clientID] = u
	}
	rl.roll(u, now)

	if rl.requestsPerMinute > 0 && u.Minute >= rl.requestsPerMinute {
		return &RateLimitError{Type: "minute", Limit: rl.requestsPerMinute, RetryAfter: u.MinuteStart.Add(time.Minute).Sub(now)}
	}
	if rl.requestsPerHour > 0 && u.Hour >= rl.requestsPerHour {
		return &RateLimitError{Type: "hour", Limit: rl.requestsPerHour, RetryAfter: u.HourStart.Add(time.Hour).Sub(now)}
	}
	resets := u.Day.AddDate(0, 0, 1)
	if rl.maxRequestsPerDay > 0 && u.Today >= rl.maxRequestsPerDay {
		return &QuotaExceededError{
			Type: "requests", Limit: int64(rl.maxRequestsPerDay), Used: int64(u.Today), Resets: resets,
		}
	}
	if rl.maxDataPerDay > 0 && u.DataToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{Type: "data", Limit: rl.maxDataPerDay, Used: u.DataToday, Resets: resets}
	}

	u.Minute++
	u.Hour++
	u.Today++
	u.DataToday += dataSize
	u.LastSeen = now
	return nil
}

// roll starts new windows for a client whose windows have expired.
func (rl *RateLimiter) roll(u *ClientUsage, now time.Time) {
	if now.Sub(u.MinuteStart) >= time.Minute {
		u.MinuteStart, u.Minute = now, 0
	}
	if now.Sub(u.HourStart) >= time.Hour {
		u.HourStart, u.Hour = now, 0
	}
	if day := midnight(now); !day.Equal(u.Day) {
		u.Day, u.Today, u.DataToday = day, 0, 0
	}
}

// prune forgets clients idle for more than a day.
func (rl *RateLimiter) prune(now time.Time) {
	for id, u := range rl.clients {
		if now.Sub(u.LastSeen) > 24*time.Hour {
			delete(rl.clients, id)
		}
	}
}

// GetUsage returns a copy of the client's usage (zero if unknown).
func (rl *RateLimiter) GetUsage(clientID string) ClientUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if u, ok := rl.clients[clientID]; ok {
		return *u
	}
	return ClientUsage{}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RateLimitError is returned when a per-minute or per-hour limit is hit.
type RateLimitError struct {
	Type       string // "minute" or "hour"
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter.Round(time.Second))
}

// QuotaExceededError is returned when a daily quota is used up.
type QuotaExceededError struct {
	Type   string // "requests" or "data"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
