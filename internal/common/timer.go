// Package common provides shared timing and memory measurement helpers.
package common

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Timer measures a single named span.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewNamedTimer starts a timer with the given name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}

// Phase is one completed lap of a Stopwatch.
type Phase struct {
	Name     string
	Duration time.Duration
}

// Stopwatch splits a run into consecutive named phases. Each Lap closes the
// phase that started at the previous Lap (or at StartStopwatch).
type Stopwatch struct {
	start  time.Time
	last   time.Time
	phases []Phase
}

// StartStopwatch starts a stopwatch at the current time.
func StartStopwatch() *Stopwatch {
	now := time.Now()
	return &Stopwatch{start: now, last: now}
}

// Lap closes the current phase under name and returns its duration.
func (s *Stopwatch) Lap(name string) time.Duration {
	now := time.Now()
	d := now.Sub(s.last)
	s.last = now
	s.phases = append(s.phases, Phase{Name: name, Duration: d})
	return d
}

// Total returns the time since the stopwatch started.
func (s *Stopwatch) Total() time.Duration {
	return time.Since(s.start)
}

// LogValue renders the laps as a slog group.
func (s *Stopwatch) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(s.phases)+1)
	for _, p := range s.phases {
		attrs = append(attrs, slog.Duration(p.Name, p.Duration))
	}
	attrs = append(attrs, slog.Duration("total", s.Total()))
	return slog.GroupValue(attrs...)
}

func (s *Stopwatch) String() string {
	parts := make([]string, 0, len(s.phases))
	for _, p := range s.phases {
		parts = append(parts, fmt.Sprintf("%s=%v", p.Name, p.Duration))
	}
	return strings.Join(parts, " ")
}
