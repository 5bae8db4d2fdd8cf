package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives rendering progress. For a single transform the
// unit is source pixel rows; for batch runs it is images.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	OnError(current int, err error)
}

// NoOpProgressCallback discards all progress.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

// ConsoleProgressCallback draws a single-line progress bar.
type ConsoleProgressCallback struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	width    int
	interval time.Duration
	started  time.Time
	last     time.Time
	total    int
}

// NewConsoleProgressCallback writes a bar prefixed with label to w
// (os.Stderr when nil).
func NewConsoleProgressCallback(w io.Writer, label string) *ConsoleProgressCallback {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgressCallback{w: w, label: label, width: 40, interval: 100 * time.Millisecond}
}

// WithUpdateInterval limits how often the bar is redrawn.
func (c *ConsoleProgressCallback) WithUpdateInterval(d time.Duration) *ConsoleProgressCallback {
	c.interval = d
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = time.Now()
	c.last = time.Time{}
	c.total = total
	c.draw(0, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if current < total && now.Sub(c.last) < c.interval {
		return
	}
	c.last = now
	c.draw(current, total)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sdone in %v\n", c.label, time.Since(c.started).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(current int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sfailed at %d/%d: %v\n", c.label, current, c.total, err)
}

func (c *ConsoleProgressCallback) draw(current, total int) {
	if total <= 0 {
		return
	}
	current = min(max(current, 0), total)
	filled := c.width * current / total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	_, _ = fmt.Fprintf(c.w, "\r%s[%s] %d/%d (%.1f%%)", c.label, bar, current, total,
		100*float64(current)/float64(total))
}

// LogProgressCallback reports progress through slog every `step` units.
type LogProgressCallback struct {
	logger  *slog.Logger
	level   slog.Level
	what    string
	step    int
	last    int
	started time.Time
}

// NewLogProgressCallback logs with logger (slog.Default when nil).
func NewLogProgressCallback(logger *slog.Logger, level slog.Level, what string) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, level: level, what: what, step: 100}
}

// WithInterval sets how many units pass between log lines.
func (l *LogProgressCallback) WithInterval(step int) *LogProgressCallback {
	if step > 0 {
		l.step = step
	}
	return l
}

func (l *LogProgressCallback) OnStart(total int) {
	l.started = time.Now()
	l.last = 0
	l.logger.Log(context.Background(), l.level, "Started "+l.what, "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	if current-l.last < l.step && current != total {
		return
	}
	l.last = current
	l.logger.Log(context.Background(), l.level, "Progress "+l.what,
		"current", current,
		"total", total,
		"elapsed", time.Since(l.started).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnComplete() {
	l.logger.Log(context.Background(), l.level, "Finished "+l.what, "elapsed", time.Since(l.started).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(current int, err error) {
	l.logger.Log(context.Background(), slog.LevelError, "Failed "+l.what, "current", current, "error", err)
}

// MultiProgressCallback fans progress out to several callbacks.
type MultiProgressCallback struct {
	callbacks []ProgressCallback
}

func NewMultiProgressCallback(callbacks ...ProgressCallback) *MultiProgressCallback {
	return &MultiProgressCallback{callbacks: callbacks}
}

func (m *MultiProgressCallback) Add(cb ProgressCallback) { m.callbacks = append(m.callbacks, cb) }

func (m *MultiProgressCallback) OnStart(total int) {
	for _, cb := range m.callbacks {
		cb.OnStart(total)
	}
}

func (m *MultiProgressCallback) OnProgress(current, total int) {
	for _, cb := range m.callbacks {
		cb.OnProgress(current, total)
	}
}

func (m *MultiProgressCallback) OnComplete() {
	for _, cb := range m.callbacks {
		cb.OnComplete()
	}
}

func (m *MultiProgressCallback) OnError(current int, err error) {
	for _, cb := range m.callbacks {
		cb.OnError(current, err)
	}
}

// ThrottledProgressCallback forwards at most one OnProgress per interval.
// The first and the final update always pass.
type ThrottledProgressCallback struct {
	mu       sync.Mutex
	next     ProgressCallback
	interval time.Duration
	last     time.Time
}

func NewThrottledProgressCallback(next ProgressCallback, interval time.Duration) *ThrottledProgressCallback {
	return &ThrottledProgressCallback{next: next, interval: interval}
}

func (t *ThrottledProgressCallback) OnStart(total int) { t.next.OnStart(total) }

func (t *ThrottledProgressCallback) OnProgress(current, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if current == total || t.last.IsZero() || now.Sub(t.last) >= t.interval {
		t.last = now
		t.next.OnProgress(current, total)
	}
}

func (t *ThrottledProgressCallback) OnComplete()                    { t.next.OnComplete() }
func (t *ThrottledProgressCallback) OnError(current int, err error) { t.next.OnError(current, err) }

// FuncProgressCallback adapts a plain function to ProgressCallback; only
// OnProgress is forwarded.
type FuncProgressCallback func(current, total int)

func (FuncProgressCallback) OnStart(int)                     {}
func (f FuncProgressCallback) OnProgress(current, total int) { f(current, total) }
func (FuncProgressCallback) OnComplete()                     {}
func (FuncProgressCallback) OnError(int, error)              {}

// ProgressTracker accumulates batch statistics. It is a ProgressCallback:
// OnError counts a failure and OnProgress the items finished so far, so a
// Snapshot taken from another callback reflects the run as it happens.
type ProgressTracker struct {
	mu        sync.RWMutex
	start     time.Time
	total     int
	completed int
	failed    int
}

// ProgressSnapshot is a point-in-time copy of a ProgressTracker.
type ProgressSnapshot struct {
	Total     int           `json:"total" yaml:"total"`
	Completed int           `json:"completed" yaml:"completed"`
	Failed    int           `json:"failed" yaml:"failed"`
	Elapsed   time.Duration `json:"elapsed_ns" yaml:"elapsed_ns"`
	Rate      float64       `json:"rate_per_second" yaml:"rate_per_second"`
	Remaining time.Duration `json:"eta_ns" yaml:"eta_ns"`
}

func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{start: time.Now(), total: total}
}

func (pt *ProgressTracker) OnStart(total int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.start = time.Now()
	pt.total = total
	pt.completed, pt.failed = 0, 0
}

// OnProgress records that current items have finished, failures included.
func (pt *ProgressTracker) OnProgress(current, _ int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.completed = max(0, current-pt.failed)
}

func (pt *ProgressTracker) OnComplete() {}

// OnError counts one failed item.
func (pt *ProgressTracker) OnError(int, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.failed++
}

// Snapshot returns the current statistics.
func (pt *ProgressTracker) Snapshot() ProgressSnapshot {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	s := ProgressSnapshot{
		Total:     pt.total,
		Completed: pt.completed,
		Failed:    pt.failed,
		Elapsed:   time.Since(pt.start),
	}
	done := pt.completed + pt.failed
	if done > 0 && s.Elapsed > 0 {
		s.Rate = float64(done) / s.Elapsed.Seconds()
		s.Remaining = time.Duration(float64(pt.total-done) / s.Rate * float64(time.Second))
	}
	return s
}

// PercentComplete returns the share of finished items in percent.
func (pt *ProgressTracker) PercentComplete() float64 {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	if pt.total == 0 {
		return 0
	}
	return 100 * float64(pt.completed+pt.failed) / float64(pt.total)
}
