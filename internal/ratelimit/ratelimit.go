// Package ratelimit tracks API call counts against a fixed ceiling and
// suspends execution when the ceiling is reached.
package ratelimit

import (
	"sync"
	"time"

	"github.com/zulhfreelancer/export-pull-requests/internal/logging"
)

const (
	// DefaultCeiling stays deliberately below Bitbucket's documented limit
	// of 1000 calls per hour to leave a safety margin.
	DefaultCeiling = 950

	// coolDown approximates the provider's rolling rate window with one
	// fixed pause. Not adaptive.
	coolDown = time.Hour
)

// Counter is a shared mutable call counter with atomic increment and reset
// semantics. The SQLite-backed implementation is shared across process
// invocations so interleaved runs accumulate toward the same ceiling.
type Counter interface {
	Increment() (int, error)
	Value() (int, error)
	Reset() error
}

// Limiter pauses execution once the counter reaches the ceiling.
type Limiter struct {
	counter Counter
	ceiling int
	sleep   func(time.Duration)
}

// NewLimiter returns a limiter over the given counter. A ceiling of zero or
// less falls back to DefaultCeiling.
func NewLimiter(counter Counter, ceiling int) *Limiter {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Limiter{
		counter: counter,
		ceiling: ceiling,
		sleep:   time.Sleep,
	}
}

// RecordCall increments the counter. Called after every API call, including
// failed lookups. Counter errors are logged rather than propagated so a
// broken counter store never aborts an export.
func (l *Limiter) RecordCall() {
	if _, err := l.counter.Increment(); err != nil {
		logging.Warn("failed to record api call", "error", err)
	}
}

// CheckAndWait is invoked at page boundaries. Once the counter has reached
// the ceiling it sleeps for the full cool-down, resets the counter to zero,
// and resumes. Counter read failures are logged and the check skipped, same
// as RecordCall: a broken counter store never aborts an export.
func (l *Limiter) CheckAndWait() error {
	n, err := l.counter.Value()
	if err != nil {
		logging.Warn("failed to read api call counter", "error", err)
		return nil
	}
	if n < l.ceiling {
		return nil
	}
	logging.Warn("rate ceiling reached, cooling down",
		"calls", n,
		"ceiling", l.ceiling,
		"pause", coolDown.String())
	l.sleep(coolDown)
	return l.counter.Reset()
}

// MemoryCounter is an in-process Counter for tests and runs that do not
// need persistence.
type MemoryCounter struct {
	mu sync.Mutex
	n  int
}

func (c *MemoryCounter) Increment() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n, nil
}

func (c *MemoryCounter) Value() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n, nil
}

func (c *MemoryCounter) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
	return nil
}
