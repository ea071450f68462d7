// Package feed implements the shared log feed: a bounded, append-only list of
// human-readable status lines that every job writes to and every page render
// reads from.
package feed

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultCapacity is the number of lines retained when no capacity is given.
const DefaultCapacity = 50

// Feed is a fixed-capacity ring buffer of lines. Once full, each append
// evicts the oldest line. It is safe for concurrent use.
type Feed struct {
	mu      sync.RWMutex
	lines   []string
	size    int
	head    int // oldest line
	count   int
	written int
	logger  *zap.Logger
}

// New creates a Feed holding at most capacity lines. Appended lines are
// mirrored to logger at info level; a nil logger disables mirroring.
func New(capacity int, logger *zap.Logger) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		lines:  make([]string, capacity),
		size:   capacity,
		logger: logger,
	}
}

// Append adds a line, evicting the oldest one when the feed is full.
func (f *Feed) Append(line string) {
	f.mu.Lock()
	if f.count < f.size {
		f.lines[(f.head+f.count)%f.size] = line
		f.count++
	} else {
		f.lines[f.head] = line
		f.head = (f.head + 1) % f.size
	}
	f.written++
	f.mu.Unlock()

	f.logger.Info(line)
}

// Appendf formats according to a format specifier and appends the result.
func (f *Feed) Appendf(format string, args ...any) {
	f.Append(fmt.Sprintf(format, args...))
}

// Snapshot returns a copy of the retained lines, oldest first.
func (f *Feed) Snapshot() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, f.count)
	for i := range f.count {
		out[i] = f.lines[(f.head+i)%f.size]
	}
	return out
}

// Len returns the number of retained lines.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

// Capacity returns the maximum number of retained lines.
func (f *Feed) Capacity() int {
	return f.size
}

// Written returns the number of lines ever appended, including evicted ones.
func (f *Feed) Written() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.written
}
