package testutil

import (
	"sync"
	"time"
)

// ManualTicker is a ticker that only fires when the test says so.
//
// It satisfies the poller's ticker interface (C and Stop) so polling loops
// can be driven one tick at a time.
type ManualTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
	ticks   int
}

// NewManualTicker creates a ticker with a one-slot buffer.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time, 1)}
}

// C returns the tick channel.
func (t *ManualTicker) C() <-chan time.Time {
	return t.ch
}

// Stop marks the ticker stopped. Later ticks are dropped.
func (t *ManualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// Tick delivers one tick. It blocks until the previous tick was consumed
// and reports false if the ticker was stopped.
func (t *ManualTicker) Tick() bool {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return false
	}
	t.ticks++
	t.mu.Unlock()

	t.ch <- time.Now()
	return true
}

// Stopped reports whether Stop was called.
func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Ticks returns how many ticks were delivered.
func (t *ManualTicker) Ticks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}
