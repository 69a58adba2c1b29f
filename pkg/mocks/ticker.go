package mocks

import (
	"sync"
	"time"

	"github.com/user/maskfx/pkg/ports"
)

// Ticker is a manually driven ports.Ticker.
type Ticker struct {
	mu       sync.Mutex
	ch       chan time.Time
	stopped  bool
	Interval time.Duration
}

// NewTicker creates a ticker whose ticks are sent by Tick.
func NewTicker() *Ticker {
	return &Ticker{ch: make(chan time.Time)}
}

// Factory returns a ports.TickerFactory that always hands out t.
func (t *Ticker) Factory() ports.TickerFactory {
	return func(interval time.Duration) ports.Ticker {
		t.mu.Lock()
		t.Interval = interval
		t.mu.Unlock()
		return t
	}
}

func (t *Ticker) C() <-chan time.Time {
	return t.ch
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// Tick blocks until the receiver takes the tick. It returns false if the
// receiver did not take it within timeout.
func (t *Ticker) Tick(timeout time.Duration) bool {
	select {
	case t.ch <- time.Now():
		return true
	case <-time.After(timeout):
		return false
	}
}

// Stopped reports whether Stop was called.
func (t *Ticker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

var _ ports.Ticker = (*Ticker)(nil)
