package scheduler

import (
	"time"

	"github.com/user/maskfx/pkg/ports"
)

// timeTicker adapts time.Ticker to ports.Ticker.
type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker creates a ports.Ticker backed by time.Ticker.
func NewTimeTicker(interval time.Duration) ports.Ticker {
	return &timeTicker{t: time.NewTicker(interval)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

var _ ports.TickerFactory = NewTimeTicker
