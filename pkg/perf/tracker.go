// Package perf tracks rolling frame rate and processing time.
package perf

import (
	"sync"

	"github.com/user/maskfx/pkg/pipeline"
)

// Tracker keeps the last pipeline.StatsWindow instantaneous FPS values.
// It is safe for concurrent use.
type Tracker struct {
	mu           sync.Mutex
	window       int
	samples      []float64
	lastTick     float64
	processingMs float64
}

// NewTracker creates a tracker with the default window.
func NewTracker() *Tracker {
	return NewTrackerWithWindow(pipeline.StatsWindow)
}

// NewTrackerWithWindow creates a tracker keeping at most window samples.
func NewTrackerWithWindow(window int) *Tracker {
	if window <= 0 {
		window = pipeline.StatsWindow
	}
	return &Tracker{
		window:  window,
		samples: make([]float64, 0, window+1),
	}
}

// RecordTick records a completed tick at nowMs. A non-positive delta since the
// previous tick is ignored.
func (t *Tracker) RecordTick(nowMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delta := nowMs - t.lastTick
	t.lastTick = nowMs
	if delta <= 0 {
		return
	}

	t.samples = append(t.samples, 1000/delta)
	if len(t.samples) > t.window {
		copy(t.samples, t.samples[1:])
		t.samples = t.samples[:t.window]
	}
}

// SetProcessingTime sets the processing time of the most recent tick.
func (t *Tracker) SetProcessingTime(ms float64) {
	t.mu.Lock()
	t.processingMs = ms
	t.mu.Unlock()
}

// Stats returns a snapshot. FPS is the arithmetic mean of the samples.
func (t *Tracker) Stats() pipeline.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	samples := make([]float64, len(t.samples))
	copy(samples, t.samples)

	var sum float64
	for _, s := range samples {
		sum += s
	}
	fps := 0.0
	if len(samples) > 0 {
		fps = sum / float64(len(samples))
	}

	return pipeline.Stats{
		Samples:              samples,
		FPS:                  fps,
		LastProcessingTimeMs: t.processingMs,
	}
}

// Len returns the number of samples currently held.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// Reset clears all samples and zeros the last tick time.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = t.samples[:0]
	t.lastTick = 0
	t.processingMs = 0
}
