// Package orchestrator coordinates one processing run.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/maskfx/pkg/pipeline"
	"github.com/user/maskfx/pkg/ports"
	"github.com/user/maskfx/pkg/scheduler"
	"github.com/user/maskfx/pkg/session"
)

// Config contains all configuration for the orchestrator.
type Config struct {
	Effect pipeline.EffectOptions

	// Scheduling
	Interval    time.Duration
	Staleness   session.Policy
	MaskTimeout time.Duration

	// Limits; zero means unlimited. A run always ends when the source ends.
	MaxFrames int
	Duration  time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Effect:      pipeline.DefaultEffectOptions(),
		Interval:    scheduler.DefaultInterval,
		Staleness:   session.PolicyStrict,
		MaskTimeout: session.DefaultMaskTimeout,
	}
}

// StopReason tells why a run finished.
type StopReason string

const (
	StopSourceEnded StopReason = "source-ended"
	StopMaxFrames   StopReason = "max-frames"
	StopDuration    StopReason = "duration"
	StopCancelled   StopReason = "cancelled"
)

// Deps are the collaborators of a run. The orchestrator closes Source,
// Segmenter and Sink when the run finishes.
type Deps struct {
	Source    ports.FrameSource
	Segmenter ports.Segmenter
	Sink      ports.FrameSink
	Debug     ports.DebugSink
	Logger    ports.Logger

	// OnStats additionally receives every tick's statistics, e.g. an overlay.
	OnStats func(pipeline.TickStats)
	// NewTicker and Now override the scheduler's clock.
	NewTicker ports.TickerFactory
	Now       func() time.Time
}

// Orchestrator runs the scheduler until the source ends or a limit is hit.
type Orchestrator struct {
	deps   Deps
	logger ports.Logger
}

// New creates a new Orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{
		deps:   deps,
		logger: deps.Logger.WithComponent("orchestrator"),
	}
}

// Run executes the complete pipeline. When only closing the sink fails, the
// filled result is returned together with the error.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	runID := uuid.NewString()
	o.logger.Info("Starting run %s", runID)
	defer o.closeSource()

	// 1. Load segmenter
	sess := session.NewManager(o.deps.Segmenter, o.deps.Logger, session.Options{
		Policy:      config.Staleness,
		MaskTimeout: config.MaskTimeout,
	})
	defer sess.Close()

	if err := sess.Load(ctx); err != nil {
		o.logger.Error("Failed to load segmenter: %s", err)
		o.closeSink()
		return RunResult{}, fmt.Errorf("load segmenter: %w", err)
	}

	// 2. Start scheduler
	agg := newAggregate(config.MaxFrames, o.deps.OnStats)
	sched := scheduler.New(o.deps.Source, sess, o.deps.Sink, o.deps.Logger, scheduler.Options{
		Interval:  config.Interval,
		Effect:    config.Effect,
		NewTicker: o.deps.NewTicker,
		Now:       o.deps.Now,
		OnStats:   agg.observe,
		Debug:     o.deps.Debug,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var deadline <-chan time.Time
	if config.Duration > 0 {
		timer := time.NewTimer(config.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	startedAt := o.deps.Now()
	if err := sched.Start(runCtx); err != nil {
		o.logger.Error("Failed to start scheduler: %s", err)
		o.closeSink()
		return RunResult{}, fmt.Errorf("start scheduler: %w", err)
	}

	// 3. Wait for the end of the run
	var reason StopReason
	select {
	case <-sched.Ended():
		reason = StopSourceEnded
	case <-agg.limit:
		reason = StopMaxFrames
	case <-deadline:
		reason = StopDuration
	case <-ctx.Done():
		reason = StopCancelled
	}
	o.logger.Info("Stopping run: %s", reason)

	size := sched.Size()
	sched.Stop()
	elapsed := o.deps.Now().Sub(startedAt)

	result := RunResult{
		RunID:      runID,
		StopReason: reason,
		Width:      size.Width,
		Height:     size.Height,
		Elapsed:    elapsed,
		Effect:     config.Effect,
		Staleness:  config.Staleness,
		Ticks:      sched.Counters(),
		Masks:      sess.Counters(),
	}
	agg.fill(&result)

	// 4. Flush output
	closeErr := o.deps.Sink.Close()
	if closeErr != nil {
		o.logger.Error("Failed to close output: %s", closeErr)
	}

	o.saveStats(result)

	if closeErr != nil {
		return result, fmt.Errorf("close output: %w", closeErr)
	}

	o.logger.Info("Run completed: %d frames in %s", result.Frames, elapsed.Round(time.Millisecond))
	return result, nil
}

func (o *Orchestrator) saveStats(result RunResult) {
	if o.deps.Debug == nil || !o.deps.Debug.Enabled() {
		return
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		o.logger.Warn("Failed to encode run stats: %s", err)
		return
	}
	if err := o.deps.Debug.SaveStatsJSON(data); err != nil {
		o.logger.Warn("Failed to save debug output: %s", err)
	}
}

func (o *Orchestrator) closeSink() {
	if err := o.deps.Sink.Close(); err != nil {
		o.logger.Warn("Failed to close output: %s", err)
	}
}

func (o *Orchestrator) closeSource() {
	if err := o.deps.Source.Close(); err != nil {
		o.logger.Warn("Failed to close frame source: %s", err)
	}
}

// aggregate accumulates per-tick statistics over a run.
type aggregate struct {
	maxFrames int
	next      func(pipeline.TickStats)
	limit     chan struct{}
	limitOnce sync.Once

	mu              sync.Mutex
	frames          int
	composited      int
	sumProcessingMs int
	maxProcessingMs int
	sumCoverage     float64
	lastFPS         int
}

func newAggregate(maxFrames int, next func(pipeline.TickStats)) *aggregate {
	return &aggregate{
		maxFrames: maxFrames,
		next:      next,
		limit:     make(chan struct{}),
	}
}

func (a *aggregate) observe(ts pipeline.TickStats) {
	a.mu.Lock()
	a.frames++
	a.sumProcessingMs += ts.ProcessingTimeMs
	if ts.ProcessingTimeMs > a.maxProcessingMs {
		a.maxProcessingMs = ts.ProcessingTimeMs
	}
	if ts.Composited {
		a.composited++
		a.sumCoverage += ts.Coverage
	}
	a.lastFPS = ts.FPS
	reached := a.maxFrames > 0 && a.frames >= a.maxFrames
	a.mu.Unlock()

	if reached {
		a.limitOnce.Do(func() { close(a.limit) })
	}
	if a.next != nil {
		a.next(ts)
	}
}

func (a *aggregate) fill(r *RunResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r.Frames = a.frames
	r.CompositedFrames = a.composited
	r.FinalFPS = a.lastFPS
	r.MaxProcessingMs = a.maxProcessingMs
	if a.frames > 0 {
		r.AvgProcessingMs = float64(a.sumProcessingMs) / float64(a.frames)
	}
	if a.composited > 0 {
		r.AvgCoverage = a.sumCoverage / float64(a.composited)
	}
	if r.Elapsed > 0 {
		r.AvgFPS = float64(a.frames) / r.Elapsed.Seconds()
	}
}

// RunResult contains the results of a run for summary generation.
type RunResult struct {
	RunID      string
	StopReason StopReason

	// Surface
	Width  int
	Height int

	// Timing
	Elapsed         time.Duration
	FinalFPS        int
	AvgFPS          float64
	AvgProcessingMs float64
	MaxProcessingMs int

	// Frames
	Frames           int
	CompositedFrames int
	// AvgCoverage is the mean foreground fraction over composited frames.
	AvgCoverage float64

	// Settings
	Effect    pipeline.EffectOptions
	Staleness session.Policy

	Ticks scheduler.Counters
	Masks session.Counters
}
