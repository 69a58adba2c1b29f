// Package scheduler drives the per-tick frame processing loop.
//
// On every tick the scheduler captures the current frame, asks the session
// manager for the latest mask, composites it when the geometry matches and
// hands the result to the output sink. At most one tick is processed at a
// time; ticks that arrive while one is in flight are dropped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/maskfx/pkg/perf"
	"github.com/user/maskfx/pkg/pipeline"
	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
	"github.com/user/maskfx/pkg/session"
	"github.com/user/maskfx/pkg/stages/composite"
)

var (
	// ErrAlreadyRunning is returned by Start while the scheduler is running.
	ErrAlreadyRunning = errors.New("scheduler: already running")
	// ErrNoFrameSource is returned by Start without a frame source.
	ErrNoFrameSource = errors.New("scheduler: no frame source")
	// ErrNotReady is returned by Start when the session manager is not loaded.
	ErrNotReady = errors.New("scheduler: segmentation not ready")
)

// DefaultInterval is one display refresh at 30 fps.
const DefaultInterval = time.Second / 30

// Options configures a Scheduler.
type Options struct {
	// Interval between ticks.
	Interval time.Duration
	Effect   pipeline.EffectOptions
	// NewTicker creates the tick source. Defaults to a time.Ticker.
	NewTicker ports.TickerFactory
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// OnStats receives a snapshot after every tick that produced output.
	OnStats func(pipeline.TickStats)
	// Debug receives intermediate buffers when enabled.
	Debug ports.DebugSink
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Interval: DefaultInterval,
		Effect:   pipeline.DefaultEffectOptions(),
	}
}

// Counters summarizes tick outcomes since the scheduler was created.
type Counters struct {
	Ticks       uint64
	Dropped     uint64
	Composited  uint64
	Passthrough uint64
	Mismatched  uint64
	Failed      uint64
}

// Scheduler owns the pipeline state of one run. Create with New.
type Scheduler struct {
	source    ports.FrameSource
	session   *session.Manager
	sink      ports.FrameSink
	logger    ports.Logger
	tracker   *perf.Tracker
	composite *composite.Stage
	opts      Options

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu        sync.Mutex
	running   bool
	ticker    ports.Ticker
	cancel    context.CancelFunc
	startedAt time.Time
	size      pipeline.Dimension
	ended     chan struct{}
	endOnce   *sync.Once

	wg   sync.WaitGroup
	busy atomic.Bool

	ticks       atomic.Uint64
	dropped     atomic.Uint64
	composited  atomic.Uint64
	passthrough atomic.Uint64
	mismatched  atomic.Uint64
	failed      atomic.Uint64
}

// New creates an idle scheduler.
func New(source ports.FrameSource, sess *session.Manager, sink ports.FrameSink, logger ports.Logger, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		source:    source,
		session:   sess,
		sink:      sink,
		logger:    logger.WithComponent("scheduler"),
		tracker:   perf.NewTracker(),
		composite: composite.NewStage(),
		opts:      opts,
		ended:     make(chan struct{}),
		endOnce:   &sync.Once{},
	}
}

// Start validates the collaborators, enables the session manager and begins
// ticking. The scheduler runs until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if s.source == nil {
		s.logger.Error("Cannot start: no frame source")
		return ErrNoFrameSource
	}
	if s.session == nil {
		s.logger.Error("Cannot start: segmentation not ready: %s", session.ErrNotLoaded)
		return fmt.Errorf("%w: %v", ErrNotReady, session.ErrNotLoaded)
	}
	if err := s.session.Ready(); err != nil {
		s.logger.Error("Cannot start: segmentation not ready: %s", err)
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}

	w, h := s.source.Size()
	s.size = pipeline.Dimension{Width: w, Height: h}
	s.session.Enable()
	s.tracker.Reset()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.ticker = s.opts.NewTicker(s.opts.Interval)
	s.startedAt = s.opts.Now()
	s.ended = make(chan struct{})
	s.endOnce = &sync.Once{}
	s.running = true

	s.logger.Info("Scheduler started: %dx%d every %s", w, h, s.opts.Interval)

	s.wg.Add(1)
	go s.loop(ctx, s.ticker, s.ended, s.endOnce)
	return nil
}

// Stop halts ticking, invalidates in-flight segmentation requests and clears
// the performance tracker. No frame reaches the sink after Stop returns.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.ticker.Stop()
	s.cancel()
	s.mu.Unlock()

	s.session.Reset()
	s.wg.Wait()
	s.tracker.Reset()

	s.logger.Info("Scheduler stopped")
}

// Running reports whether the scheduler is between Start and Stop.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Processing reports whether a tick is currently in flight.
func (s *Scheduler) Processing() bool {
	return s.busy.Load()
}

// Ended returns a channel closed when the frame source reports the end of its
// frames during the current run.
func (s *Scheduler) Ended() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Size returns the surface dimensions captured at Start.
func (s *Scheduler) Size() pipeline.Dimension {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Stats returns a snapshot of the performance tracker.
func (s *Scheduler) Stats() pipeline.Stats {
	return s.tracker.Stats()
}

// Counters returns a snapshot of the tick counters.
func (s *Scheduler) Counters() Counters {
	return Counters{
		Ticks:       s.ticks.Load(),
		Dropped:     s.dropped.Load(),
		Composited:  s.composited.Load(),
		Passthrough: s.passthrough.Load(),
		Mismatched:  s.mismatched.Load(),
		Failed:      s.failed.Load(),
	}
}

func (s *Scheduler) loop(ctx context.Context, ticker ports.Ticker, ended chan struct{}, endOnce *sync.Once) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.tick(ctx, ended, endOnce)
		}
	}
}

// tick starts processing unless a previous tick is still in flight.
func (s *Scheduler) tick(ctx context.Context, ended chan struct{}, endOnce *sync.Once) {
	n := s.ticks.Add(1)
	if !s.busy.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		s.logger.Debug("Tick %d dropped: previous tick still processing", n)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.process(ctx, ended, endOnce)
	}()
}

func (s *Scheduler) process(ctx context.Context, ended chan struct{}, endOnce *sync.Once) {
	defer func() {
		if r := recover(); r != nil {
			s.failed.Add(1)
			s.logger.Warn("Tick failed: %v", r)
		}
	}()

	start := s.opts.Now()

	switch state := s.source.State(); state {
	case ports.SourceReady:
	case ports.SourceEnded:
		s.markEnded(ended, endOnce)
		return
	default:
		s.logger.Debug("Frame source %s, skipping tick", state)
		return
	}

	frame, err := s.source.CurrentFrame(ctx)
	if err != nil {
		// Sources may only learn about the end when reading past it.
		if s.source.State() == ports.SourceEnded {
			s.markEnded(ended, endOnce)
			return
		}
		if ctx.Err() == nil {
			s.failed.Add(1)
			s.logger.Warn("Failed to capture frame: %s", err)
		}
		return
	}
	s.saveDebug(func(d ports.DebugSink) error { return d.SaveFrame(frame.Seq, frame) })

	out, mask := s.apply(ctx, frame)
	if !s.emit(out) {
		return
	}

	elapsed := s.opts.Now().Sub(start)
	s.tracker.RecordTick(durationMs(s.opts.Now().Sub(s.startedAt)))
	s.tracker.SetProcessingTime(durationMs(elapsed))

	if s.opts.OnStats != nil {
		stats := s.tracker.Stats()
		ts := pipeline.TickStats{
			FPS:              int(math.Round(stats.FPS)),
			ProcessingTimeMs: int(math.Round(durationMs(elapsed))),
			Composited:       mask != nil,
			Seq:              frame.Seq,
		}
		if mask != nil {
			ts.Coverage = mask.Coverage(s.opts.Effect.ConfidenceThreshold)
		}
		s.opts.OnStats(ts)
	}
}

func (s *Scheduler) markEnded(ended chan struct{}, endOnce *sync.Once) {
	endOnce.Do(func() {
		s.logger.Info("Frame source ended")
		close(ended)
	})
}

// apply composites frame with the latest mask. It returns the frame itself
// and a nil mask when no compatible mask is available.
func (s *Scheduler) apply(ctx context.Context, frame *pixel.Buffer) (*pixel.Buffer, *pipeline.MaskSample) {
	mask := s.session.RequestMask(ctx, frame)
	if mask == nil {
		s.passthrough.Add(1)
		return frame, nil
	}
	if !pixel.Compatible(frame, mask.Buffer) {
		s.mismatched.Add(1)
		s.passthrough.Add(1)
		s.logger.Debug("Mask %dx%d does not match frame %dx%d, passing through",
			mask.Buffer.Width, mask.Buffer.Height, frame.Width, frame.Height)
		return frame, nil
	}

	out, err := s.composite.Execute(ctx, pipeline.CompositeInput{
		Frame:   frame,
		Mask:    mask.Buffer,
		Options: s.opts.Effect,
	})
	if err != nil {
		s.passthrough.Add(1)
		if ctx.Err() == nil {
			s.failed.Add(1)
			s.logger.Warn("Failed to composite frame %d: %s", frame.Seq, err)
		}
		return frame, nil
	}

	s.composited.Add(1)
	s.saveDebug(func(d ports.DebugSink) error { return d.SaveMask(frame.Seq, mask.Buffer) })
	out.Seq = frame.Seq
	return out, mask
}

// emit hands out to the sink unless the scheduler was stopped.
func (s *Scheduler) emit(out *pixel.Buffer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	if err := s.sink.WriteFrame(out); err != nil {
		s.failed.Add(1)
		s.logger.Warn("Failed to write frame %d: %s", out.Seq, err)
		return false
	}
	s.saveDebug(func(d ports.DebugSink) error { return d.SaveOutput(out.Seq, out) })
	return true
}

func (s *Scheduler) saveDebug(save func(ports.DebugSink) error) {
	if s.opts.Debug == nil || !s.opts.Debug.Enabled() {
		return
	}
	if err := save(s.opts.Debug); err != nil {
		s.logger.Warn("Failed to save debug output: %s", err)
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
