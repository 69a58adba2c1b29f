package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/user/maskfx/pkg/mocks"
	"github.com/user/maskfx/pkg/pipeline"
	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
	"github.com/user/maskfx/pkg/session"
)

const waitFor = time.Second

type fixture struct {
	source  *mocks.FrameSource
	seg     *mocks.Segmenter
	session *session.Manager
	sink    *mocks.FrameSink
	ticker  *mocks.Ticker
	sched   *Scheduler

	mu    sync.Mutex
	stats []pipeline.TickStats
}

func newFixture(t *testing.T, seg *mocks.Segmenter, sessOpts session.Options) *fixture {
	t.Helper()
	f := &fixture{
		source: mocks.NewFrameSource(8, 8),
		seg:    seg,
		sink:   mocks.NewFrameSink(),
		ticker: mocks.NewTicker(),
	}
	logger := mocks.NewLogger()
	f.session = session.NewManager(seg, logger, sessOpts)
	require.NoError(t, f.session.Load(context.Background()))

	opts := DefaultOptions()
	opts.NewTicker = f.ticker.Factory()
	opts.OnStats = func(ts pipeline.TickStats) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stats = append(f.stats, ts)
	}
	f.sched = New(f.source, f.session, f.sink, logger, opts)
	t.Cleanup(func() {
		f.sched.Stop()
		f.session.Close()
	})
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.sched.Start(context.Background()))
}

func (f *fixture) tick(t *testing.T) {
	t.Helper()
	require.True(t, f.ticker.Tick(waitFor), "tick not received")
}

// tickAndWait delivers a tick and waits until its processing finished.
func (f *fixture) tickAndWait(t *testing.T) {
	t.Helper()
	f.tick(t)
	require.Eventually(t, func() bool { return !f.sched.Processing() }, waitFor, time.Millisecond)
}

func (f *fixture) statsCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stats)
}

func (f *fixture) lastStats() pipeline.TickStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats[len(f.stats)-1]
}

func TestScheduler_CompositesForeground(t *testing.T) {
	f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())
	f.start(t)

	f.tickAndWait(t)

	require.Equal(t, 1, f.sink.Count())
	require.Equal(t, []byte{200, 100, 50, 255}, f.sink.Last().Data[:4])
	require.Equal(t, uint64(1), f.sched.Counters().Composited)

	require.Equal(t, 1, f.statsCount())
	ts := f.lastStats()
	require.True(t, ts.Composited)
	require.Equal(t, 1.0, ts.Coverage)
}

func TestScheduler_GrayscalesBackground(t *testing.T) {
	seg := mocks.NewSegmenter()
	seg.MaskFunc = func(frame *pixel.Buffer) *pixel.Buffer {
		return mocks.UniformMask(frame.Width, frame.Height, 0)
	}
	f := newFixture(t, seg, session.DefaultOptions())
	f.start(t)

	f.tickAndWait(t)

	require.Equal(t, 1, f.sink.Count())
	require.Equal(t, []byte{117, 117, 117, 255}, f.sink.Last().Data[:4])
}

func TestScheduler_DropsTickWhileBusy(t *testing.T) {
	seg := mocks.NewManualSegmenter()
	f := newFixture(t, seg, session.Options{MaskTimeout: -1})
	f.start(t)

	// Tick 1 waits for its mask.
	f.tick(t)
	require.Eventually(t, func() bool { return seg.PendingCount() == 1 }, waitFor, time.Millisecond)

	// Tick 2 arrives while tick 1 is outstanding.
	f.tick(t)
	require.Eventually(t, func() bool { return f.sched.Counters().Dropped == 1 }, waitFor, time.Millisecond)

	require.NoError(t, seg.ResolveNextMask(8, 8, 255))
	require.Eventually(t, func() bool { return !f.sched.Processing() }, waitFor, time.Millisecond)

	// Tick 3 is processed normally.
	f.tick(t)
	require.Eventually(t, func() bool { return seg.PendingCount() == 1 }, waitFor, time.Millisecond)
	require.NoError(t, seg.ResolveNextMask(8, 8, 255))
	require.Eventually(t, func() bool { return !f.sched.Processing() }, waitFor, time.Millisecond)

	c := f.sched.Counters()
	require.Equal(t, uint64(3), c.Ticks)
	require.Equal(t, uint64(1), c.Dropped)
	require.Equal(t, 2, f.sink.Count())
	require.Len(t, f.sched.Stats().Samples, 2)
	require.Equal(t, 2, f.source.CapturedCount())
}

func TestScheduler_MismatchedMaskPassesThrough(t *testing.T) {
	seg := mocks.NewSegmenter()
	seg.MaskFunc = func(*pixel.Buffer) *pixel.Buffer {
		return mocks.UniformMask(50, 50, 0)
	}
	f := newFixture(t, seg, session.DefaultOptions())
	f.source.Width, f.source.Height = 100, 100
	f.start(t)

	f.tickAndWait(t)

	require.Equal(t, 1, f.sink.Count())
	out := f.sink.Last()
	require.Equal(t, 100, out.Width)
	require.Equal(t, []byte{200, 100, 50, 255}, out.Data[:4])

	c := f.sched.Counters()
	require.Equal(t, uint64(1), c.Mismatched)
	require.Equal(t, uint64(1), c.Passthrough)
	require.Zero(t, c.Failed)
	require.False(t, f.lastStats().Composited)
}

func TestScheduler_NoMaskPassesThrough(t *testing.T) {
	seg := mocks.NewManualSegmenter()
	f := newFixture(t, seg, session.Options{MaskTimeout: time.Millisecond})
	f.start(t)

	f.tickAndWait(t)

	require.Equal(t, 1, f.sink.Count())
	require.Equal(t, uint64(1), f.sched.Counters().Passthrough)
}

func TestScheduler_NoOutputAfterStop(t *testing.T) {
	seg := mocks.NewManualSegmenter()
	f := newFixture(t, seg, session.Options{MaskTimeout: -1})
	f.start(t)

	f.tick(t)
	require.Eventually(t, func() bool { return seg.PendingCount() == 1 }, waitFor, time.Millisecond)

	f.sched.Stop()
	require.False(t, f.sched.Running())
	require.False(t, f.session.Enabled())

	// The provider answers after Stop returned.
	require.NoError(t, seg.ResolveNextMask(8, 8, 255))
	require.Eventually(t, func() bool { return f.session.Counters().Rejected == 1 }, waitFor, time.Millisecond)

	require.Zero(t, f.sink.Count())
	require.Empty(t, f.sched.Stats().Samples)
	require.True(t, f.ticker.Stopped())
}

func TestScheduler_StartPreconditions(t *testing.T) {
	t.Run("not loaded", func(t *testing.T) {
		sess := session.NewManager(mocks.NewSegmenter(), mocks.NewLogger(), session.DefaultOptions())
		s := New(mocks.NewFrameSource(4, 4), sess, mocks.NewFrameSink(), mocks.NewLogger(), DefaultOptions())
		err := s.Start(context.Background())
		require.ErrorIs(t, err, ErrNotReady)
		require.False(t, s.Running())
	})

	t.Run("init failure", func(t *testing.T) {
		seg := mocks.NewSegmenter()
		seg.InitErr = errors.New("no model")
		sess := session.NewManager(seg, mocks.NewLogger(), session.DefaultOptions())
		require.Error(t, sess.Load(context.Background()))

		s := New(mocks.NewFrameSource(4, 4), sess, mocks.NewFrameSink(), mocks.NewLogger(), DefaultOptions())
		err := s.Start(context.Background())
		require.ErrorIs(t, err, ErrNotReady)
	})

	t.Run("no source", func(t *testing.T) {
		sess := session.NewManager(mocks.NewSegmenter(), mocks.NewLogger(), session.DefaultOptions())
		s := New(nil, sess, mocks.NewFrameSink(), mocks.NewLogger(), DefaultOptions())
		require.ErrorIs(t, s.Start(context.Background()), ErrNoFrameSource)
	})

	t.Run("already running", func(t *testing.T) {
		f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())
		f.start(t)
		require.ErrorIs(t, f.sched.Start(context.Background()), ErrAlreadyRunning)
	})
}

func TestScheduler_StartEnablesSession(t *testing.T) {
	f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())
	f.session.Reset()
	require.False(t, f.session.Enabled())

	f.start(t)
	require.True(t, f.session.Enabled())
	require.Equal(t, pipeline.Dimension{Width: 8, Height: 8}, f.sched.Size())
}

func TestScheduler_RestartAfterStop(t *testing.T) {
	f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())
	f.start(t)
	f.tickAndWait(t)
	f.sched.Stop()

	f.start(t)
	f.tickAndWait(t)

	require.Equal(t, 2, f.sink.Count())
	require.Len(t, f.sched.Stats().Samples, 1)
}

func TestScheduler_ConcurrentStartStop(t *testing.T) {
	f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())

	for i := 0; i < 50; i++ {
		f.start(t)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.sched.Stop()
		}()
		go func() {
			defer wg.Done()
			_ = f.sched.Start(context.Background())
		}()
		wg.Wait()

		// Whichever call won, the session state follows the scheduler state.
		require.Equal(t, f.sched.Running(), f.session.Enabled(), "iteration %d", i)
		f.sched.Stop()
	}
}

func TestScheduler_PausedSourceSkipsTick(t *testing.T) {
	f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())
	f.source.SetPaused(true)
	f.start(t)

	f.tickAndWait(t)

	require.Zero(t, f.sink.Count())
	require.Zero(t, f.source.CapturedCount())
	require.Zero(t, f.statsCount())
}

func TestScheduler_EndedSource(t *testing.T) {
	f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())
	f.source.Limit = 1
	f.start(t)

	f.tickAndWait(t)
	f.tickAndWait(t)

	select {
	case <-f.sched.Ended():
	case <-time.After(waitFor):
		t.Fatal("expected Ended to be closed")
	}
	require.Equal(t, 1, f.sink.Count())

	// Further ticks after the end are harmless.
	f.tickAndWait(t)
}

func TestScheduler_EndFoundByReadIsNotAFailure(t *testing.T) {
	f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())
	var exhausted atomic.Bool
	f.source.StateFunc = func() ports.SourceState {
		if exhausted.Load() {
			return ports.SourceEnded
		}
		return ports.SourceReady
	}
	f.source.FrameFunc = func(ctx context.Context, seq int64) (*pixel.Buffer, error) {
		if seq >= 2 {
			exhausted.Store(true)
			return nil, errors.New("end of stream")
		}
		frame := pixel.New(8, 8)
		frame.Seq = seq
		return frame, nil
	}
	f.start(t)

	for i := 0; i < 3; i++ {
		f.tickAndWait(t)
	}

	select {
	case <-f.sched.Ended():
	case <-time.After(waitFor):
		t.Fatal("expected Ended to be closed")
	}
	require.Equal(t, 2, f.sink.Count())
	require.Zero(t, f.sched.Counters().Failed)
}

func TestScheduler_CaptureFailureSkipsTick(t *testing.T) {
	f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())
	f.source.FrameFunc = func(ctx context.Context, seq int64) (*pixel.Buffer, error) {
		if seq == 0 {
			return nil, errors.New("device busy")
		}
		return pixel.New(8, 8), nil
	}
	f.start(t)

	f.tickAndWait(t)
	require.Zero(t, f.sink.Count())
	require.Equal(t, uint64(1), f.sched.Counters().Failed)

	f.tickAndWait(t)
	require.Equal(t, 1, f.sink.Count())
	require.True(t, f.sched.Running())
}

func TestScheduler_PanicSkipsTick(t *testing.T) {
	f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())
	f.source.FrameFunc = func(ctx context.Context, seq int64) (*pixel.Buffer, error) {
		if seq == 0 {
			panic("decoder crashed")
		}
		return pixel.New(8, 8), nil
	}
	f.start(t)

	f.tickAndWait(t)
	require.Equal(t, uint64(1), f.sched.Counters().Failed)

	f.tickAndWait(t)
	require.Equal(t, 1, f.sink.Count())
}

func TestScheduler_SinkFailure(t *testing.T) {
	f := newFixture(t, mocks.NewSegmenter(), session.DefaultOptions())
	f.sink.WriteErr = errors.New("disk full")
	f.start(t)

	f.tickAndWait(t)

	require.Equal(t, uint64(1), f.sched.Counters().Failed)
	require.Zero(t, f.statsCount())
	require.Empty(t, f.sched.Stats().Samples)
}

func TestScheduler_DebugSink(t *testing.T) {
	seg := mocks.NewSegmenter()
	logger := mocks.NewLogger()
	sess := session.NewManager(seg, logger, session.DefaultOptions())
	require.NoError(t, sess.Load(context.Background()))

	debug := mocks.NewDebugSink(true)
	ticker := mocks.NewTicker()
	sink := mocks.NewFrameSink()
	opts := DefaultOptions()
	opts.NewTicker = ticker.Factory()
	opts.Debug = debug
	s := New(mocks.NewFrameSource(4, 4), sess, sink, logger, opts)
	defer s.Stop()

	require.NoError(t, s.Start(context.Background()))
	require.True(t, ticker.Tick(waitFor))
	require.Eventually(t, func() bool { return debug.OutputCount() == 1 }, waitFor, time.Millisecond)

	require.Contains(t, debug.Frames, int64(0))
	require.Contains(t, debug.Masks, int64(0))
	require.True(t, bytes.Equal(debug.Outputs[0].Data, sink.Last().Data))
}

func TestScheduler_ProcessingTime(t *testing.T) {
	seg := mocks.NewSegmenter()
	logger := mocks.NewLogger()
	sess := session.NewManager(seg, logger, session.DefaultOptions())
	require.NoError(t, sess.Load(context.Background()))

	// Every call to the clock advances it by 10ms.
	var mu sync.Mutex
	now := time.Unix(0, 0)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(10 * time.Millisecond)
		return now
	}

	ticker := mocks.NewTicker()
	var got []pipeline.TickStats
	opts := DefaultOptions()
	opts.NewTicker = ticker.Factory()
	opts.Now = clock
	opts.OnStats = func(ts pipeline.TickStats) { got = append(got, ts) }
	s := New(mocks.NewFrameSource(4, 4), sess, mocks.NewFrameSink(), logger, opts)
	defer s.Stop()

	require.NoError(t, s.Start(context.Background())) // t=10
	require.True(t, ticker.Tick(waitFor))
	require.Eventually(t, func() bool { return !s.Processing() && s.Stats().LastProcessingTimeMs > 0 }, waitFor, time.Millisecond)

	// start=20, elapsed measured at 30, tick recorded at 40 (30ms after Start).
	stats := s.Stats()
	require.Equal(t, 10.0, stats.LastProcessingTimeMs)
	require.Len(t, stats.Samples, 1)
	require.InDelta(t, 1000.0/30.0, stats.Samples[0], 1e-9)
	require.Equal(t, 10, got[0].ProcessingTimeMs)
	require.Equal(t, 33, got[0].FPS)
}
