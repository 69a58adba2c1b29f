package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/maskfx/pkg/mocks"
	"github.com/user/maskfx/pkg/pipeline"
	"github.com/user/maskfx/pkg/ports"
	"github.com/user/maskfx/pkg/session"
)

type harness struct {
	source *mocks.FrameSource
	seg    *mocks.Segmenter
	sink   *mocks.FrameSink
	debug  *mocks.DebugSink
	ticker *mocks.Ticker
	logger *mocks.Logger
}

func newHarness() *harness {
	return &harness{
		source: mocks.NewFrameSource(8, 8),
		seg:    mocks.NewSegmenter(),
		sink:   mocks.NewFrameSink(),
		debug:  mocks.NewDebugSink(true),
		ticker: mocks.NewTicker(),
		logger: mocks.NewLogger(),
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Source:    h.source,
		Segmenter: h.seg,
		Sink:      h.sink,
		Debug:     h.debug,
		Logger:    h.logger,
		NewTicker: h.ticker.Factory(),
	}
}

// run executes the orchestrator while feeding ticks until it returns.
func (h *harness) run(t *testing.T, ctx context.Context, deps Deps, config Config) (RunResult, error) {
	t.Helper()

	var (
		result RunResult
		err    error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, err = New(deps).Run(ctx, config)
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-done:
			return result, err
		case <-deadline:
			t.Fatal("run did not finish")
		default:
			h.ticker.Tick(5 * time.Millisecond)
		}
	}
}

func TestOrchestrator_Run_SourceEnded(t *testing.T) {
	h := newHarness()
	h.source.Limit = 3

	result, err := h.run(t, context.Background(), h.deps(), DefaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.StopReason != StopSourceEnded {
		t.Errorf("expected %s, got %s", StopSourceEnded, result.StopReason)
	}
	if result.Frames != 3 || h.sink.Count() != 3 {
		t.Errorf("expected 3 frames, got %d (sink %d)", result.Frames, h.sink.Count())
	}
	if result.CompositedFrames != 3 {
		t.Errorf("expected every frame composited, got %d", result.CompositedFrames)
	}
	if result.AvgCoverage != 1 {
		t.Errorf("expected full coverage, got %v", result.AvgCoverage)
	}
	if result.Width != 8 || result.Height != 8 {
		t.Errorf("expected 8x8, got %dx%d", result.Width, result.Height)
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}
	if result.Masks.Accepted != 3 {
		t.Errorf("expected 3 accepted masks, got %d", result.Masks.Accepted)
	}

	if !h.sink.Closed || !h.source.Closed || !h.seg.Closed {
		t.Errorf("expected all collaborators closed: sink %v, source %v, segmenter %v",
			h.sink.Closed, h.source.Closed, h.seg.Closed)
	}
}

func TestOrchestrator_Run_MaxFrames(t *testing.T) {
	h := newHarness()
	config := DefaultConfig()
	config.MaxFrames = 2

	result, err := h.run(t, context.Background(), h.deps(), config)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.StopReason != StopMaxFrames {
		t.Errorf("expected %s, got %s", StopMaxFrames, result.StopReason)
	}
	if result.Frames < 2 {
		t.Errorf("expected at least 2 frames, got %d", result.Frames)
	}
}

func TestOrchestrator_Run_Duration(t *testing.T) {
	h := newHarness()
	h.source.SetPaused(true)
	config := DefaultConfig()
	config.Duration = 20 * time.Millisecond

	result, err := h.run(t, context.Background(), h.deps(), config)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.StopReason != StopDuration {
		t.Errorf("expected %s, got %s", StopDuration, result.StopReason)
	}
	if result.Frames != 0 {
		t.Errorf("expected no frames from a paused source, got %d", result.Frames)
	}
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	h := newHarness()
	h.source.SetPaused(true)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	result, err := h.run(t, ctx, h.deps(), DefaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.StopReason != StopCancelled {
		t.Errorf("expected %s, got %s", StopCancelled, result.StopReason)
	}
	if !h.sink.Closed {
		t.Error("expected sink to be closed")
	}
}

func TestOrchestrator_Run_SegmenterInitFailure(t *testing.T) {
	h := newHarness()
	h.seg.InitErr = errors.New("model not found")

	_, err := h.run(t, context.Background(), h.deps(), DefaultConfig())
	if !errors.Is(err, session.ErrProviderInit) {
		t.Fatalf("expected ErrProviderInit, got %v", err)
	}
	if h.sink.Count() != 0 {
		t.Errorf("expected no frames, got %d", h.sink.Count())
	}
	if !h.sink.Closed || !h.source.Closed {
		t.Error("expected sink and source to be closed")
	}
	if h.logger.Count(ports.LevelError) == 0 {
		t.Error("expected the failure to be logged")
	}
}

func TestOrchestrator_Run_SinkCloseError(t *testing.T) {
	h := newHarness()
	h.source.Limit = 1
	h.sink.CloseErr = errors.New("disk full")

	result, err := h.run(t, context.Background(), h.deps(), DefaultConfig())
	if err == nil {
		t.Fatal("expected close error")
	}
	if result.RunID == "" || result.Frames != 1 || result.StopReason != StopSourceEnded {
		t.Errorf("expected the filled result with the error, got %+v", result)
	}
	if len(h.debug.StatsJSON) == 0 {
		t.Error("expected stats to be saved despite the close error")
	}
}

func TestOrchestrator_Run_ForwardsStats(t *testing.T) {
	h := newHarness()
	h.source.Limit = 2

	var (
		mu    sync.Mutex
		stats []pipeline.TickStats
	)
	deps := h.deps()
	deps.OnStats = func(ts pipeline.TickStats) {
		mu.Lock()
		defer mu.Unlock()
		stats = append(stats, ts)
	}

	if _, err := h.run(t, context.Background(), deps, DefaultConfig()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(stats) != 2 {
		t.Fatalf("expected 2 forwarded samples, got %d", len(stats))
	}
	if stats[0].Seq != 0 || stats[1].Seq != 1 {
		t.Errorf("unexpected sequence: %d, %d", stats[0].Seq, stats[1].Seq)
	}
}

func TestOrchestrator_Run_SavesStatsJSON(t *testing.T) {
	h := newHarness()
	h.source.Limit = 1

	result, err := h.run(t, context.Background(), h.deps(), DefaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var saved RunResult
	if err := json.Unmarshal(h.debug.StatsJSON, &saved); err != nil {
		t.Fatalf("invalid stats JSON: %v", err)
	}
	if saved.RunID != result.RunID || saved.Frames != 1 {
		t.Errorf("unexpected saved stats: %+v", saved)
	}
	if h.debug.OutputCount() != 1 {
		t.Errorf("expected 1 debug output, got %d", h.debug.OutputCount())
	}
}

func TestAggregate(t *testing.T) {
	agg := newAggregate(2, nil)
	agg.observe(pipeline.TickStats{FPS: 30, ProcessingTimeMs: 10, Composited: true, Coverage: 0.5})
	select {
	case <-agg.limit:
		t.Fatal("limit reached too early")
	default:
	}
	agg.observe(pipeline.TickStats{FPS: 28, ProcessingTimeMs: 20})

	select {
	case <-agg.limit:
	default:
		t.Fatal("expected limit to be reached")
	}

	r := RunResult{Elapsed: time.Second}
	agg.fill(&r)
	if r.Frames != 2 || r.CompositedFrames != 1 {
		t.Errorf("unexpected counts: %d frames, %d composited", r.Frames, r.CompositedFrames)
	}
	if r.AvgProcessingMs != 15 || r.MaxProcessingMs != 20 {
		t.Errorf("unexpected processing: avg %v, max %d", r.AvgProcessingMs, r.MaxProcessingMs)
	}
	if r.AvgCoverage != 0.5 || r.FinalFPS != 28 || r.AvgFPS != 2 {
		t.Errorf("unexpected result: %+v", r)
	}
}
