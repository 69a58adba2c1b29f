package ffmpegsource

import (
	"context"
	"testing"
	"time"

	"github.com/user/maskfx/pkg/adapters/logger"
	"github.com/user/maskfx/pkg/mocks"
	"github.com/user/maskfx/pkg/scheduler"
	"github.com/user/maskfx/pkg/session"
)

func TestSource_CleanEndUnderScheduler(t *testing.T) {
	src := newSource(rawFrames(2, 2, 2), 2, 2, false, logger.NewNoop())
	sess := session.NewManager(mocks.NewSegmenter(), logger.NewNoop(), session.DefaultOptions())
	if err := sess.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer sess.Close()

	sink := mocks.NewFrameSink()
	ticker := mocks.NewTicker()
	opts := scheduler.DefaultOptions()
	opts.NewTicker = ticker.Factory()
	sched := scheduler.New(src, sess, sink, logger.NewNoop(), opts)
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sched.Stop()

	deadline := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case <-sched.Ended():
			done = true
		case <-deadline:
			t.Fatal("scheduler did not report the end of the stream")
		default:
			ticker.Tick(5 * time.Millisecond)
		}
	}
	sched.Stop()

	if sink.Count() != 2 {
		t.Errorf("expected 2 frames written, got %d", sink.Count())
	}
	if c := sched.Counters(); c.Failed != 0 {
		t.Errorf("expected no failed ticks, got %+v", c)
	}
}
