package summarizer

import (
	"testing"
	"time"

	"github.com/user/maskfx/pkg/orchestrator"
	"github.com/user/maskfx/pkg/pipeline"
	"github.com/user/maskfx/pkg/scheduler"
	"github.com/user/maskfx/pkg/session"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_FromRunResult(t *testing.T) {
	result := orchestrator.RunResult{
		RunID:            "run-1",
		StopReason:       orchestrator.StopSourceEnded,
		Width:            640,
		Height:           360,
		Elapsed:          3500 * time.Millisecond,
		FinalFPS:         29,
		AvgFPS:           28.5,
		AvgProcessingMs:  12.5,
		MaxProcessingMs:  40,
		Frames:           100,
		CompositedFrames: 90,
		AvgCoverage:      0.42,
		Effect: pipeline.EffectOptions{
			ConfidenceThreshold: 127,
			GrayscaleMethod:     pipeline.GrayscalePerceptual,
			Effect:              pipeline.EffectBlur,
		},
		Staleness: session.PolicyEnabledOnly,
		Ticks:     scheduler.Counters{Dropped: 3, Passthrough: 10, Mismatched: 2, Failed: 1},
		Masks:     session.Counters{Submitted: 95, Accepted: 90, Rejected: 4, Failed: 1},
	}

	s := NewBuilder().FromRunResult(result).Build()

	if s.RunID != "run-1" || s.Run.StopReason != "source-ended" || s.Run.DurationMs != 3500 {
		t.Errorf("unexpected run info: %s %+v", s.RunID, s.Run)
	}
	if s.Run.Frames != 100 || s.Run.Composited != 90 || s.Run.Passthrough != 10 ||
		s.Run.Mismatched != 2 || s.Run.DroppedTicks != 3 || s.Run.FailedTicks != 1 {
		t.Errorf("unexpected frame counts: %+v", s.Run)
	}
	if s.Performance.FinalFPS != 29 || s.Performance.MaxProcessingMs != 40 {
		t.Errorf("unexpected performance: %+v", s.Performance)
	}
	if s.Segmentation.Staleness != "enabled" || s.Segmentation.Rejected != 4 || s.Segmentation.AvgCoverage != 0.42 {
		t.Errorf("unexpected segmentation: %+v", s.Segmentation)
	}
	if s.Settings.Effect != "blur" || s.Settings.Grayscale != "perceptual" || s.Settings.Threshold != 127 {
		t.Errorf("unexpected settings: %+v", s.Settings)
	}
	if s.Input.Width != 640 || s.Input.Height != 360 {
		t.Errorf("expected size from result, got %dx%d", s.Input.Width, s.Input.Height)
	}
}

func TestBuilder_InputSizeWins(t *testing.T) {
	s := NewBuilder().
		WithInput(InputInfo{Type: "video", Path: "in.mp4", Width: 1280, Height: 720}).
		FromRunResult(orchestrator.RunResult{Width: 640, Height: 360}).
		Build()

	if s.Input.Width != 1280 || s.Input.Height != 720 {
		t.Errorf("expected probed size to be kept, got %dx%d", s.Input.Width, s.Input.Height)
	}
}

func TestBuilder_FullChain(t *testing.T) {
	summary := NewBuilder().
		WithInput(InputInfo{Type: "images", Path: "./frames"}).
		WithSegmenter("maskdir").
		WithSchedule(15, 200).
		WithOutput(OutputInfo{Type: "video", Path: "out.mp4"}).
		Build()

	if summary.Input.Path != "./frames" {
		t.Error("Input.Path not set correctly")
	}
	if summary.Segmentation.Segmenter != "maskdir" {
		t.Error("Segmentation.Segmenter not set correctly")
	}
	if summary.Settings.TargetFPS != 15 || summary.Settings.MaskTimeoutMs != 200 {
		t.Error("Settings schedule not set correctly")
	}
	if summary.Output.Path != "out.mp4" {
		t.Error("Output.Path not set correctly")
	}
}
