// Package summarizer provides summary generation for processing runs.
package summarizer

import (
	"time"

	"github.com/user/maskfx/pkg/orchestrator"
)

// Summary contains all data collected during a run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string

	Input        InputInfo
	Run          RunInfo
	Performance  PerformanceInfo
	Segmentation SegmentationInfo
	Settings     Settings
	Output       OutputInfo
}

// InputInfo describes the frame source.
type InputInfo struct {
	Type   string
	Path   string
	Width  int
	Height int
	// Codec and FPS are known for probed video files only.
	Codec string
	FPS   float64
}

// RunInfo contains tick outcomes.
type RunInfo struct {
	StopReason   string
	DurationMs   int
	Frames       int
	Composited   int
	Passthrough  int
	Mismatched   int
	DroppedTicks int
	FailedTicks  int
}

// PerformanceInfo contains timing measurements.
type PerformanceInfo struct {
	FinalFPS        int
	AvgFPS          float64
	AvgProcessingMs float64
	MaxProcessingMs int
}

// SegmentationInfo contains segmentation request outcomes.
type SegmentationInfo struct {
	Segmenter string
	Staleness string
	Submitted int
	Accepted  int
	Rejected  int
	Failed    int
	// AvgCoverage is the mean foreground fraction of applied masks.
	AvgCoverage float64
}

// Settings contains the effect configuration.
type Settings struct {
	Effect        string
	Grayscale     string
	Threshold     int
	TargetFPS     float64
	MaskTimeoutMs int
}

// OutputInfo describes where the frames went.
type OutputInfo struct {
	Type     string
	Path     string
	FileSize int64
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// FromRunResult fills the run, performance, segmentation and effect
// settings from an orchestrator result.
func (b *Builder) FromRunResult(r orchestrator.RunResult) *Builder {
	s := b.summary
	s.RunID = r.RunID
	s.Run = RunInfo{
		StopReason:   string(r.StopReason),
		DurationMs:   int(r.Elapsed / time.Millisecond),
		Frames:       r.Frames,
		Composited:   r.CompositedFrames,
		Passthrough:  int(r.Ticks.Passthrough),
		Mismatched:   int(r.Ticks.Mismatched),
		DroppedTicks: int(r.Ticks.Dropped),
		FailedTicks:  int(r.Ticks.Failed),
	}
	s.Performance = PerformanceInfo{
		FinalFPS:        r.FinalFPS,
		AvgFPS:          r.AvgFPS,
		AvgProcessingMs: r.AvgProcessingMs,
		MaxProcessingMs: r.MaxProcessingMs,
	}
	s.Segmentation.Staleness = r.Staleness.String()
	s.Segmentation.Submitted = int(r.Masks.Submitted)
	s.Segmentation.Accepted = int(r.Masks.Accepted)
	s.Segmentation.Rejected = int(r.Masks.Rejected)
	s.Segmentation.Failed = int(r.Masks.Failed)
	s.Segmentation.AvgCoverage = r.AvgCoverage
	s.Settings.Effect = r.Effect.Effect.String()
	s.Settings.Grayscale = r.Effect.GrayscaleMethod.String()
	s.Settings.Threshold = int(r.Effect.ConfidenceThreshold)
	if s.Input.Width == 0 {
		s.Input.Width = r.Width
		s.Input.Height = r.Height
	}
	return b
}

// WithInput sets input information.
func (b *Builder) WithInput(input InputInfo) *Builder {
	b.summary.Input = input
	return b
}

// WithSegmenter sets the segmenter name.
func (b *Builder) WithSegmenter(name string) *Builder {
	b.summary.Segmentation.Segmenter = name
	return b
}

// WithSchedule sets the target frame rate and mask timeout.
func (b *Builder) WithSchedule(targetFPS float64, maskTimeoutMs int) *Builder {
	b.summary.Settings.TargetFPS = targetFPS
	b.summary.Settings.MaskTimeoutMs = maskTimeoutMs
	return b
}

// WithOutput sets output information.
func (b *Builder) WithOutput(output OutputInfo) *Builder {
	b.summary.Output = output
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
