package ports

import (
	"context"

	"github.com/user/maskfx/pkg/pixel"
)

// SourceState reports whether a frame source can currently deliver frames.
type SourceState int

const (
	// SourceNotReady means the source has not produced its first frame yet.
	SourceNotReady SourceState = iota
	// SourceReady means CurrentFrame can be called.
	SourceReady
	// SourcePaused means the source is temporarily not delivering frames.
	SourcePaused
	// SourceEnded means no further frames will be delivered.
	SourceEnded
)

// String returns the string representation of the state.
func (s SourceState) String() string {
	switch s {
	case SourceNotReady:
		return "not-ready"
	case SourceReady:
		return "ready"
	case SourcePaused:
		return "paused"
	case SourceEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// FrameSource provides the frame to process on each tick.
type FrameSource interface {
	// State reports readiness, pause and end of stream.
	State() SourceState

	// Size returns the frame dimensions of the source.
	Size() (width, height int)

	// CurrentFrame captures the current frame into a new buffer.
	// The caller owns the returned buffer.
	CurrentFrame(ctx context.Context) (*pixel.Buffer, error)

	// Close releases source resources.
	Close() error
}
