package ports

import (
	"github.com/user/maskfx/pkg/pixel"
)

// FrameSink receives one output frame per completed tick.
type FrameSink interface {
	// WriteFrame accepts a frame for display or storage.
	// The sink must not modify the frame.
	WriteFrame(frame *pixel.Buffer) error

	// Close flushes and releases sink resources.
	Close() error
}

// DebugSink abstracts debug output for intermediate results.
// It allows saving intermediate processing results for debugging purposes.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveFrame saves the captured input frame.
	SaveFrame(seq int64, frame *pixel.Buffer) error

	// SaveMask saves the mask used for a frame.
	SaveMask(seq int64, mask *pixel.Buffer) error

	// SaveOutput saves the frame delivered to the output sink.
	SaveOutput(seq int64, frame *pixel.Buffer) error

	// SaveStatsJSON saves the run statistics as JSON.
	SaveStatsJSON(data []byte) error
}
