// Package nullsink provides no-op sink implementations.
package nullsink

import (
	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink and ports.FrameSink.
// It discards all output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveFrame does nothing.
func (s *Sink) SaveFrame(seq int64, frame *pixel.Buffer) error {
	return nil
}

// SaveMask does nothing.
func (s *Sink) SaveMask(seq int64, mask *pixel.Buffer) error {
	return nil
}

// SaveOutput does nothing.
func (s *Sink) SaveOutput(seq int64, frame *pixel.Buffer) error {
	return nil
}

// SaveStatsJSON does nothing.
func (s *Sink) SaveStatsJSON(data []byte) error {
	return nil
}

// WriteFrame discards the frame.
func (s *Sink) WriteFrame(frame *pixel.Buffer) error {
	return nil
}

// Close does nothing.
func (s *Sink) Close() error {
	return nil
}

var (
	_ ports.DebugSink = (*Sink)(nil)
	_ ports.FrameSink = (*Sink)(nil)
)
