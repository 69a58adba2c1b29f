package mocks

import (
	"sync"

	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// FrameSink is a mock implementation of ports.FrameSink recording every frame.
type FrameSink struct {
	mu sync.Mutex

	WriteErr error
	CloseErr error
	Frames   []*pixel.Buffer
	Closed   bool
}

// NewFrameSink creates a new mock FrameSink.
func NewFrameSink() *FrameSink {
	return &FrameSink{}
}

func (m *FrameSink) WriteFrame(frame *pixel.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Frames = append(m.Frames, frame)
	return nil
}

func (m *FrameSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseErr
}

// Count returns the number of frames written.
func (m *FrameSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Frames)
}

// Last returns the most recent frame, or nil.
func (m *FrameSink) Last() *pixel.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Frames) == 0 {
		return nil
	}
	return m.Frames[len(m.Frames)-1]
}

var _ ports.FrameSink = (*FrameSink)(nil)
