package mocks

import (
	"context"
	"sync"

	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource.
// It returns solid frames of a fixed size, numbered from 0.
type FrameSource struct {
	mu sync.Mutex

	Width  int
	Height int
	// Color is the RGBA value of every pixel.
	Color [4]uint8
	// Limit ends the source after this many frames (0 = unlimited).
	Limit int

	StateFunc func() ports.SourceState
	FrameFunc func(ctx context.Context, seq int64) (*pixel.Buffer, error)

	Captured int
	Closed   bool
	paused   bool
}

// NewFrameSource creates a mock source of solid 200,100,50 frames.
func NewFrameSource(width, height int) *FrameSource {
	return &FrameSource{
		Width:  width,
		Height: height,
		Color:  [4]uint8{200, 100, 50, 255},
	}
}

func (m *FrameSource) State() ports.SourceState {
	if m.StateFunc != nil {
		return m.StateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Limit > 0 && m.Captured >= m.Limit {
		return ports.SourceEnded
	}
	if m.paused {
		return ports.SourcePaused
	}
	return ports.SourceReady
}

func (m *FrameSource) Size() (int, int) {
	return m.Width, m.Height
}

func (m *FrameSource) CurrentFrame(ctx context.Context) (*pixel.Buffer, error) {
	m.mu.Lock()
	seq := int64(m.Captured)
	m.Captured++
	m.mu.Unlock()

	if m.FrameFunc != nil {
		return m.FrameFunc(ctx, seq)
	}

	frame := pixel.New(m.Width, m.Height)
	for i := 0; i < frame.Len(); i++ {
		copy(frame.Data[i*pixel.Channels:], m.Color[:])
	}
	frame.Seq = seq
	return frame, nil
}

func (m *FrameSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// SetPaused toggles the paused state.
func (m *FrameSource) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
}

// CapturedCount returns how many frames were captured.
func (m *FrameSource) CapturedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Captured
}

var _ ports.FrameSource = (*FrameSource)(nil)
