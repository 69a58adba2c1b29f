package mocks

import (
	"sync"

	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	Frames    map[int64]*pixel.Buffer
	Masks     map[int64]*pixel.Buffer
	Outputs   map[int64]*pixel.Buffer
	StatsJSON []byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled: enabled,
		Frames:  make(map[int64]*pixel.Buffer),
		Masks:   make(map[int64]*pixel.Buffer),
		Outputs: make(map[int64]*pixel.Buffer),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveFrame(seq int64, frame *pixel.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames[seq] = frame
	return nil
}

func (m *DebugSink) SaveMask(seq int64, mask *pixel.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Masks[seq] = mask
	return nil
}

func (m *DebugSink) SaveOutput(seq int64, frame *pixel.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outputs[seq] = frame
	return nil
}

func (m *DebugSink) SaveStatsJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatsJSON = data
	return nil
}

// OutputCount returns the number of saved output frames.
func (m *DebugSink) OutputCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Outputs)
}

var _ ports.DebugSink = (*DebugSink)(nil)

// NullSink is a no-op implementation of ports.DebugSink.
type NullSink struct{}

func (m *NullSink) Enabled() bool                                   { return false }
func (m *NullSink) SaveFrame(seq int64, frame *pixel.Buffer) error  { return nil }
func (m *NullSink) SaveMask(seq int64, mask *pixel.Buffer) error    { return nil }
func (m *NullSink) SaveOutput(seq int64, frame *pixel.Buffer) error { return nil }
func (m *NullSink) SaveStatsJSON(data []byte) error                 { return nil }

var _ ports.DebugSink = (*NullSink)(nil)
