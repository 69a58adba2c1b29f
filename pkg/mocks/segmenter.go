package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// Segmenter is a mock implementation of ports.Segmenter.
//
// By default every submitted frame is answered immediately with the mask
// returned by MaskFunc (a fully foreground mask of the frame's size when
// MaskFunc is nil). With Manual set, results are held until the test calls
// Resolve or ResolveNext.
type Segmenter struct {
	mu sync.Mutex

	InitErr    error
	SubmitErr  error
	Manual     bool
	MaskFunc   func(frame *pixel.Buffer) *pixel.Buffer
	SubmitFunc func(ctx context.Context, frame *pixel.Buffer) (<-chan ports.SegmentResult, error)

	InitCalls int
	Submitted []*pixel.Buffer
	Closed    bool

	pending []chan ports.SegmentResult
}

// NewSegmenter creates a mock segmenter answering immediately.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// NewManualSegmenter creates a mock segmenter that holds results until resolved.
func NewManualSegmenter() *Segmenter {
	return &Segmenter{Manual: true}
}

func (m *Segmenter) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitCalls++
	return m.InitErr
}

func (m *Segmenter) Submit(ctx context.Context, frame *pixel.Buffer) (<-chan ports.SegmentResult, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, frame)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SubmitErr != nil {
		return nil, m.SubmitErr
	}
	m.Submitted = append(m.Submitted, frame.Clone())

	ch := make(chan ports.SegmentResult, 1)
	if m.Manual {
		m.pending = append(m.pending, ch)
		return ch, nil
	}

	ch <- ports.SegmentResult{Mask: m.maskFor(frame)}
	close(ch)
	return ch, nil
}

func (m *Segmenter) maskFor(frame *pixel.Buffer) *pixel.Buffer {
	if m.MaskFunc != nil {
		return m.MaskFunc(frame)
	}
	return UniformMask(frame.Width, frame.Height, 255)
}

func (m *Segmenter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// SubmitCount returns the number of frames submitted so far.
func (m *Segmenter) SubmitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Submitted)
}

// PendingCount returns the number of unresolved requests in manual mode.
func (m *Segmenter) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// ResolveNext delivers res to the oldest unresolved request.
func (m *Segmenter) ResolveNext(res ports.SegmentResult) error {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return errors.New("mocks: no pending segmentation request")
	}
	ch := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()

	ch <- res
	close(ch)
	return nil
}

// ResolveNextMask answers the oldest unresolved request with a uniform mask
// of the given size.
func (m *Segmenter) ResolveNextMask(width, height int, confidence uint8) error {
	return m.ResolveNext(ports.SegmentResult{Mask: UniformMask(width, height, confidence)})
}

// UniformMask creates a mask where every pixel has the same confidence.
func UniformMask(width, height int, confidence uint8) *pixel.Buffer {
	mask := pixel.New(width, height)
	for i := 0; i < mask.Len(); i++ {
		o := i * pixel.Channels
		mask.Data[o] = confidence
		mask.Data[o+1] = confidence
		mask.Data[o+2] = confidence
		mask.Data[o+3] = 255
	}
	return mask
}

var _ ports.Segmenter = (*Segmenter)(nil)
