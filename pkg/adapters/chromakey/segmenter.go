// Package chromakey provides a segmenter that classifies pixels by their
// distance from a key color, as for footage shot against a green screen.
package chromakey

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// ErrNotInitialized is returned by Submit before Init.
var ErrNotInitialized = errors.New("chromakey: segmenter not initialized")

// maxDistance is the RGB distance between black and white.
var maxDistance = math.Sqrt(3 * 255 * 255)

// Options configures a Segmenter.
type Options struct {
	// Key is the background color.
	Key color.NRGBA
	// Tolerance is the RGB distance below which a pixel is pure background.
	Tolerance float64
	// Softness is the width of the linear ramp from background to foreground.
	Softness float64
	// Latency delays every result, to emulate a slow model.
	Latency time.Duration
}

// DefaultOptions keys out pure green.
func DefaultOptions() Options {
	return Options{
		Key:       color.NRGBA{G: 255, A: 255},
		Tolerance: 120,
		Softness:  60,
	}
}

// Segmenter implements ports.Segmenter.
type Segmenter struct {
	opts Options

	mu     sync.Mutex
	ready  bool
	closed bool
	wg     sync.WaitGroup
}

// New creates a chroma-key segmenter.
func New(opts Options) *Segmenter {
	return &Segmenter{opts: opts}
}

// Init validates the options.
func (s *Segmenter) Init(ctx context.Context) error {
	if s.opts.Tolerance < 0 || s.opts.Tolerance > maxDistance {
		return fmt.Errorf("chromakey: tolerance %.1f out of range [0, %.1f]", s.opts.Tolerance, maxDistance)
	}
	if s.opts.Softness < 0 {
		return fmt.Errorf("chromakey: negative softness %.1f", s.opts.Softness)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	return nil
}

// Submit computes the mask asynchronously. The frame is copied so the caller
// keeps ownership of its buffer.
func (s *Segmenter) Submit(ctx context.Context, frame *pixel.Buffer) (<-chan ports.SegmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready || s.closed {
		return nil, ErrNotInitialized
	}

	in := frame.Clone()
	results := make(chan ports.SegmentResult, 1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(results)

		if s.opts.Latency > 0 {
			timer := time.NewTimer(s.opts.Latency)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				results <- ports.SegmentResult{Err: ctx.Err()}
				return
			}
		}
		results <- ports.SegmentResult{Mask: Mask(in, s.opts)}
	}()

	return results, nil
}

// Close waits for outstanding requests.
func (s *Segmenter) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// Mask computes the confidence mask of frame. Confidence is written to the
// R, G and B channels; alpha is opaque.
func Mask(frame *pixel.Buffer, opts Options) *pixel.Buffer {
	mask := pixel.New(frame.Width, frame.Height)
	mask.Seq = frame.Seq

	kr, kg, kb := float64(opts.Key.R), float64(opts.Key.G), float64(opts.Key.B)
	n := frame.Len()
	for i := 0; i < n; i++ {
		o := i * pixel.Channels
		dr := float64(frame.Data[o]) - kr
		dg := float64(frame.Data[o+1]) - kg
		db := float64(frame.Data[o+2]) - kb
		c := Confidence(math.Sqrt(dr*dr+dg*dg+db*db), opts.Tolerance, opts.Softness)

		mask.Data[o] = c
		mask.Data[o+1] = c
		mask.Data[o+2] = c
		mask.Data[o+3] = 255
	}
	return mask
}

// Confidence maps a distance from the key color to a foreground confidence.
func Confidence(distance, tolerance, softness float64) uint8 {
	switch {
	case distance <= tolerance:
		return 0
	case softness <= 0 || distance >= tolerance+softness:
		return 255
	default:
		return uint8(math.Round((distance - tolerance) / softness * 255))
	}
}

var _ ports.Segmenter = (*Segmenter)(nil)
