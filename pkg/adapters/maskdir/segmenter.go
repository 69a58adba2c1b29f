// Package maskdir provides a segmenter that replays precomputed masks, one
// image file per frame, in name order.
package maskdir

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

var (
	// ErrNotInitialized is returned by Submit before Init.
	ErrNotInitialized = errors.New("maskdir: segmenter not initialized")
	// ErrNoMask is delivered when no mask exists for a frame.
	ErrNoMask = errors.New("maskdir: no mask for frame")
)

// Options configures a Segmenter.
type Options struct {
	Dir string
	// Resize scales masks to the submitted frame's size. Without it a mask
	// of a different size is delivered as-is and the frame passes through.
	Resize bool
	// Loop wraps frame numbers past the last mask.
	Loop bool
	// Latency delays every result.
	Latency time.Duration
}

// Segmenter implements ports.Segmenter over a directory of mask images.
type Segmenter struct {
	opts     Options
	fs       ports.FileSystem
	renderer ports.Renderer

	mu    sync.Mutex
	files []string
	wg    sync.WaitGroup
}

// New creates a mask directory segmenter.
func New(opts Options, fs ports.FileSystem, renderer ports.Renderer) *Segmenter {
	return &Segmenter{opts: opts, fs: fs, renderer: renderer}
}

// Init lists the mask files.
func (s *Segmenter) Init(ctx context.Context) error {
	names, err := s.fs.List(s.opts.Dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", s.opts.Dir, err)
	}

	var files []string
	for _, name := range names {
		if _, ok := ports.FormatFromExt(filepath.Ext(name)); ok {
			files = append(files, filepath.Join(s.opts.Dir, name))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("maskdir: no mask images in %s", s.opts.Dir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = files
	return nil
}

// Len returns the number of masks.
func (s *Segmenter) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *Segmenter) pathFor(seq int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.files))
	if n == 0 {
		return "", ErrNotInitialized
	}
	if seq < 0 {
		return "", fmt.Errorf("%w %d", ErrNoMask, seq)
	}
	if seq >= n {
		if !s.opts.Loop {
			return "", fmt.Errorf("%w %d", ErrNoMask, seq)
		}
		seq %= n
	}
	return s.files[seq], nil
}

// Submit loads the mask for frame.Seq asynchronously.
func (s *Segmenter) Submit(ctx context.Context, frame *pixel.Buffer) (<-chan ports.SegmentResult, error) {
	path, err := s.pathFor(frame.Seq)
	if errors.Is(err, ErrNotInitialized) {
		return nil, err
	}

	width, height, seq := frame.Width, frame.Height, frame.Seq
	results := make(chan ports.SegmentResult, 1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(results)

		if s.opts.Latency > 0 {
			select {
			case <-time.After(s.opts.Latency):
			case <-ctx.Done():
				results <- ports.SegmentResult{Err: ctx.Err()}
				return
			}
		}
		if err != nil {
			results <- ports.SegmentResult{Err: err}
			return
		}

		mask, err := s.load(path, width, height)
		if err != nil {
			results <- ports.SegmentResult{Err: err}
			return
		}
		mask.Seq = seq
		results <- ports.SegmentResult{Mask: mask}
	}()

	return results, nil
}

func (s *Segmenter) load(path string, width, height int) (*pixel.Buffer, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	format, _ := ports.FormatFromExt(filepath.Ext(path))
	img, err := s.renderer.DecodeImage(data, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	if s.opts.Resize && (b.Dx() != width || b.Dy() != height) {
		img = s.renderer.ResizeImage(img, width, height)
	}
	return pixel.FromImage(img), nil
}

// Close waits for outstanding requests.
func (s *Segmenter) Close() error {
	s.wg.Wait()
	return nil
}

var _ ports.Segmenter = (*Segmenter)(nil)
