// Package imageseq reads frames from a directory of numbered images.
package imageseq

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// ErrEmpty is returned by Open when the directory holds no images.
var ErrEmpty = errors.New("imageseq: no images found")

// Options configures a Source.
type Options struct {
	Dir string
	// Loop restarts from the first image instead of ending.
	Loop bool
}

// Source implements ports.FrameSource over image files sorted by name.
// Each CurrentFrame call returns the next image.
type Source struct {
	fs       ports.FileSystem
	renderer ports.Renderer
	logger   ports.Logger
	opts     Options
	files    []string
	width    int
	height   int

	mu     sync.Mutex
	next   int
	seq    int64
	ended  bool
	paused bool
}

// Open lists the image files in opts.Dir and decodes the first one to
// determine the frame size.
func Open(opts Options, fs ports.FileSystem, renderer ports.Renderer, logger ports.Logger) (*Source, error) {
	names, err := fs.List(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", opts.Dir, err)
	}

	var files []string
	for _, name := range names {
		if _, ok := ports.FormatFromExt(filepath.Ext(name)); ok {
			files = append(files, filepath.Join(opts.Dir, name))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmpty, opts.Dir)
	}

	s := &Source{
		fs:       fs,
		renderer: renderer,
		logger:   logger.WithComponent("source"),
		opts:     opts,
		files:    files,
	}

	first, err := s.decode(files[0])
	if err != nil {
		return nil, err
	}
	s.width, s.height = first.Width, first.Height

	s.logger.Info("Found %d images in %s (%dx%d)", len(files), opts.Dir, s.width, s.height)
	return s, nil
}

func (s *Source) decode(path string) (*pixel.Buffer, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	format, _ := ports.FormatFromExt(filepath.Ext(path))
	img, err := s.renderer.DecodeImage(data, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return pixel.FromImage(img), nil
}

// Len returns the number of images.
func (s *Source) Len() int {
	return len(s.files)
}

// State reports whether frames remain.
func (s *Source) State() ports.SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.ended:
		return ports.SourceEnded
	case s.paused:
		return ports.SourcePaused
	default:
		return ports.SourceReady
	}
}

// SetPaused pauses or resumes frame delivery.
func (s *Source) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// Size returns the size of the first image.
func (s *Source) Size() (int, int) {
	return s.width, s.height
}

// CurrentFrame decodes the next image. Images whose size differs from the
// first one are rejected.
func (s *Source) CurrentFrame(ctx context.Context) (*pixel.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil, fmt.Errorf("imageseq: no more images")
	}
	path := s.files[s.next]
	seq := s.seq
	s.seq++
	s.next++
	if s.next == len(s.files) {
		if s.opts.Loop {
			s.next = 0
		} else {
			s.ended = true
		}
	}
	s.mu.Unlock()

	frame, err := s.decode(path)
	if err != nil {
		return nil, err
	}
	if frame.Width != s.width || frame.Height != s.height {
		return nil, fmt.Errorf("imageseq: %s is %dx%d, expected %dx%d", path, frame.Width, frame.Height, s.width, s.height)
	}
	frame.Seq = seq
	return frame, nil
}

// Close is a no-op.
func (s *Source) Close() error {
	return nil
}

var _ ports.FrameSource = (*Source)(nil)
