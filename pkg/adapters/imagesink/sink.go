// Package imagesink writes output frames as numbered image files.
package imagesink

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// DefaultJPEGQuality is used when Options.Quality is zero.
const DefaultJPEGQuality = 75

// Options configures a Sink.
type Options struct {
	Dir string
	// Format is FormatPNG or FormatJPEG.
	Format  ports.ImageFormat
	Quality int
}

// Sink implements ports.FrameSink by writing one file per frame.
type Sink struct {
	fs       ports.FileSystem
	renderer ports.Renderer
	logger   ports.Logger
	opts     Options

	mu      sync.Mutex
	written int
}

// New creates a sink writing into opts.Dir.
func New(opts Options, fs ports.FileSystem, renderer ports.Renderer, logger ports.Logger) (*Sink, error) {
	if opts.Format != ports.FormatJPEG && opts.Format != ports.FormatPNG {
		return nil, fmt.Errorf("imagesink: unsupported format %d", opts.Format)
	}
	if opts.Quality <= 0 {
		opts.Quality = DefaultJPEGQuality
	}
	if err := fs.MkdirAll(opts.Dir); err != nil {
		return nil, err
	}
	return &Sink{
		fs:       fs,
		renderer: renderer,
		logger:   logger.WithComponent("output"),
		opts:     opts,
	}, nil
}

func (s *Sink) ext() string {
	if s.opts.Format == ports.FormatJPEG {
		return "jpg"
	}
	return "png"
}

// WriteFrame encodes the frame and writes it as frame-<seq>.<ext>.
func (s *Sink) WriteFrame(frame *pixel.Buffer) error {
	data, err := s.renderer.EncodeImage(frame.NRGBA(), s.opts.Format, s.opts.Quality)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", frame.Seq, err)
	}
	path := filepath.Join(s.opts.Dir, fmt.Sprintf("frame-%06d.%s", frame.Seq, s.ext()))
	if err := s.fs.WriteFile(path, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.written++
	s.mu.Unlock()
	return nil
}

// Written returns the number of files written.
func (s *Sink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close logs the number of files written.
func (s *Sink) Close() error {
	s.logger.Info("Wrote %d frames to %s", s.Written(), s.opts.Dir)
	return nil
}

var _ ports.FrameSink = (*Sink)(nil)
