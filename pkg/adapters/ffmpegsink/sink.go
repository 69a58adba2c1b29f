// Package ffmpegsink encodes output frames to an H.264 MP4 file through an
// ffmpeg subprocess.
package ffmpegsink

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/user/maskfx/pkg/adapters/ffmpeg"
	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

var (
	// ErrClosed is returned by WriteFrame after Close.
	ErrClosed = errors.New("ffmpegsink: sink closed")
	// ErrFrameSize is returned when a frame differs in size from the first one.
	ErrFrameSize = errors.New("ffmpegsink: frame size changed")
)

// Options configures a Sink.
type Options struct {
	// Path of the output MP4 file.
	Path string
	// FPS is the output frame rate.
	FPS float64
	// Quality is the x264 CRF (0-51, lower is better). Zero uses 23.
	Quality int
	// FFmpegPath overrides the ffmpeg lookup.
	FFmpegPath string
}

// Sink implements ports.FrameSink. ffmpeg starts on the first frame, whose
// size fixes the output resolution.
type Sink struct {
	opts   Options
	logger ports.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	width  int
	height int
	frames int
	closed bool
}

// New creates a sink writing to opts.Path.
func New(opts Options, logger ports.Logger) *Sink {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	return &Sink{
		opts:   opts,
		logger: logger.WithComponent("output"),
	}
}

// buildArgs returns ffmpeg arguments reading RGBA frames from stdin.
func buildArgs(opts Options, width, height int) []string {
	crf := opts.Quality
	if crf <= 0 || crf > 51 {
		crf = 23
	}
	return []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", fmt.Sprintf("%.2f", opts.FPS),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-crf", fmt.Sprintf("%d", crf),
		// yuv420p needs even dimensions.
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-movflags", "+faststart",
		opts.Path,
	}
}

func (s *Sink) start(width, height int) error {
	ffmpegPath, err := ffmpeg.Find(s.opts.FFmpegPath)
	if err != nil {
		return err
	}

	cmd := exec.Command(ffmpegPath, buildArgs(s.opts, width, height)...)
	cmd.Stderr = &s.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.width = width
	s.height = height
	s.logger.Debug("Encoding %dx%d at %.2f fps to %s", width, height, s.opts.FPS, s.opts.Path)
	return nil
}

// WriteFrame pipes the frame's RGBA bytes to ffmpeg.
func (s *Sink) WriteFrame(frame *pixel.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.stdin == nil {
		if err := s.start(frame.Width, frame.Height); err != nil {
			return err
		}
	}
	if frame.Width != s.width || frame.Height != s.height {
		return fmt.Errorf("%w: %dx%d, started at %dx%d", ErrFrameSize, frame.Width, frame.Height, s.width, s.height)
	}

	if _, err := s.stdin.Write(frame.Data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	s.frames++
	return nil
}

// Frames returns the number of frames written.
func (s *Sink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close finishes the MP4 file and waits for ffmpeg to exit.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.stdin == nil {
		s.logger.Warn("No frames were written to %s", s.opts.Path)
		return nil
	}

	s.stdin.Close()
	if s.cmd == nil {
		return nil
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encoding failed: %w\nstderr: %s", err, s.stderr.String())
	}
	s.logger.Info("Wrote %d frames to %s", s.frames, s.opts.Path)
	return nil
}

var _ ports.FrameSink = (*Sink)(nil)
