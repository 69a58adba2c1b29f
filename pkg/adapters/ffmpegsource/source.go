// Package ffmpegsource decodes a video file into RGBA frames through an
// ffmpeg subprocess.
package ffmpegsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/user/maskfx/pkg/adapters/ffmpeg"
	"github.com/user/maskfx/pkg/adapters/mp4probe"
	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// ErrEnded is returned by CurrentFrame once the stream is exhausted.
var ErrEnded = errors.New("ffmpegsource: end of stream")

// Options configures a Source.
type Options struct {
	// Path of the input video.
	Path string
	// Width and Height scale the output; zero keeps the probed size.
	Width  int
	Height int
	// Live paces decoding at the native frame rate and makes CurrentFrame
	// return the most recently decoded frame. Otherwise every call returns
	// the next frame in the file.
	Live bool
	// FFmpegPath overrides the ffmpeg lookup.
	FFmpegPath string
}

// Source implements ports.FrameSource over ffmpeg's rawvideo output.
type Source struct {
	logger ports.Logger
	width  int
	height int
	live   bool

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer

	mu     sync.Mutex
	state  ports.SourceState
	paused bool
	seq    int64
	latest *pixel.Buffer
	err    error
	done   chan struct{}
}

// Open probes the input and starts decoding.
func Open(ctx context.Context, opts Options, logger ports.Logger) (*Source, error) {
	logger = logger.WithComponent("source")

	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		info, err := mp4probe.ProbeFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", opts.Path, err)
		}
		width, height = info.Width, info.Height
		logger.Info("Input video: %dx%d %s, %.2f fps, %d frames", info.Width, info.Height, info.Codec, info.FPS, info.Frames)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("ffmpegsource: invalid frame size %dx%d", width, height)
	}

	ffmpegPath, err := ffmpeg.Find(opts.FFmpegPath)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, buildArgs(opts.Path, width, height, opts.Live)...)
	s := newSource(nil, width, height, opts.Live, logger)
	cmd.Stderr = &s.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	s.cmd = cmd
	s.stdout = stdout
	s.start()

	logger.Debug("Decoding %s at %dx%d", opts.Path, width, height)
	return s, nil
}

func newSource(r io.ReadCloser, width, height int, live bool, logger ports.Logger) *Source {
	s := &Source{
		logger: logger,
		width:  width,
		height: height,
		live:   live,
		stdout: r,
		state:  ports.SourceNotReady,
		done:   make(chan struct{}),
	}
	if !live {
		s.state = ports.SourceReady
	}
	return s
}

func (s *Source) start() {
	if s.live {
		go s.pump()
	}
}

// buildArgs returns ffmpeg arguments that write RGBA frames to stdout.
func buildArgs(path string, width, height int, live bool) []string {
	var args []string
	if live {
		args = append(args, "-re")
	}
	args = append(args,
		"-nostdin",
		"-loglevel", "error",
		"-i", path,
		"-an",
		"-vf", fmt.Sprintf("scale=%d:%d", width, height),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)
	return args
}

// State reports the stream state.
func (s *Source) State() ports.SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused && s.state == ports.SourceReady {
		return ports.SourcePaused
	}
	return s.state
}

// SetPaused pauses or resumes frame delivery.
func (s *Source) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// Size returns the output frame size.
func (s *Source) Size() (int, int) {
	return s.width, s.height
}

// CurrentFrame returns the latest decoded frame in live mode, or decodes the
// next frame otherwise.
func (s *Source) CurrentFrame(ctx context.Context) (*pixel.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.live {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.latest == nil {
			if s.err != nil {
				return nil, s.err
			}
			return nil, fmt.Errorf("ffmpegsource: no frame decoded yet")
		}
		return s.latest.Clone(), nil
	}

	frame, err := s.readFrame()
	if err != nil {
		s.finish(err)
		return nil, s.lastErr()
	}
	return frame, nil
}

func (s *Source) readFrame() (*pixel.Buffer, error) {
	frame := pixel.New(s.width, s.height)
	if _, err := io.ReadFull(s.stdout, frame.Data); err != nil {
		return nil, err
	}
	s.mu.Lock()
	frame.Seq = s.seq
	s.seq++
	s.mu.Unlock()
	return frame, nil
}

// pump decodes frames continuously in live mode.
func (s *Source) pump() {
	for {
		frame, err := s.readFrame()
		if err != nil {
			s.finish(err)
			return
		}
		s.mu.Lock()
		s.latest = frame
		if s.state == ports.SourceNotReady {
			s.state = ports.SourceReady
		}
		s.mu.Unlock()
	}
}

// finish marks the stream ended. A short final frame counts as the end of
// the stream; other read errors are kept for CurrentFrame.
func (s *Source) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ports.SourceEnded {
		return
	}
	s.state = ports.SourceEnded
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		s.err = ErrEnded
	} else {
		s.err = fmt.Errorf("read frame: %w", err)
	}
	s.logger.Debug("Decoded %d frames", s.seq)
	close(s.done)
}

func (s *Source) lastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops ffmpeg and releases the pipe.
func (s *Source) Close() error {
	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
		if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
			s.logger.Debug("ffmpeg: %s", msg)
		}
	}
	return nil
}

var _ ports.FrameSource = (*Source)(nil)
