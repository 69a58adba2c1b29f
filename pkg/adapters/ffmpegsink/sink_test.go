package ffmpegsink

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/user/maskfx/pkg/adapters/logger"
	"github.com/user/maskfx/pkg/pixel"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

// startedSink returns a sink that writes into a buffer instead of ffmpeg.
func startedSink(width, height int) (*Sink, *bufferCloser) {
	s := New(Options{Path: "out.mp4"}, logger.NewNoop())
	buf := &bufferCloser{}
	s.stdin = buf
	s.width = width
	s.height = height
	return s, buf
}

func TestBuildArgs(t *testing.T) {
	args := strings.Join(buildArgs(Options{Path: "out.mp4", FPS: 25, Quality: 18}, 640, 360), " ")
	for _, want := range []string{"-s 640x360", "-r 25.00", "-i pipe:0", "-c:v libx264", "-crf 18", "out.mp4"} {
		if !strings.Contains(args, want) {
			t.Errorf("expected %q in %q", want, args)
		}
	}
}

func TestBuildArgs_DefaultQuality(t *testing.T) {
	args := strings.Join(buildArgs(Options{Path: "o.mp4", FPS: 30}, 2, 2), " ")
	if !strings.Contains(args, "-crf 23") {
		t.Errorf("expected default crf 23 in %q", args)
	}
}

func TestNew_DefaultFPS(t *testing.T) {
	s := New(Options{Path: "o.mp4"}, logger.NewNoop())
	if s.opts.FPS != 30 {
		t.Errorf("expected default fps 30, got %.1f", s.opts.FPS)
	}
}

func TestSink_WriteFrame(t *testing.T) {
	s, buf := startedSink(2, 1)

	frame := pixel.New(2, 1)
	copy(frame.Data, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err := s.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	if !bytes.Equal(buf.Bytes(), frame.Data) {
		t.Errorf("expected raw RGBA bytes, got %v", buf.Bytes())
	}
	if s.Frames() != 1 {
		t.Errorf("expected 1 frame, got %d", s.Frames())
	}
}

func TestSink_FrameSizeChange(t *testing.T) {
	s, _ := startedSink(2, 2)

	err := s.WriteFrame(pixel.New(4, 4))
	if !errors.Is(err, ErrFrameSize) {
		t.Errorf("expected ErrFrameSize, got %v", err)
	}
}

func TestSink_Close(t *testing.T) {
	s, buf := startedSink(1, 1)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !buf.closed {
		t.Error("expected stdin to be closed")
	}
	if err := s.WriteFrame(pixel.New(1, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("expected second Close to be a no-op, got %v", err)
	}
}

func TestSink_CloseWithoutFrames(t *testing.T) {
	s := New(Options{Path: "o.mp4"}, logger.NewNoop())
	if err := s.Close(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
