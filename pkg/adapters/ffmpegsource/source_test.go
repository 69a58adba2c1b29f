package ffmpegsource

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/user/maskfx/pkg/adapters/logger"
	"github.com/user/maskfx/pkg/ports"
)

func rawFrames(n, width, height int) io.ReadCloser {
	data := make([]byte, 0, n*width*height*4)
	for i := 0; i < n; i++ {
		data = append(data, bytes.Repeat([]byte{byte(i), 0, 0, 255}, width*height)...)
	}
	return io.NopCloser(bytes.NewReader(data))
}

func TestBuildArgs(t *testing.T) {
	args := strings.Join(buildArgs("in.mp4", 320, 240, false), " ")
	for _, want := range []string{"-i in.mp4", "scale=320:240", "-f rawvideo", "-pix_fmt rgba", "pipe:1"} {
		if !strings.Contains(args, want) {
			t.Errorf("expected %q in %q", want, args)
		}
	}
	if strings.Contains(args, "-re") {
		t.Error("did not expect -re in offline mode")
	}

	live := buildArgs("in.mp4", 320, 240, true)
	if live[0] != "-re" {
		t.Errorf("expected -re first in live mode, got %v", live)
	}
}

func TestSource_Offline(t *testing.T) {
	s := newSource(rawFrames(3, 2, 2), 2, 2, false, logger.NewNoop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if s.State() != ports.SourceReady {
			t.Fatalf("frame %d: expected ready, got %s", i, s.State())
		}
		frame, err := s.CurrentFrame(ctx)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if frame.Seq != int64(i) || frame.Data[0] != byte(i) {
			t.Errorf("frame %d: got seq %d, first byte %d", i, frame.Seq, frame.Data[0])
		}
	}

	if _, err := s.CurrentFrame(ctx); !errors.Is(err, ErrEnded) {
		t.Errorf("expected ErrEnded, got %v", err)
	}
	if s.State() != ports.SourceEnded {
		t.Errorf("expected ended, got %s", s.State())
	}
}

func TestSource_TruncatedFrameEndsStream(t *testing.T) {
	r := io.NopCloser(bytes.NewReader(make([]byte, 10)))
	s := newSource(r, 2, 2, false, logger.NewNoop())

	if _, err := s.CurrentFrame(context.Background()); !errors.Is(err, ErrEnded) {
		t.Errorf("expected ErrEnded, got %v", err)
	}
}

func TestSource_Paused(t *testing.T) {
	s := newSource(rawFrames(1, 1, 1), 1, 1, false, logger.NewNoop())
	s.SetPaused(true)
	if s.State() != ports.SourcePaused {
		t.Errorf("expected paused, got %s", s.State())
	}
	s.SetPaused(false)
	if s.State() != ports.SourceReady {
		t.Errorf("expected ready, got %s", s.State())
	}
}

func TestSource_Live(t *testing.T) {
	s := newSource(rawFrames(5, 2, 1), 2, 1, true, logger.NewNoop())
	if s.State() != ports.SourceNotReady {
		t.Fatalf("expected not ready before the first frame, got %s", s.State())
	}
	s.start()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the stream to drain")
	}

	// The last decoded frame stays available after the end.
	frame, err := s.CurrentFrame(context.Background())
	if err != nil {
		t.Fatalf("CurrentFrame failed: %v", err)
	}
	if frame.Seq != 4 {
		t.Errorf("expected latest frame 4, got %d", frame.Seq)
	}
	if s.State() != ports.SourceEnded {
		t.Errorf("expected ended, got %s", s.State())
	}
}

func TestSource_CancelledContext(t *testing.T) {
	s := newSource(rawFrames(1, 1, 1), 1, 1, false, logger.NewNoop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.CurrentFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
