// Package overlay draws the per-tick statistics onto output frames.
package overlay

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/user/maskfx/pkg/pipeline"
	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// Input is a frame and the statistics to draw on it.
type Input struct {
	Frame *pixel.Buffer
	Stats pipeline.TickStats
}

// Theme configures the statistics badge.
type Theme struct {
	Background color.Color
	Text       color.Color
	FontSize   float64
	FontPath   string
	Padding    int
	Margin     int
}

// DefaultTheme is a translucent dark badge with white text.
func DefaultTheme() Theme {
	return Theme{
		Background: color.NRGBA{R: 0, G: 0, B: 0, A: 160},
		Text:       color.White,
		FontSize:   14,
		Padding:    6,
		Margin:     8,
	}
}

// Stage renders the statistics badge in the top-left corner.
type Stage struct {
	renderer ports.Renderer
	theme    Theme
}

// NewStage creates a new overlay stage.
func NewStage(renderer ports.Renderer, theme Theme) *Stage {
	return &Stage{renderer: renderer, theme: theme}
}

// Label formats the statistics line.
func Label(stats pipeline.TickStats) string {
	return fmt.Sprintf("%d fps | %d ms", stats.FPS, stats.ProcessingTimeMs)
}

// Execute returns a new frame with the badge drawn. The input is not modified.
func (s *Stage) Execute(ctx context.Context, input Input) (*pixel.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.Frame == nil {
		return nil, fmt.Errorf("overlay: missing frame")
	}

	canvas := s.renderer.CreateCanvas(input.Frame.NRGBA())

	label := Label(input.Stats)
	style := ports.TextStyle{
		FontSize: s.theme.FontSize,
		FontPath: s.theme.FontPath,
		Color:    s.theme.Text,
		Align:    ports.AlignLeft,
	}
	textW, textH := canvas.MeasureText(label, style)

	r := badgeBounds(s.theme, textW, textH)
	canvas.DrawRoundedRect(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), s.theme.Padding, s.theme.Background)
	canvas.DrawText(label, r.Min.X+s.theme.Padding, r.Min.Y+r.Dy()/2, style)

	out := pixel.FromImage(canvas.ToImage())
	out.Seq = input.Frame.Seq
	return out, nil
}

var _ pipeline.Stage[Input, *pixel.Buffer] = (*Stage)(nil)

// Sink decorates a FrameSink, drawing the most recently observed statistics
// onto every frame before forwarding it.
type Sink struct {
	next  ports.FrameSink
	stage *Stage

	mu    sync.Mutex
	stats pipeline.TickStats
}

// NewSink wraps next.
func NewSink(next ports.FrameSink, renderer ports.Renderer, theme Theme) *Sink {
	return &Sink{next: next, stage: NewStage(renderer, theme)}
}

// Observe records the statistics of a completed tick. Statistics are
// reported after the frame is emitted, so each frame shows the previous
// tick's numbers.
func (s *Sink) Observe(stats pipeline.TickStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

// WriteFrame draws the badge and forwards the frame.
func (s *Sink) WriteFrame(frame *pixel.Buffer) error {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()

	out, err := s.stage.Execute(context.Background(), Input{Frame: frame, Stats: stats})
	if err != nil {
		return err
	}
	return s.next.WriteFrame(out)
}

// Close closes the wrapped sink.
func (s *Sink) Close() error {
	return s.next.Close()
}

var _ ports.FrameSink = (*Sink)(nil)

// badgeBounds returns the badge rectangle for text of the given size.
func badgeBounds(theme Theme, textW, textH float64) image.Rectangle {
	w := int(textW) + 2*theme.Padding
	h := int(textH) + 2*theme.Padding
	return image.Rect(theme.Margin, theme.Margin, theme.Margin+w, theme.Margin+h)
}
