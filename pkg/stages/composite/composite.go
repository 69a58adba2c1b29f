// Package composite implements the mask composition stage.
package composite

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/disintegration/imaging"

	"github.com/user/maskfx/pkg/pipeline"
	"github.com/user/maskfx/pkg/pixel"
)

// ErrIncompatible is returned by Stage.Execute when frame and mask differ in size.
var ErrIncompatible = errors.New("composite: frame and mask dimensions differ")

// Stage applies the background effect to a frame.
type Stage struct{}

// NewStage creates a new composite stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute checks compatibility and composes the frame.
func (s *Stage) Execute(ctx context.Context, input pipeline.CompositeInput) (*pixel.Buffer, error) {
	if input.Frame == nil || input.Mask == nil {
		return nil, fmt.Errorf("composite: missing frame or mask")
	}
	if !pixel.Compatible(input.Frame, input.Mask) {
		return nil, fmt.Errorf("%w: frame %dx%d, mask %dx%d", ErrIncompatible,
			input.Frame.Width, input.Frame.Height, input.Mask.Width, input.Mask.Height)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Composite(input.Frame, input.Mask, input.Options), nil
}

var _ pipeline.Stage[pipeline.CompositeInput, *pixel.Buffer] = (*Stage)(nil)

// Composite returns a new buffer where every pixel whose mask confidence is
// below opts.ConfidenceThreshold has the background effect applied. Pixels at
// or above the threshold and all alpha values are copied unchanged.
//
// frame and mask must be compatible. frame is never modified.
func Composite(frame, mask *pixel.Buffer, opts pipeline.EffectOptions) *pixel.Buffer {
	out := frame.Clone()

	switch opts.Effect {
	case pipeline.EffectBlur:
		applyBlur(out, mask, opts)
	default:
		applyGrayscale(out, mask, opts)
	}

	return out
}

func applyGrayscale(out, mask *pixel.Buffer, opts pipeline.EffectOptions) {
	px := out.Data
	conf := mask.Data
	n := out.Len()

	for i := 0; i < n; i++ {
		o := i * pixel.Channels
		if conf[o] >= opts.ConfidenceThreshold {
			continue
		}
		g := Gray(px[o], px[o+1], px[o+2], opts.GrayscaleMethod)
		px[o] = g
		px[o+1] = g
		px[o+2] = g
	}
}

func applyBlur(out, mask *pixel.Buffer, opts pipeline.EffectOptions) {
	sigma := opts.BlurSigma
	if sigma <= 0 {
		sigma = pipeline.DefaultBlurSigma
	}
	blurred := imaging.Blur(out.NRGBA(), sigma)

	px := out.Data
	bl := blurred.Pix
	conf := mask.Data
	n := out.Len()

	for i := 0; i < n; i++ {
		o := i * pixel.Channels
		if conf[o] >= opts.ConfidenceThreshold {
			continue
		}
		px[o] = bl[o]
		px[o+1] = bl[o+1]
		px[o+2] = bl[o+2]
	}
}

// Gray converts an RGB triple to a single gray level, rounded to nearest.
func Gray(r, g, b uint8, method pipeline.GrayscaleMethod) uint8 {
	switch method {
	case pipeline.GrayscalePerceptual:
		v := math.Round(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
		if v > 255 {
			v = 255
		}
		return uint8(v)
	default:
		// The sum's remainder mod 3 is 0, 1 or 2, so adding 1 rounds to nearest.
		return uint8((int(r) + int(g) + int(b) + 1) / 3)
	}
}
