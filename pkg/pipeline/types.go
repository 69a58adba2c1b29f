package pipeline

import (
	"fmt"
	"strings"

	"github.com/user/maskfx/pkg/pixel"
)

// =============================================================================
// Common Types
// =============================================================================

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// =============================================================================
// Effect Options
// =============================================================================

// DefaultConfidenceThreshold is the mid-scale of the 0-255 confidence range.
const DefaultConfidenceThreshold uint8 = 127

// DefaultBlurSigma is the Gaussian sigma used by EffectBlur.
const DefaultBlurSigma = 8.0

// GrayscaleMethod selects the formula used to desaturate background pixels.
type GrayscaleMethod int

const (
	// GrayscaleAverage uses (r+g+b)/3.
	GrayscaleAverage GrayscaleMethod = iota
	// GrayscalePerceptual uses 0.299r + 0.587g + 0.114b.
	GrayscalePerceptual
)

// String returns the config name of the method.
func (m GrayscaleMethod) String() string {
	switch m {
	case GrayscaleAverage:
		return "average"
	case GrayscalePerceptual:
		return "perceptual"
	default:
		return "unknown"
	}
}

// ParseGrayscaleMethod parses a config name into a GrayscaleMethod.
func ParseGrayscaleMethod(s string) (GrayscaleMethod, error) {
	switch strings.ToLower(s) {
	case "", "average", "avg":
		return GrayscaleAverage, nil
	case "perceptual", "weighted", "luma":
		return GrayscalePerceptual, nil
	default:
		return GrayscaleAverage, fmt.Errorf("unknown grayscale method: %q", s)
	}
}

// Effect selects what happens to background pixels.
type Effect int

const (
	// EffectGrayscale desaturates background pixels.
	EffectGrayscale Effect = iota
	// EffectBlur replaces background pixels with a blurred copy of the frame.
	EffectBlur
)

// String returns the config name of the effect.
func (e Effect) String() string {
	switch e {
	case EffectGrayscale:
		return "grayscale"
	case EffectBlur:
		return "blur"
	default:
		return "unknown"
	}
}

// ParseEffect parses a config name into an Effect.
func ParseEffect(s string) (Effect, error) {
	switch strings.ToLower(s) {
	case "", "grayscale", "gray", "grey":
		return EffectGrayscale, nil
	case "blur":
		return EffectBlur, nil
	default:
		return EffectGrayscale, fmt.Errorf("unknown effect: %q", s)
	}
}

// EffectOptions configures the background effect. It is fixed for a run.
type EffectOptions struct {
	// ConfidenceThreshold classifies a pixel as background when its mask
	// confidence is strictly below it.
	ConfidenceThreshold uint8
	GrayscaleMethod     GrayscaleMethod
	Effect              Effect
	BlurSigma           float64
}

// DefaultEffectOptions returns EffectOptions with default values.
func DefaultEffectOptions() EffectOptions {
	return EffectOptions{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		GrayscaleMethod:     GrayscaleAverage,
		Effect:              EffectGrayscale,
		BlurSigma:           DefaultBlurSigma,
	}
}

// =============================================================================
// Masks
// =============================================================================

// MaskSample is a segmentation result. The first channel of each pixel holds
// the foreground confidence (0 = background, 255 = foreground).
type MaskSample struct {
	Buffer *pixel.Buffer
	// Session is the session id that was active when the request was issued.
	Session uint64
}

// Coverage returns the fraction of mask pixels whose confidence is at or above
// the threshold.
func (m *MaskSample) Coverage(threshold uint8) float64 {
	if m == nil || m.Buffer == nil || m.Buffer.Len() == 0 {
		return 0
	}
	data := m.Buffer.Data
	n := m.Buffer.Len()
	fg := 0
	for i := 0; i < n; i++ {
		if data[i*pixel.Channels] >= threshold {
			fg++
		}
	}
	return float64(fg) / float64(n)
}

// =============================================================================
// Composite Stage Types
// =============================================================================

// CompositeInput contains the frame and mask for one composition.
type CompositeInput struct {
	Frame   *pixel.Buffer
	Mask    *pixel.Buffer
	Options EffectOptions
}

// =============================================================================
// Statistics
// =============================================================================

// StatsWindow is the number of instantaneous FPS samples kept.
const StatsWindow = 30

// Stats is a read-only snapshot of the performance tracker.
type Stats struct {
	// Samples holds the most recent instantaneous FPS values, oldest first.
	Samples              []float64
	FPS                  float64
	LastProcessingTimeMs float64
}

// TickStats is reported to the stats callback once per completed tick.
type TickStats struct {
	FPS              int
	ProcessingTimeMs int
	Composited       bool
	Seq              int64
	// Coverage is the foreground fraction of the applied mask, 0 on passthrough.
	Coverage float64
}
