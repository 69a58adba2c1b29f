// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/user/maskfx/pkg/orchestrator"
	"github.com/user/maskfx/pkg/pipeline"
	"github.com/user/maskfx/pkg/ports"
	"github.com/user/maskfx/pkg/session"
	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourceVideo  = "video"
	SourceImages = "images"
)

// Segmenter types.
const (
	SegmenterChromaKey = "chromakey"
	SegmenterMaskDir   = "maskdir"
)

// Output types.
const (
	OutputVideo  = "video"
	OutputImages = "images"
	OutputNone   = "none"
)

// Config represents the full configuration for maskfx.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Effect    EffectConfig    `yaml:"effect"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Output    OutputConfig    `yaml:"output"`
	Debug     DebugConfig     `yaml:"debug"`
	Log       LogConfig       `yaml:"log"`
}

// SourceConfig selects where frames come from.
type SourceConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
	// Width and Height scale video input; zero keeps the probed size.
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Live       bool   `yaml:"live"`
	Loop       bool   `yaml:"loop"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// SegmenterConfig selects the segmentation provider.
type SegmenterConfig struct {
	Type      string  `yaml:"type"`
	KeyColor  string  `yaml:"key_color"`
	Tolerance float64 `yaml:"tolerance"`
	Softness  float64 `yaml:"softness"`
	LatencyMs int     `yaml:"latency_ms"`
	Dir       string  `yaml:"dir"`
	Resize    bool    `yaml:"resize"`
	Loop      bool    `yaml:"loop"`
}

// EffectConfig configures the background effect.
type EffectConfig struct {
	// Threshold is the normalized confidence threshold (0-1).
	Threshold float64 `yaml:"threshold"`
	Grayscale string  `yaml:"grayscale"`
	Mode      string  `yaml:"mode"`
	BlurSigma float64 `yaml:"blur_sigma"`
}

// SchedulerConfig configures the tick loop.
type SchedulerConfig struct {
	FPS       float64 `yaml:"fps"`
	Staleness string  `yaml:"staleness"`
	// MaskTimeoutMs bounds the wait for a mask. 0 uses the latest mask without
	// waiting; -1 waits for every result.
	MaskTimeoutMs int     `yaml:"mask_timeout_ms"`
	MaxFrames     int     `yaml:"max_frames"`
	DurationSec   float64 `yaml:"duration_sec"`
}

// OutputConfig selects where processed frames go.
type OutputConfig struct {
	Type    string      `yaml:"type"`
	Path    string      `yaml:"path"`
	Format  string      `yaml:"format"`
	Quality int         `yaml:"quality"`
	Preset  string      `yaml:"preset"`
	FPS     float64     `yaml:"fps"`
	Overlay bool        `yaml:"overlay"`
	Theme   ThemeConfig `yaml:"overlay_theme"`
}

// ThemeConfig represents the overlay badge style.
type ThemeConfig struct {
	BackgroundColor string  `yaml:"background_color"`
	TextColor       string  `yaml:"text_color"`
	FontSize        float64 `yaml:"font_size"`
	FontPath        string  `yaml:"font_path"`
}

// DebugConfig enables intermediate dumps.
type DebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// QualityPreset represents a video quality preset name.
type QualityPreset string

const (
	QualityLow    QualityPreset = "low"
	QualityMedium QualityPreset = "medium"
	QualityHigh   QualityPreset = "high"
)

// PresetCRF returns the x264 CRF for the given preset.
func PresetCRF(preset QualityPreset) int {
	switch preset {
	case QualityLow:
		return 30
	case QualityHigh:
		return 18
	default: // medium
		return 23
	}
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			Type: SourceVideo,
		},
		Segmenter: SegmenterConfig{
			Type:      SegmenterChromaKey,
			KeyColor:  "#00ff00",
			Tolerance: 120,
			Softness:  60,
		},
		Effect: EffectConfig{
			Threshold: 0.5,
			Grayscale: pipeline.GrayscaleAverage.String(),
			Mode:      pipeline.EffectGrayscale.String(),
			BlurSigma: pipeline.DefaultBlurSigma,
		},
		Scheduler: SchedulerConfig{
			FPS:           30,
			Staleness:     session.PolicyStrict.String(),
			MaskTimeoutMs: int(session.DefaultMaskTimeout / time.Millisecond),
		},
		Output: OutputConfig{
			Type:    OutputVideo,
			Path:    "output.mp4",
			Format:  "jpeg",
			Preset:  string(QualityMedium),
			Overlay: true,
			Theme: ThemeConfig{
				BackgroundColor: "#000000a0",
				TextColor:       "#ffffff",
				FontSize:        14,
			},
		},
		Debug: DebugConfig{
			Dir: "./debug",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	switch c.Source.Type {
	case SourceVideo, SourceImages:
	default:
		errs = append(errs, fmt.Errorf("source.type: unknown type %q", c.Source.Type))
	}
	if c.Source.Path == "" {
		errs = append(errs, errors.New("source.path: required"))
	}
	if c.Source.Width < 0 || c.Source.Height < 0 {
		errs = append(errs, errors.New("source.width/height: must not be negative"))
	}

	switch c.Segmenter.Type {
	case SegmenterChromaKey:
		if _, err := ParseColor(c.Segmenter.KeyColor); err != nil {
			errs = append(errs, fmt.Errorf("segmenter.key_color: %w", err))
		}
		if c.Segmenter.Tolerance < 0 || c.Segmenter.Softness < 0 {
			errs = append(errs, errors.New("segmenter.tolerance/softness: must not be negative"))
		}
	case SegmenterMaskDir:
		if c.Segmenter.Dir == "" {
			errs = append(errs, errors.New("segmenter.dir: required for maskdir"))
		}
	default:
		errs = append(errs, fmt.Errorf("segmenter.type: unknown type %q", c.Segmenter.Type))
	}
	if c.Segmenter.LatencyMs < 0 {
		errs = append(errs, errors.New("segmenter.latency_ms: must not be negative"))
	}

	if c.Effect.Threshold < 0 || c.Effect.Threshold > 1 {
		errs = append(errs, fmt.Errorf("effect.threshold: %v is outside 0-1", c.Effect.Threshold))
	}
	if _, err := pipeline.ParseGrayscaleMethod(c.Effect.Grayscale); err != nil {
		errs = append(errs, fmt.Errorf("effect.grayscale: %w", err))
	}
	if _, err := pipeline.ParseEffect(c.Effect.Mode); err != nil {
		errs = append(errs, fmt.Errorf("effect.mode: %w", err))
	}

	if c.Scheduler.FPS <= 0 {
		errs = append(errs, errors.New("scheduler.fps: must be positive"))
	}
	if _, err := session.ParsePolicy(c.Scheduler.Staleness); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.staleness: %w", err))
	}
	if c.Scheduler.MaxFrames < 0 || c.Scheduler.DurationSec < 0 {
		errs = append(errs, errors.New("scheduler.max_frames/duration_sec: must not be negative"))
	}

	switch c.Output.Type {
	case OutputVideo, OutputNone:
	case OutputImages:
		if _, err := c.Output.ImageFormat(); err != nil {
			errs = append(errs, fmt.Errorf("output.format: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("output.type: unknown type %q", c.Output.Type))
	}
	if c.Output.Type != OutputNone && c.Output.Path == "" {
		errs = append(errs, errors.New("output.path: required"))
	}
	if c.Output.Overlay {
		if _, err := ParseColor(c.Output.Theme.BackgroundColor); err != nil {
			errs = append(errs, fmt.Errorf("output.overlay_theme.background_color: %w", err))
		}
		if _, err := ParseColor(c.Output.Theme.TextColor); err != nil {
			errs = append(errs, fmt.Errorf("output.overlay_theme.text_color: %w", err))
		}
	}

	switch c.Log.Format {
	case "console", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ImageFormat maps output.format to a ports.ImageFormat.
func (o OutputConfig) ImageFormat() (ports.ImageFormat, error) {
	switch strings.ToLower(o.Format) {
	case "jpeg", "jpg", "":
		return ports.FormatJPEG, nil
	case "png":
		return ports.FormatPNG, nil
	default:
		return ports.FormatAuto, fmt.Errorf("unknown image format %q", o.Format)
	}
}

// VideoQuality returns the CRF to encode with: an explicit quality wins over
// the preset.
func (o OutputConfig) VideoQuality() int {
	if o.Quality > 0 {
		return o.Quality
	}
	return PresetCRF(QualityPreset(o.Preset))
}

// OutputFPS returns the output frame rate, falling back to the tick rate.
func (c Config) OutputFPS() float64 {
	if c.Output.FPS > 0 {
		return c.Output.FPS
	}
	return c.Scheduler.FPS
}

// ThresholdFromNormalized converts a 0-1 threshold to the 0-255 range,
// rounding down so 0.5 maps to 127.
func ThresholdFromNormalized(f float64) uint8 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 1:
		return 255
	}
	return uint8(math.Floor(f * 255))
}

// ParseColor parses "#rrggbb" or "#rrggbbaa" into a color.
func ParseColor(hex string) (color.NRGBA, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", hex)
	}
	if len(s) == 6 {
		s += "ff"
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", hex)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
// The config must have passed Validate.
func (c Config) ToOrchestratorConfig() (orchestrator.Config, error) {
	method, err := pipeline.ParseGrayscaleMethod(c.Effect.Grayscale)
	if err != nil {
		return orchestrator.Config{}, err
	}
	effect, err := pipeline.ParseEffect(c.Effect.Mode)
	if err != nil {
		return orchestrator.Config{}, err
	}
	policy, err := session.ParsePolicy(c.Scheduler.Staleness)
	if err != nil {
		return orchestrator.Config{}, err
	}

	timeout := time.Duration(c.Scheduler.MaskTimeoutMs) * time.Millisecond
	switch {
	case c.Scheduler.MaskTimeoutMs < 0:
		timeout = session.WaitForever
	case c.Scheduler.MaskTimeoutMs == 0:
		timeout = session.NoWait
	}

	return orchestrator.Config{
		Effect: pipeline.EffectOptions{
			ConfidenceThreshold: ThresholdFromNormalized(c.Effect.Threshold),
			GrayscaleMethod:     method,
			Effect:              effect,
			BlurSigma:           c.Effect.BlurSigma,
		},
		Interval:    time.Duration(float64(time.Second) / c.Scheduler.FPS),
		Staleness:   policy,
		MaskTimeout: timeout,
		MaxFrames:   c.Scheduler.MaxFrames,
		Duration:    time.Duration(c.Scheduler.DurationSec * float64(time.Second)),
	}, nil
}
