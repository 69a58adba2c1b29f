// Package main provides the CLI entry point for maskfx.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/maskfx/pkg/adapters/chromakey"
	"github.com/user/maskfx/pkg/adapters/ffmpegsink"
	"github.com/user/maskfx/pkg/adapters/ffmpegsource"
	"github.com/user/maskfx/pkg/adapters/filesink"
	"github.com/user/maskfx/pkg/adapters/ggrenderer"
	"github.com/user/maskfx/pkg/adapters/imageseq"
	"github.com/user/maskfx/pkg/adapters/imagesink"
	"github.com/user/maskfx/pkg/adapters/logger"
	"github.com/user/maskfx/pkg/adapters/maskdir"
	"github.com/user/maskfx/pkg/adapters/mp4probe"
	"github.com/user/maskfx/pkg/adapters/nullsink"
	"github.com/user/maskfx/pkg/adapters/osfilesystem"
	"github.com/user/maskfx/pkg/config"
	"github.com/user/maskfx/pkg/orchestrator"
	"github.com/user/maskfx/pkg/ports"
	"github.com/user/maskfx/pkg/stages/overlay"
	"github.com/user/maskfx/pkg/summarizer"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %s", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "maskfx",
		Usage:   l10n.T("Apply background effects to video using segmentation masks"),
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  l10n.T("Process frames from a video or image sequence"),
				Flags:  runFlags(),
				Action: runAction,
			},
			{
				Name:   "defaults",
				Usage:  l10n.T("Print the default configuration as YAML"),
				Action: defaultsAction,
			},
			{
				Name:      "probe",
				Usage:     l10n.T("Show video track information of an MP4 file"),
				ArgsUsage: "<file.mp4>",
				Action:    probeAction,
			},
			{
				Name:   "version",
				Usage:  l10n.T("Show version information"),
				Action: versionAction,
			},
		},
	}
}

const (
	catInput     = "Input"
	catSegmenter = "Segmentation"
	catEffect    = "Effect"
	catSchedule  = "Scheduling"
	catOutput    = "Output"
	catDebug     = "Debug"
	catLogging   = "Logging"
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file")},

		// Input
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Category: l10n.T(catInput), Usage: l10n.T("Input video file or image directory")},
		&cli.StringFlag{Name: "source", Category: l10n.T(catInput), Usage: l10n.T("Source type (video, images)")},
		&cli.IntFlag{Name: "width", Category: l10n.T(catInput), Usage: l10n.T("Scale input to this width")},
		&cli.IntFlag{Name: "height", Category: l10n.T(catInput), Usage: l10n.T("Scale input to this height")},
		&cli.BoolFlag{Name: "live", Category: l10n.T(catInput), Usage: l10n.T("Decode at the native frame rate and always use the latest frame")},
		&cli.BoolFlag{Name: "loop", Category: l10n.T(catInput), Usage: l10n.T("Restart image sequences at the end")},
		&cli.StringFlag{Name: "ffmpeg", Category: l10n.T(catInput), Usage: l10n.T("Path to ffmpeg executable")},

		// Segmentation
		&cli.StringFlag{Name: "segmenter", Aliases: []string{"s"}, Category: l10n.T(catSegmenter), Usage: l10n.T("Segmenter (chromakey, maskdir)")},
		&cli.StringFlag{Name: "key-color", Category: l10n.T(catSegmenter), Usage: l10n.T("Chroma key background color (hex)")},
		&cli.Float64Flag{Name: "tolerance", Category: l10n.T(catSegmenter), Usage: l10n.T("Chroma key color distance treated as background")},
		&cli.Float64Flag{Name: "softness", Category: l10n.T(catSegmenter), Usage: l10n.T("Chroma key edge softness")},
		&cli.IntFlag{Name: "latency-ms", Category: l10n.T(catSegmenter), Usage: l10n.T("Artificial segmentation latency in milliseconds")},
		&cli.StringFlag{Name: "mask-dir", Category: l10n.T(catSegmenter), Usage: l10n.T("Directory of precomputed mask images")},
		&cli.BoolFlag{Name: "resize-masks", Category: l10n.T(catSegmenter), Usage: l10n.T("Scale masks to the frame size")},

		// Effect
		&cli.Float64Flag{Name: "threshold", Aliases: []string{"t"}, Category: l10n.T(catEffect), Usage: l10n.T("Confidence threshold (0-1)")},
		&cli.StringFlag{Name: "grayscale", Category: l10n.T(catEffect), Usage: l10n.T("Grayscale method (average, perceptual)")},
		&cli.StringFlag{Name: "effect", Aliases: []string{"e"}, Category: l10n.T(catEffect), Usage: l10n.T("Background effect (grayscale, blur)")},
		&cli.Float64Flag{Name: "blur-sigma", Category: l10n.T(catEffect), Usage: l10n.T("Blur strength")},

		// Scheduling
		&cli.Float64Flag{Name: "fps", Category: l10n.T(catSchedule), Usage: l10n.T("Tick rate in frames per second")},
		&cli.StringFlag{Name: "staleness", Category: l10n.T(catSchedule), Usage: l10n.T("Stale mask policy (strict, enabled)")},
		&cli.IntFlag{Name: "mask-timeout-ms", Category: l10n.T(catSchedule), Usage: l10n.T("Maximum wait for a mask in milliseconds (0 never waits, -1 waits for every result)")},
		&cli.IntFlag{Name: "max-frames", Aliases: []string{"n"}, Category: l10n.T(catSchedule), Usage: l10n.T("Stop after this many output frames")},
		&cli.DurationFlag{Name: "duration", Category: l10n.T(catSchedule), Usage: l10n.T("Stop after this duration")},

		// Output
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Category: l10n.T(catOutput), Usage: l10n.T("Output MP4 file or image directory")},
		&cli.StringFlag{Name: "output-type", Category: l10n.T(catOutput), Usage: l10n.T("Output type (video, images, none)")},
		&cli.StringFlag{Name: "format", Category: l10n.T(catOutput), Usage: l10n.T("Image format (jpeg, png)")},
		&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Category: l10n.T(catOutput), Usage: l10n.T("Quality (CRF for video, JPEG quality for images)")},
		&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Category: l10n.T(catOutput), Usage: l10n.T("Quality preset (low, medium, high)")},
		&cli.BoolFlag{Name: "no-overlay", Category: l10n.T(catOutput), Usage: l10n.T("Do not draw statistics on output frames")},
		&cli.StringFlag{Name: "summary", Category: l10n.T(catOutput), Usage: l10n.T("Write a run summary (Markdown, or JSON for .json)")},

		// Debug
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Category: l10n.T(catDebug), Usage: l10n.T("Enable debug output")},
		&cli.StringFlag{Name: "debug-dir", Category: l10n.T(catDebug), Usage: l10n.T("Directory for debug output")},

		// Logging
		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Category: l10n.T(catLogging), Usage: l10n.T("Log level (debug, info, warn, error)")},
		&cli.StringFlag{Name: "log-format", Category: l10n.T(catLogging), Usage: l10n.T("Log format (console, json, text)")},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Category: l10n.T(catLogging), Usage: l10n.T("Suppress all log output")},
	}
}

// buildConfig loads the config file, if any, and applies flag overrides.
func buildConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	setString(c, "input", &cfg.Source.Path)
	setString(c, "source", &cfg.Source.Type)
	setInt(c, "width", &cfg.Source.Width)
	setInt(c, "height", &cfg.Source.Height)
	setBool(c, "live", &cfg.Source.Live)
	setBool(c, "loop", &cfg.Source.Loop)
	setString(c, "ffmpeg", &cfg.Source.FFmpegPath)

	setString(c, "segmenter", &cfg.Segmenter.Type)
	setString(c, "key-color", &cfg.Segmenter.KeyColor)
	setFloat(c, "tolerance", &cfg.Segmenter.Tolerance)
	setFloat(c, "softness", &cfg.Segmenter.Softness)
	setInt(c, "latency-ms", &cfg.Segmenter.LatencyMs)
	setString(c, "mask-dir", &cfg.Segmenter.Dir)
	setBool(c, "resize-masks", &cfg.Segmenter.Resize)
	if c.IsSet("mask-dir") && !c.IsSet("segmenter") {
		cfg.Segmenter.Type = config.SegmenterMaskDir
	}

	setFloat(c, "threshold", &cfg.Effect.Threshold)
	setString(c, "grayscale", &cfg.Effect.Grayscale)
	setString(c, "effect", &cfg.Effect.Mode)
	setFloat(c, "blur-sigma", &cfg.Effect.BlurSigma)

	setFloat(c, "fps", &cfg.Scheduler.FPS)
	setString(c, "staleness", &cfg.Scheduler.Staleness)
	setInt(c, "mask-timeout-ms", &cfg.Scheduler.MaskTimeoutMs)
	setInt(c, "max-frames", &cfg.Scheduler.MaxFrames)
	if c.IsSet("duration") {
		cfg.Scheduler.DurationSec = c.Duration("duration").Seconds()
	}

	setString(c, "output", &cfg.Output.Path)
	setString(c, "output-type", &cfg.Output.Type)
	setString(c, "format", &cfg.Output.Format)
	setInt(c, "quality", &cfg.Output.Quality)
	setString(c, "preset", &cfg.Output.Preset)
	if c.Bool("no-overlay") {
		cfg.Output.Overlay = false
	}

	setBool(c, "debug", &cfg.Debug.Enabled)
	setString(c, "debug-dir", &cfg.Debug.Dir)

	setString(c, "log-level", &cfg.Log.Level)
	setString(c, "log-format", &cfg.Log.Format)

	return cfg, cfg.Validate()
}

func setString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func setInt(c *cli.Context, name string, dst *int) {
	if c.IsSet(name) {
		*dst = c.Int(name)
	}
}

func setFloat(c *cli.Context, name string, dst *float64) {
	if c.IsSet(name) {
		*dst = c.Float64(name)
	}
}

func setBool(c *cli.Context, name string, dst *bool) {
	if c.IsSet(name) {
		*dst = c.Bool(name)
	}
}

func buildLogger(cfg config.LogConfig, quiet bool) ports.Logger {
	if quiet {
		return logger.NewNoop()
	}
	level := ports.ParseLogLevel(cfg.Level)
	switch cfg.Format {
	case "json", "text":
		return logger.NewLogrus(level, cfg.Format, os.Stderr)
	default:
		return logger.NewConsole(level)
	}
}

// runAction executes the run command.
func runAction(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	log := buildLogger(cfg.Log, c.Bool("quiet"))

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Create adapters
	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	var debug ports.DebugSink = nullsink.New()
	if cfg.Debug.Enabled {
		if err := fs.MkdirAll(cfg.Debug.Dir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		debug = filesink.New(cfg.Debug.Dir, fs, renderer)
	}

	orchConfig, err := cfg.ToOrchestratorConfig()
	if err != nil {
		return err
	}

	deps, input, err := defaultFactory(fs, renderer).build(ctx, cfg, log)
	if err != nil {
		return err
	}
	deps.Debug = debug

	log.Info("Processing %s with %s segmenter...", cfg.Source.Path, cfg.Segmenter.Type)
	result, err := orchestrator.New(deps).Run(ctx, orchConfig)
	if err != nil {
		return err
	}

	if cfg.Output.Type != config.OutputNone {
		log.Info("Output saved to %s", cfg.Output.Path)
	}

	summary := summarizer.NewBuilder().
		WithInput(input).
		WithSegmenter(cfg.Segmenter.Type).
		WithSchedule(cfg.Scheduler.FPS, cfg.Scheduler.MaskTimeoutMs).
		WithOutput(outputInfo(cfg.Output)).
		FromRunResult(result).
		Build()

	if path := c.String("summary"); path != "" {
		formatter := summarizer.ForPath(path,
			summarizer.WithTranslator(l10n.T),
			summarizer.WithVersion(version),
		)
		if err := summarizer.NewWriter(formatter, fs).Write(path, summary); err != nil {
			log.Error("Failed to write summary: %s", err)
		} else {
			log.Info("Summary saved to %s", path)
		}
	}

	log.Info("%d frames, %d composited, average %.1f fps", result.Frames, result.CompositedFrames, result.AvgFPS)
	return nil
}

// factory opens the collaborators of a run.
type factory struct {
	openSource   func(ctx context.Context, cfg config.Config, log ports.Logger) (ports.FrameSource, summarizer.InputInfo, error)
	newSegmenter func(cfg config.SegmenterConfig) (ports.Segmenter, error)
	openSink     func(cfg config.Config, log ports.Logger) (ports.FrameSink, error)
	renderer     ports.Renderer
}

func defaultFactory(fs ports.FileSystem, renderer ports.Renderer) factory {
	return factory{
		openSource: func(ctx context.Context, cfg config.Config, log ports.Logger) (ports.FrameSource, summarizer.InputInfo, error) {
			return openSource(ctx, cfg, fs, renderer, log)
		},
		newSegmenter: func(cfg config.SegmenterConfig) (ports.Segmenter, error) {
			return newSegmenter(cfg, fs, renderer)
		},
		openSink: func(cfg config.Config, log ports.Logger) (ports.FrameSink, error) {
			return openSink(cfg, fs, renderer, log)
		},
		renderer: renderer,
	}
}

// build opens the source, segmenter and sink. On failure everything opened so
// far is closed again.
func (f factory) build(ctx context.Context, cfg config.Config, log ports.Logger) (orchestrator.Deps, summarizer.InputInfo, error) {
	var theme overlay.Theme
	withOverlay := cfg.Output.Overlay && cfg.Output.Type != config.OutputNone
	if withOverlay {
		var err error
		if theme, err = overlayTheme(cfg.Output.Theme); err != nil {
			return orchestrator.Deps{}, summarizer.InputInfo{}, err
		}
	}

	segmenter, err := f.newSegmenter(cfg.Segmenter)
	if err != nil {
		return orchestrator.Deps{}, summarizer.InputInfo{}, err
	}

	source, input, err := f.openSource(ctx, cfg, log)
	if err != nil {
		closeAll(log, segmenter)
		return orchestrator.Deps{}, input, err
	}

	sink, err := f.openSink(cfg, log)
	if err != nil {
		closeAll(log, source, segmenter)
		return orchestrator.Deps{}, input, err
	}

	deps := orchestrator.Deps{
		Source:    source,
		Segmenter: segmenter,
		Sink:      sink,
		Logger:    log,
	}
	if withOverlay {
		ov := overlay.NewSink(sink, f.renderer, theme)
		deps.Sink = ov
		deps.OnStats = ov.Observe
	}
	return deps, input, nil
}

func closeAll(log ports.Logger, closers ...io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warn("Failed to close %T: %s", c, err)
		}
	}
}

func openSource(ctx context.Context, cfg config.Config, fs ports.FileSystem, renderer ports.Renderer, log ports.Logger) (ports.FrameSource, summarizer.InputInfo, error) {
	input := summarizer.InputInfo{Type: cfg.Source.Type, Path: cfg.Source.Path}

	switch cfg.Source.Type {
	case config.SourceImages:
		src, err := imageseq.Open(imageseq.Options{
			Dir:  cfg.Source.Path,
			Loop: cfg.Source.Loop,
		}, fs, renderer, log)
		if err != nil {
			return nil, input, fmt.Errorf("open image sequence: %w", err)
		}
		input.Width, input.Height = src.Size()
		return src, input, nil

	default:
		if info, err := mp4probe.ProbeFile(cfg.Source.Path); err == nil {
			input.Codec = string(info.Codec)
			input.FPS = info.FPS
		} else {
			log.Debug("Could not probe %s: %s", cfg.Source.Path, err)
		}

		src, err := ffmpegsource.Open(ctx, ffmpegsource.Options{
			Path:       cfg.Source.Path,
			Width:      cfg.Source.Width,
			Height:     cfg.Source.Height,
			Live:       cfg.Source.Live,
			FFmpegPath: cfg.Source.FFmpegPath,
		}, log)
		if err != nil {
			return nil, input, fmt.Errorf("open video: %w", err)
		}
		input.Width, input.Height = src.Size()
		return src, input, nil
	}
}

func newSegmenter(cfg config.SegmenterConfig, fs ports.FileSystem, renderer ports.Renderer) (ports.Segmenter, error) {
	latency := time.Duration(cfg.LatencyMs) * time.Millisecond

	switch cfg.Type {
	case config.SegmenterMaskDir:
		return maskdir.New(maskdir.Options{
			Dir:     cfg.Dir,
			Resize:  cfg.Resize,
			Loop:    cfg.Loop,
			Latency: latency,
		}, fs, renderer), nil
	case config.SegmenterChromaKey:
		key, err := config.ParseColor(cfg.KeyColor)
		if err != nil {
			return nil, err
		}
		return chromakey.New(chromakey.Options{
			Key:       key,
			Tolerance: cfg.Tolerance,
			Softness:  cfg.Softness,
			Latency:   latency,
		}), nil
	default:
		return nil, fmt.Errorf("unknown segmenter %q", cfg.Type)
	}
}

func openSink(cfg config.Config, fs ports.FileSystem, renderer ports.Renderer, log ports.Logger) (ports.FrameSink, error) {
	switch cfg.Output.Type {
	case config.OutputNone:
		return nullsink.New(), nil
	case config.OutputImages:
		format, err := cfg.Output.ImageFormat()
		if err != nil {
			return nil, err
		}
		return imagesink.New(imagesink.Options{
			Dir:     cfg.Output.Path,
			Format:  format,
			Quality: cfg.Output.Quality,
		}, fs, renderer, log)
	default:
		return ffmpegsink.New(ffmpegsink.Options{
			Path:       cfg.Output.Path,
			FPS:        cfg.OutputFPS(),
			Quality:    cfg.Output.VideoQuality(),
			FFmpegPath: cfg.Source.FFmpegPath,
		}, log), nil
	}
}

func overlayTheme(cfg config.ThemeConfig) (overlay.Theme, error) {
	theme := overlay.DefaultTheme()
	bg, err := config.ParseColor(cfg.BackgroundColor)
	if err != nil {
		return theme, err
	}
	text, err := config.ParseColor(cfg.TextColor)
	if err != nil {
		return theme, err
	}
	theme.Background = bg
	theme.Text = text
	theme.FontPath = cfg.FontPath
	if cfg.FontSize > 0 {
		theme.FontSize = cfg.FontSize
	}
	return theme, nil
}

func outputInfo(cfg config.OutputConfig) summarizer.OutputInfo {
	info := summarizer.OutputInfo{Type: cfg.Type, Path: cfg.Path}
	if cfg.Type == config.OutputVideo {
		if st, err := os.Stat(cfg.Path); err == nil {
			info.FileSize = st.Size()
		}
	}
	return info
}

// defaultsAction prints the default configuration.
func defaultsAction(c *cli.Context) error {
	data, err := config.Defaults().Marshal()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

// probeAction prints MP4 track information.
func probeAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New(l10n.T("A video file argument is required"))
	}

	info, err := mp4probe.ProbeFile(path)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%s: %s\n", l10n.T("Codec"), info.Codec)
	fmt.Fprintf(w, "%s: %dx%d\n", l10n.T("Size"), info.Width, info.Height)
	if info.FPS > 0 {
		fmt.Fprintf(w, "%s: %.2f\n", l10n.T("Frame Rate"), info.FPS)
		fmt.Fprintf(w, "%s: %d\n", l10n.T("Frame Count"), info.Frames)
		fmt.Fprintf(w, "%s: %s\n", l10n.T("Duration"), info.Duration.Round(time.Millisecond))
	}
	return nil
}

// versionAction shows version information.
func versionAction(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, l10n.F("maskfx version %s", version))
	return nil
}
