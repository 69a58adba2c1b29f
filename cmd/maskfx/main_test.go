package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/user/maskfx/pkg/adapters/logger"
	"github.com/user/maskfx/pkg/config"
	"github.com/user/maskfx/pkg/mocks"
	"github.com/user/maskfx/pkg/ports"
	"github.com/user/maskfx/pkg/summarizer"
)

// parseRun runs buildConfig against the run flags.
func parseRun(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()

	var (
		cfg      config.Config
		buildErr error
	)
	app := &cli.App{
		Name:  "maskfx",
		Flags: runFlags(),
		Action: func(c *cli.Context) error {
			cfg, buildErr = buildConfig(c)
			return nil
		},
	}
	if err := app.Run(append([]string{"maskfx"}, args...)); err != nil {
		t.Fatalf("flag parsing failed: %v", err)
	}
	return cfg, buildErr
}

func TestBuildConfig_Flags(t *testing.T) {
	cfg, err := parseRun(t,
		"-i", "in.mp4",
		"--fps", "15",
		"--threshold", "0.7",
		"--effect", "blur",
		"--duration", "2s",
		"--no-overlay",
		"-o", "out.mp4",
	)
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}

	if cfg.Source.Path != "in.mp4" {
		t.Errorf("expected input in.mp4, got %q", cfg.Source.Path)
	}
	if cfg.Scheduler.FPS != 15 {
		t.Errorf("expected fps 15, got %v", cfg.Scheduler.FPS)
	}
	if cfg.Effect.Threshold != 0.7 || cfg.Effect.Mode != "blur" {
		t.Errorf("unexpected effect: %+v", cfg.Effect)
	}
	if cfg.Scheduler.DurationSec != 2 {
		t.Errorf("expected 2s duration, got %v", cfg.Scheduler.DurationSec)
	}
	if cfg.Output.Overlay {
		t.Error("expected overlay disabled")
	}
	// Untouched values keep their defaults.
	if cfg.Segmenter.Type != config.SegmenterChromaKey {
		t.Errorf("expected default segmenter, got %q", cfg.Segmenter.Type)
	}
}

func TestBuildConfig_MaskDirImpliesSegmenter(t *testing.T) {
	cfg, err := parseRun(t, "-i", "in.mp4", "--mask-dir", "masks")
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg.Segmenter.Type != config.SegmenterMaskDir || cfg.Segmenter.Dir != "masks" {
		t.Errorf("unexpected segmenter: %+v", cfg.Segmenter)
	}
}

func TestBuildConfig_RequiresInput(t *testing.T) {
	if _, err := parseRun(t); err == nil {
		t.Fatal("expected error without input")
	}
}

func TestBuildConfig_FileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maskfx.yaml")
	yaml := "source:\n  path: clip.mp4\nscheduler:\n  fps: 24\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := parseRun(t, "-c", path, "--fps", "12")
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg.Source.Path != "clip.mp4" {
		t.Errorf("expected path from file, got %q", cfg.Source.Path)
	}
	if cfg.Scheduler.FPS != 12 {
		t.Errorf("expected flag to override file, got %v", cfg.Scheduler.FPS)
	}
}

func TestBuildLogger(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.LogConfig
		quiet  bool
		assert func(t *testing.T, v interface{})
	}{
		{"quiet", config.LogConfig{Level: "info", Format: "console"}, true, func(t *testing.T, v interface{}) {
			if _, ok := v.(*logger.NoopLogger); !ok {
				t.Errorf("expected noop logger, got %T", v)
			}
		}},
		{"json", config.LogConfig{Level: "info", Format: "json"}, false, func(t *testing.T, v interface{}) {
			if _, ok := v.(*logger.LogrusLogger); !ok {
				t.Errorf("expected logrus logger, got %T", v)
			}
		}},
		{"console", config.LogConfig{Level: "debug", Format: "console"}, false, func(t *testing.T, v interface{}) {
			if _, ok := v.(*logger.ConsoleLogger); !ok {
				t.Errorf("expected console logger, got %T", v)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assert(t, buildLogger(tt.cfg, tt.quiet))
		})
	}
}

func TestDefaultsCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	if err := app.Run([]string{"maskfx", "defaults"}); err != nil {
		t.Fatalf("defaults failed: %v", err)
	}
	if !strings.Contains(out.String(), "segmenter:") {
		t.Errorf("expected YAML output, got %q", out.String())
	}
}

// mockFactory hands out mock collaborators; failing steps return errors.
func mockFactory(source *mocks.FrameSource, seg *mocks.Segmenter, sink *mocks.FrameSink, sourceErr, sinkErr error) factory {
	return factory{
		openSource: func(ctx context.Context, cfg config.Config, log ports.Logger) (ports.FrameSource, summarizer.InputInfo, error) {
			if sourceErr != nil {
				return nil, summarizer.InputInfo{}, sourceErr
			}
			return source, summarizer.InputInfo{Width: 8, Height: 8}, nil
		},
		newSegmenter: func(cfg config.SegmenterConfig) (ports.Segmenter, error) {
			return seg, nil
		},
		openSink: func(cfg config.Config, log ports.Logger) (ports.FrameSink, error) {
			if sinkErr != nil {
				return nil, sinkErr
			}
			return sink, nil
		},
		renderer: &mocks.Renderer{},
	}
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Source.Path = "in.mp4"
	return cfg
}

func TestFactory_Build(t *testing.T) {
	source, seg, sink := mocks.NewFrameSource(8, 8), mocks.NewSegmenter(), mocks.NewFrameSink()
	f := mockFactory(source, seg, sink, nil, nil)

	deps, input, err := f.build(context.Background(), testConfig(), mocks.NewLogger())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if deps.Source != source || deps.Segmenter != seg {
		t.Error("expected the opened collaborators in deps")
	}
	if deps.OnStats == nil {
		t.Error("expected the overlay to observe stats by default")
	}
	if input.Width != 8 {
		t.Errorf("unexpected input info: %+v", input)
	}
	if source.Closed || seg.Closed || sink.Closed {
		t.Error("expected nothing closed on success")
	}
}

func TestFactory_Build_SinkFailureClosesOpened(t *testing.T) {
	source, seg, sink := mocks.NewFrameSource(8, 8), mocks.NewSegmenter(), mocks.NewFrameSink()
	f := mockFactory(source, seg, sink, nil, errors.New("cannot create output"))

	if _, _, err := f.build(context.Background(), testConfig(), mocks.NewLogger()); err == nil {
		t.Fatal("expected error")
	}
	if !source.Closed || !seg.Closed {
		t.Errorf("expected source and segmenter closed: source %v, segmenter %v", source.Closed, seg.Closed)
	}
}

func TestFactory_Build_SourceFailureClosesSegmenter(t *testing.T) {
	seg, sink := mocks.NewSegmenter(), mocks.NewFrameSink()
	f := mockFactory(nil, seg, sink, errors.New("no such file"), nil)

	if _, _, err := f.build(context.Background(), testConfig(), mocks.NewLogger()); err == nil {
		t.Fatal("expected error")
	}
	if !seg.Closed {
		t.Error("expected segmenter closed")
	}
	if sink.Closed {
		t.Error("did not expect the unopened sink to be touched")
	}
}
