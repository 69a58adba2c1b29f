// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"path/filepath"

	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

// Sink saves debug output to files under baseDir:
//
//	frames/frame-0000.png   captured input frames
//	masks/mask-0000.png     masks applied to each frame
//	output/out-0000.png     frames delivered to the output sink
//	stats.json              run statistics
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveFrame saves a captured input frame.
func (s *Sink) SaveFrame(seq int64, frame *pixel.Buffer) error {
	return s.savePNG("frames", fmt.Sprintf("frame-%04d.png", seq), frame)
}

// SaveMask saves the mask applied to a frame.
func (s *Sink) SaveMask(seq int64, mask *pixel.Buffer) error {
	return s.savePNG("masks", fmt.Sprintf("mask-%04d.png", seq), mask)
}

// SaveOutput saves a frame delivered to the output sink.
func (s *Sink) SaveOutput(seq int64, frame *pixel.Buffer) error {
	return s.savePNG("output", fmt.Sprintf("out-%04d.png", seq), frame)
}

// SaveStatsJSON saves the run statistics.
func (s *Sink) SaveStatsJSON(data []byte) error {
	path := filepath.Join(s.baseDir, "stats.json")
	return s.fs.WriteFile(path, data)
}

func (s *Sink) savePNG(subdir, name string, buf *pixel.Buffer) error {
	dir := filepath.Join(s.baseDir, subdir)
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(buf.NRGBA(), ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.fs.WriteFile(filepath.Join(dir, name), data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
