// Package mp4probe reads video track properties from MP4 files.
package mp4probe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

// ErrNoVideoTrack is returned when the file has no video track.
var ErrNoVideoTrack = errors.New("mp4probe: no video track found")

// Codec represents a video codec type.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecUnknown Codec = "unknown"
)

// Info describes the first video track of a file.
// FPS, Frames and Duration are zero for fragmented files whose init segment
// carries no samples.
type Info struct {
	Codec    Codec
	Width    int
	Height   int
	FPS      float64
	Frames   int
	Duration time.Duration
}

// ProbeFile probes an MP4 file on disk.
func ProbeFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return ProbeReader(f)
}

// ProbeBytes probes MP4 data held in memory.
func ProbeBytes(data []byte) (Info, error) {
	return ProbeReader(bytes.NewReader(data))
}

// ProbeReader probes MP4 data and rewinds the reader afterwards.
func ProbeReader(reader io.ReadSeeker) (Info, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return Info{}, fmt.Errorf("decode mp4: %w", err)
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return Info{}, fmt.Errorf("seek: %w", err)
	}

	var moov *mp4.MoovBox
	switch {
	case mp4File.Moov != nil:
		moov = mp4File.Moov
	case mp4File.Init != nil && mp4File.Init.Moov != nil:
		moov = mp4File.Init.Moov
	default:
		return Info{}, ErrNoVideoTrack
	}

	for _, trak := range moov.Traks {
		if info, ok := probeTrack(trak); ok {
			return info, nil
		}
	}
	return Info{}, ErrNoVideoTrack
}

func probeTrack(trak *mp4.TrakBox) (Info, bool) {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
		return Info{}, false
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return Info{}, false
	}

	info := Info{Codec: CodecUnknown}
	stbl := trak.Mdia.Minf.Stbl

	for _, child := range stbl.Stsd.Children {
		vse, ok := child.(*mp4.VisualSampleEntryBox)
		if !ok {
			continue
		}
		info.Width = int(vse.Width)
		info.Height = int(vse.Height)
		info.Codec = codecOf(vse.Type())
		break
	}

	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		timescale := trak.Mdia.Mdhd.Timescale
		info.Duration = time.Duration(trak.Mdia.Mdhd.Duration) * time.Second / time.Duration(timescale)

		if stbl.Stts != nil {
			var samples, ticks uint64
			for i, count := range stbl.Stts.SampleCount {
				samples += uint64(count)
				ticks += uint64(count) * uint64(stbl.Stts.SampleTimeDelta[i])
			}
			info.Frames = int(samples)
			if ticks > 0 {
				info.FPS = float64(samples) * float64(timescale) / float64(ticks)
			}
		}
	}

	return info, true
}

func codecOf(boxType string) Codec {
	switch boxType {
	case "avc1", "avc3":
		return CodecH264
	case "hvc1", "hev1":
		return CodecHEVC
	case "av01":
		return CodecAV1
	default:
		return CodecUnknown
	}
}
