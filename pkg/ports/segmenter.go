package ports

import (
	"context"

	"github.com/user/maskfx/pkg/pixel"
)

// SegmentResult is delivered once per submitted frame.
type SegmentResult struct {
	// Mask holds per-pixel foreground confidence in its first channel.
	// Its dimensions are chosen by the provider and may differ from the frame.
	Mask *pixel.Buffer
	Err  error
}

// Segmenter is an asynchronous foreground segmentation provider.
type Segmenter interface {
	// Init loads the provider. A failure here is persistent.
	Init(ctx context.Context) error

	// Submit issues a frame for segmentation and returns immediately.
	// Exactly one result is sent on the returned channel, which is then closed.
	// The provider must not retain or modify frame after Submit returns.
	Submit(ctx context.Context, frame *pixel.Buffer) (<-chan SegmentResult, error)

	// Close releases provider resources.
	Close() error
}
