package pixel

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestNew(t *testing.T) {
	b := New(3, 2)
	if b.Width != 3 || b.Height != 2 {
		t.Errorf("expected 3x2, got %dx%d", b.Width, b.Height)
	}
	if len(b.Data) != 3*2*Channels {
		t.Errorf("expected %d bytes, got %d", 3*2*Channels, len(b.Data))
	}
	if !b.Valid() {
		t.Error("expected buffer to be valid")
	}
}

func TestNew_NegativeDimensions(t *testing.T) {
	b := New(-1, 5)
	if b.Width != 0 || len(b.Data) != 0 {
		t.Errorf("expected empty buffer, got %dx%d with %d bytes", b.Width, b.Height, len(b.Data))
	}
}

func TestFromBytes(t *testing.T) {
	data := make([]byte, 2*2*Channels)
	b, err := FromBytes(2, 2, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data[0] = 42
	if b.Data[0] != 42 {
		t.Error("expected FromBytes to share the backing slice")
	}
}

func TestFromBytes_SizeMismatch(t *testing.T) {
	_, err := FromBytes(2, 2, make([]byte, 10))
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestClone_Independent(t *testing.T) {
	b := New(2, 1)
	b.Seq = 7
	b.Data[0] = 10

	c := b.Clone()
	c.Data[0] = 99

	if b.Data[0] != 10 {
		t.Errorf("clone mutated original: got %d", b.Data[0])
	}
	if c.Seq != 7 {
		t.Errorf("expected Seq 7, got %d", c.Seq)
	}
}

func TestFromImage_NonZeroOrigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 12, 11))
	src.Set(10, 10, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
	src.Set(11, 10, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	b := FromImage(src)
	if b.Width != 2 || b.Height != 1 {
		t.Fatalf("expected 2x1, got %dx%d", b.Width, b.Height)
	}
	want := []byte{200, 100, 50, 128, 1, 2, 3, 255}
	for i, v := range want {
		if b.Data[i] != v {
			t.Errorf("byte %d: expected %d, got %d", i, v, b.Data[i])
		}
	}
}

func TestNRGBA_SharesData(t *testing.T) {
	b := New(1, 1)
	img := b.NRGBA()
	img.SetNRGBA(0, 0, color.NRGBA{R: 9, G: 8, B: 7, A: 6})
	if b.Data[0] != 9 || b.Data[3] != 6 {
		t.Errorf("expected writes through NRGBA to reach buffer, got %v", b.Data)
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b *Buffer
		want bool
	}{
		{"same size", New(100, 100), New(100, 100), true},
		{"different width", New(100, 100), New(50, 100), false},
		{"different height", New(100, 100), New(100, 50), false},
		{"half size", New(100, 100), New(50, 50), false},
		{"nil", New(1, 1), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compatible(tt.a, tt.b); got != tt.want {
				t.Errorf("Compatible() = %v, want %v", got, tt.want)
			}
		})
	}
}
