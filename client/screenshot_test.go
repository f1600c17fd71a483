package client

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/cowby123/scrcpy-go/internal/decoder"
)

func solidFrame(w, h int, r, g, b byte) decoder.VideoFrame {
	stride := w * 3
	buf := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + x*3
			buf[i], buf[i+1], buf[i+2] = r, g, b
		}
	}
	return decoder.VideoFrame{Width: w, Height: h, Stride: stride, RGB24: buf}
}

func TestRGBImageAtReadsPackedPixels(t *testing.T) {
	frame := solidFrame(4, 2, 10, 20, 30)
	img := &rgbImage{frame: frame}

	b := img.Bounds()
	if b.Dx() != 4 || b.Dy() != 2 {
		t.Fatalf("expected bounds 4x2, got %v", b)
	}

	c := img.At(1, 1).(color.RGBA)
	if c.R != 10 || c.G != 20 || c.B != 30 || c.A != 255 {
		t.Errorf("expected RGBA(10,20,30,255), got %+v", c)
	}
}

func TestRGBImageAtOutOfBoundsReturnsZeroValue(t *testing.T) {
	frame := solidFrame(2, 2, 1, 2, 3)
	img := &rgbImage{frame: frame}

	c := img.At(100, 100).(color.RGBA)
	if c != (color.RGBA{}) {
		t.Errorf("expected zero-value color for out-of-range pixel, got %+v", c)
	}
}

func TestEncodePNGWritesDecodableImage(t *testing.T) {
	frame := solidFrame(8, 4, 200, 100, 50)
	path := filepath.Join(t.TempDir(), "shot.png")

	if err := encodePNG(path, frame, 0); err != nil {
		t.Fatalf("encodePNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening written PNG: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding written PNG: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Errorf("expected decoded image 8x4, got %v", img.Bounds())
	}
}

func TestEncodePNGDownscalesWhenMaxWidthSmaller(t *testing.T) {
	frame := solidFrame(100, 50, 1, 2, 3)
	path := filepath.Join(t.TempDir(), "scaled.png")

	if err := encodePNG(path, frame, 20); err != nil {
		t.Fatalf("encodePNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening written PNG: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding written PNG: %v", err)
	}
	if img.Bounds().Dx() != 20 {
		t.Errorf("expected downscaled width 20, got %d", img.Bounds().Dx())
	}
}
