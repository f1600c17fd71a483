package video

import (
	"encoding/binary"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestRecorderRawFormatWritesSelfDescribingRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.raw")
	r, err := NewRecorder(path, "raw")
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	f := testFrame(3, 2)
	if err := r.Write(f); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	wantLen := 8 + len(f.RGB24)
	if len(data) != wantLen {
		t.Fatalf("expected record length %d, got %d", wantLen, len(data))
	}
	if w := binary.BigEndian.Uint32(data[0:4]); w != uint32(f.Width) {
		t.Errorf("expected width %d encoded, got %d", f.Width, w)
	}
	if h := binary.BigEndian.Uint32(data[4:8]); h != uint32(f.Height) {
		t.Errorf("expected height %d encoded, got %d", f.Height, h)
	}
}

func TestRecorderRawFormatAppendsMultipleFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.raw")
	r, err := NewRecorder(path, "")
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	f1, f2 := testFrame(2, 2), testFrame(2, 2)
	if err := r.Write(f1); err != nil {
		t.Fatalf("Write f1: %v", err)
	}
	if err := r.Write(f2); err != nil {
		t.Fatalf("Write f2: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	want := int64(2 * (8 + len(f1.RGB24)))
	if info.Size() != want {
		t.Errorf("expected file size %d after two frames, got %d", want, info.Size())
	}
}

func TestRecorderPNGFormatWritesNumberedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	r, err := NewRecorder(dir, "png")
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	if err := r.Write(testFrame(4, 4)); err != nil {
		t.Fatalf("Write frame 0: %v", err)
	}
	if err := r.Write(testFrame(4, 4)); err != nil {
		t.Fatalf("Write frame 1: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, name := range []string{"frame_00000000.png", "frame_00000001.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestNewRecorderRejectsUnsupportedFormat(t *testing.T) {
	if _, err := NewRecorder(filepath.Join(t.TempDir(), "x"), "mp4"); err == nil {
		t.Error("expected an unsupported format to be rejected")
	}
}

func TestRecorderCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.raw")
	r, err := NewRecorder(path, "raw")
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestRGBFrameAtReturnsPixelColor(t *testing.T) {
	f := testFrame(2, 2)
	f.RGB24[0], f.RGB24[1], f.RGB24[2] = 10, 20, 30
	img := &rgbFrame{f}

	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("expected pixel (10,20,30), got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestRGBFrameAtReturnsZeroOutOfBounds(t *testing.T) {
	f := testFrame(2, 2)
	img := &rgbFrame{f}

	if c := img.At(-1, 0); c != (color.RGBA{}) {
		t.Errorf("expected zero color for out-of-range pixel, got %v", c)
	}
}
