package video

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/cowby123/scrcpy-go/internal/decoder"
)

// Recorder is the video-side analogue of internal/audio.WAVRecorder: it
// persists every frame a TeeSink pushes to it, either as a raw RGB24
// stream ("raw") or a numbered PNG sequence ("png"). Raw output writes one
// `[u32 width][u32 height][RGB24 bytes]` record per frame so a change in
// resolution mid-recording (device rotation) stays self-describing without
// a container format.
type Recorder struct {
	format string
	dir    string
	raw    *os.File
	frame  int
}

// NewRecorder opens a recording at path. For format "raw", path names the
// output file directly; for "png", path names a directory that numbered
// frame files are written into.
func NewRecorder(path, format string) (*Recorder, error) {
	switch format {
	case "", "raw":
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("video: create recording file: %w", err)
		}
		return &Recorder{format: "raw", raw: f}, nil
	case "png":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("video: create recording directory: %w", err)
		}
		return &Recorder{format: "png", dir: path}, nil
	default:
		return nil, fmt.Errorf("video: unsupported recording format %q", format)
	}
}

// Write appends one frame to the recording.
func (r *Recorder) Write(f decoder.VideoFrame) error {
	switch r.format {
	case "png":
		return r.writePNG(f)
	default:
		return r.writeRaw(f)
	}
}

func (r *Recorder) writeRaw(f decoder.VideoFrame) error {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(f.Width))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(f.Height))
	if _, err := r.raw.Write(hdr[:]); err != nil {
		return err
	}
	_, err := r.raw.Write(f.RGB24)
	return err
}

func (r *Recorder) writePNG(f decoder.VideoFrame) error {
	out, err := os.Create(filepath.Join(r.dir, fmt.Sprintf("frame_%08d.png", r.frame)))
	if err != nil {
		return err
	}
	defer out.Close()
	r.frame++
	return png.Encode(out, &rgbFrame{f})
}

// Close finalizes the recording. Idempotent.
func (r *Recorder) Close() error {
	if r.raw == nil {
		return nil
	}
	f := r.raw
	r.raw = nil
	return f.Close()
}

// rgbFrame adapts a decoder.VideoFrame's packed RGB24 buffer to
// image.Image without copying pixel data, the same approach the façade's
// screenshot path uses for its own single-shot PNG encode.
type rgbFrame struct {
	f decoder.VideoFrame
}

func (r *rgbFrame) ColorModel() color.Model { return color.RGBAModel }

func (r *rgbFrame) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.f.Width, r.f.Height)
}

func (r *rgbFrame) At(x, y int) color.Color {
	i := y*r.f.Stride + x*3
	if i < 0 || i+2 >= len(r.f.RGB24) {
		return color.RGBA{}
	}
	return color.RGBA{R: r.f.RGB24[i], G: r.f.RGB24[i+1], B: r.f.RGB24[i+2], A: 255}
}
