package client

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"

	"golang.org/x/image/draw"

	"github.com/cowby123/scrcpy-go/adb"
	"github.com/cowby123/scrcpy-go/internal/decoder"
	"github.com/cowby123/scrcpy-go/internal/delay"
	"github.com/cowby123/scrcpy-go/internal/demux"
	"github.com/cowby123/scrcpy-go/internal/session"
	"github.com/cowby123/scrcpy-go/internal/utils"
	"github.com/cowby123/scrcpy-go/internal/video"
)

const screenshotFrameWait = 500 * time.Millisecond

// Screenshot captures the most recent decoded frame to a PNG file. When
// the video decoder is idling (LazyDecode with no preview window open),
// it is transiently resumed, given screenshotFrameWait to produce a frame,
// then paused again before returning (§4.10).
func (c *Connection) Screenshot(path string) error {
	wasPaused := c.videoDecoder.Paused()
	if wasPaused {
		c.videoDecoder.Resume()
		defer c.videoDecoder.Pause()
	}

	frame, ok := waitForFrame(c.videoBuf, screenshotFrameWait)
	if !ok {
		return fmt.Errorf("client: no video frame available for screenshot")
	}
	return encodePNG(path, frame, 0)
}

// ScreenshotStandalone captures a single screenshot without a live
// Connection: it opens a throwaway video-only session, arms the
// demuxer's one-shot access-unit tap to learn when a frame is ready, and
// tears everything down once the PNG is written.
func ScreenshotStandalone(mgr *adb.Manager, cfg session.Config, path string) error {
	cfg.Video = true
	cfg.Audio = false
	cfg.Control = false

	sess, err := session.Connect(mgr, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	vdx := demux.NewVideo(sess.Sockets.Video, sess.Metadata.CodecID)
	tap := vdx.TapNextAccessUnit()
	utils.GoSafe("screenshot-demux", vdx.Run)
	defer vdx.Stop()

	var buf delay.Buffer[decoder.VideoFrame]
	dec, err := decoder.NewVideo(sess.Metadata.CodecID, video.NewPlayerSink(&buf))
	if err != nil {
		return fmt.Errorf("client: screenshot decoder init failed: %w", err)
	}
	defer dec.Stop()
	utils.GoSafe("screenshot-decode", func() { dec.DecodeLoop(vdx.Queue()) })

	select {
	case <-tap:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("client: screenshot timed out waiting for an access unit")
	}

	frame, ok := waitForFrame(&buf, screenshotFrameWait)
	if !ok {
		return fmt.Errorf("client: decoder produced no frame for screenshot")
	}
	return encodePNG(path, frame, 0)
}

func waitForFrame(buf *delay.Buffer[decoder.VideoFrame], wait time.Duration) (decoder.VideoFrame, bool) {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if frame, ok := buf.Peek(); ok {
			return frame, true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return decoder.VideoFrame{}, false
}

// rgbImage adapts a decoder.VideoFrame's packed RGB24 buffer to the
// image.Image interface without copying pixel data.
type rgbImage struct {
	frame decoder.VideoFrame
}

func (r *rgbImage) ColorModel() color.Model { return color.RGBAModel }

func (r *rgbImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.frame.Width, r.frame.Height)
}

func (r *rgbImage) At(x, y int) color.Color {
	i := y*r.frame.Stride + x*3
	if i < 0 || i+2 >= len(r.frame.RGB24) {
		return color.RGBA{}
	}
	return color.RGBA{R: r.frame.RGB24[i], G: r.frame.RGB24[i+1], B: r.frame.RGB24[i+2], A: 255}
}

// encodePNG writes frame to path as a PNG, downscaling with x/image/draw's
// Catmull-Rom resampler first when maxWidth is positive and smaller than
// the frame's native width (0 means "full resolution").
func encodePNG(path string, frame decoder.VideoFrame, maxWidth int) error {
	src := &rgbImage{frame: frame}
	var out image.Image = src

	if maxWidth > 0 && frame.Width > maxWidth {
		scale := float64(maxWidth) / float64(frame.Width)
		newHeight := int(float64(frame.Height) * scale)
		if newHeight < 1 {
			newHeight = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		out = dst
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, out)
}
