// Package decoder wraps libavcodec (via goav) for the video and audio
// decode pipelines of §4.5: low-latency flags, config-packet-as-extradata,
// rotation-aware RGB24 reformatting, and pause/resume coordinated with the
// packet queue feeding each decoder.
package decoder

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giorgisio/goav/avcodec"
	"github.com/giorgisio/goav/avutil"
	"github.com/giorgisio/goav/swscale"

	"github.com/cowby123/scrcpy-go/internal/protocol"
)

// VideoFrame is a deep-owned RGB24 image handed off through the delay
// buffer. Width/Height reflect the frame's own dimensions, which may differ
// from the session's initial metadata under device rotation.
type VideoFrame struct {
	Width, Height int
	Stride        int
	RGB24         []byte
}

// Copy returns a deep copy, satisfying delay.Copyable.
func (f VideoFrame) Copy() VideoFrame {
	out := VideoFrame{Width: f.Width, Height: f.Height, Stride: f.Stride}
	out.RGB24 = append([]byte(nil), f.RGB24...)
	return out
}

func codecIDFor(scrcpyCodecID uint32) avcodec.CodecId {
	switch scrcpyCodecID {
	case protocol.CodecIDH265:
		return avcodec.AV_CODEC_ID_HEVC
	case protocol.CodecIDAV1:
		return avcodec.AV_CODEC_ID_AV1
	default:
		return avcodec.AV_CODEC_ID_H264
	}
}

// VideoSink receives every decoded frame. The client façade installs a tee
// sink composed of the live player (the delay buffer preview/screenshot
// reads from) and an optional recorder, mirroring Sink's role on the audio
// side (§9's note on the player/recorder/tee dynamic-dispatch point).
type VideoSink interface {
	PushVideo(VideoFrame)
}

// Video decodes the merged H.264/H.265/AV1 access-unit stream produced by
// demux.Video into VideoFrame values pushed to a sink.
type Video struct {
	codecCtx *avcodec.Context
	frame    *avutil.Frame
	swsCtx   *swscale.Context
	swsW     int
	swsH     int

	extradataApplied bool

	sink VideoSink

	paused  atomic.Bool
	pauseCh chan struct{}
	pauseMu sync.Mutex

	stopped atomic.Bool
}

// NewVideo opens a decoder for the given scrcpy codec ID and wires it to
// sink, which the façade uses to fan decoded frames out to the preview
// window, the delay buffer, and any active recorder.
func NewVideo(scrcpyCodecID uint32, sink VideoSink) (*Video, error) {
	id := codecIDFor(scrcpyCodecID)
	codec := avcodec.AvcodecFindDecoder(id)
	if codec == nil {
		return nil, fmt.Errorf("decoder: codec %d not found", id)
	}
	ctx := codec.AvcodecAllocContext3()
	if ctx == nil {
		return nil, fmt.Errorf("decoder: alloc context failed")
	}

	// Low-latency flags: single-threaded decode, no B-frame reordering
	// delay, fastest available path — §4.5.
	ctx.SetThreadCount(1)
	ctx.SetFlags(ctx.Flags() | avcodec.CODEC_FLAG_LOW_DELAY)
	ctx.SetFlags2(ctx.Flags2() | avcodec.CODEC_FLAG2_FAST)

	if ctx.AvcodecOpen2(codec, nil) < 0 {
		return nil, fmt.Errorf("decoder: open2 failed")
	}

	v := &Video{
		codecCtx: ctx,
		frame:    avutil.AvFrameAlloc(),
		sink:     sink,
		pauseCh:  make(chan struct{}),
	}
	close(v.pauseCh)
	return v, nil
}

// Pause blocks DecodeLoop's next iteration until Resume is called.
func (v *Video) Pause() {
	v.pauseMu.Lock()
	defer v.pauseMu.Unlock()
	if v.paused.CompareAndSwap(false, true) {
		v.pauseCh = make(chan struct{})
	}
}

func (v *Video) Resume() {
	v.pauseMu.Lock()
	defer v.pauseMu.Unlock()
	if v.paused.CompareAndSwap(true, false) {
		close(v.pauseCh)
	}
}

func (v *Video) Paused() bool { return v.paused.Load() }

// Stop halts the decode loop on its next wakeup.
func (v *Video) Stop() { v.stopped.Store(true) }

// DecodeLoop consumes packets from queue until it is closed or Stop is
// called. Intended to run on its own goroutine via utils.GoSafe.
func (v *Video) DecodeLoop(queue <-chan protocol.Packet) {
	for {
		if v.paused.Load() {
			v.pauseMu.Lock()
			ch := v.pauseCh
			v.pauseMu.Unlock()
			select {
			case <-ch:
			case <-time.After(200 * time.Millisecond):
			}
			if v.stopped.Load() {
				return
			}
			continue
		}

		pkt, ok := <-queue
		if !ok || v.stopped.Load() {
			return
		}

		if pkt.Header.Config {
			v.applyExtradata(pkt.Data)
			continue
		}

		if err := v.decodeOne(pkt.Data); err != nil {
			// Decode errors skip the offending packet and never
			// terminate the session (§7).
			continue
		}
	}
}

// applyExtradata installs the config packet (SPS/PPS, or VPS/SPS/PPS for
// H.265) as codec extradata, once.
func (v *Video) applyExtradata(data []byte) {
	if v.extradataApplied {
		return
	}
	v.codecCtx.SetExtraData(data)
	v.extradataApplied = true
}

func (v *Video) decodeOne(data []byte) error {
	pkt := avcodec.AvPacketAlloc()
	pkt.AvInitPacket()
	pkt.SetData(data)
	pkt.SetSize(len(data))

	if ret := avcodec.AvcodecSendPacket(v.codecCtx, pkt); ret < 0 {
		return fmt.Errorf("decoder: send packet failed (%d)", ret)
	}

	for {
		ret := avcodec.AvcodecReceiveFrame(v.codecCtx, v.frame)
		if ret != 0 {
			break // EAGAIN or EOF: no more frames from this packet
		}
		vf, err := v.toRGB24(v.frame)
		if err != nil {
			continue
		}
		v.sink.PushVideo(vf)
	}
	return nil
}

// toRGB24 converts the just-decoded AVFrame to RGB24 using *its own*
// dimensions, which may differ from the session's initial metadata when the
// device rotates mid-stream.
func (v *Video) toRGB24(f *avutil.Frame) (VideoFrame, error) {
	w := f.Width()
	h := f.Height()

	if v.swsCtx == nil || v.swsW != w || v.swsH != h {
		v.swsCtx = swscale.SwsGetcontext(
			w, h, (avcodec.PixelFormat)(f.Format()),
			w, h, avcodec.AV_PIX_FMT_RGB24,
			swscale.SWS_BILINEAR, nil, nil, nil,
		)
		v.swsW, v.swsH = w, h
	}
	if v.swsCtx == nil {
		return VideoFrame{}, fmt.Errorf("decoder: sws context alloc failed")
	}

	stride := w * 3
	out := make([]byte, stride*h)
	dstData := [4][]byte{out, nil, nil, nil}
	dstLinesize := [4]int{stride, 0, 0, 0}

	swscale.SwsScale2(v.swsCtx, f.Data(), f.Linesize(), 0, h, dstData[:], dstLinesize[:])

	return VideoFrame{Width: w, Height: h, Stride: stride, RGB24: out}, nil
}
