package decoder

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giorgisio/goav/avcodec"
	"github.com/giorgisio/goav/avutil"

	"github.com/cowby123/scrcpy-go/internal/protocol"
)

// AudioFrame is an interleaved float32 PCM chunk handed to the frame sink.
type AudioFrame struct {
	SampleRate int
	Channels   int
	PCM        []float32
}

func (f AudioFrame) Copy() AudioFrame {
	out := AudioFrame{SampleRate: f.SampleRate, Channels: f.Channels}
	out.PCM = append([]float32(nil), f.PCM...)
	return out
}

// Sink receives decoded audio frames. The client façade installs a tee sink
// (§4.9a) composed of the live player and an optional recorder.
type Sink interface {
	PushAudio(AudioFrame)
}

func audioCodecIDFor(tag uint32) avcodec.CodecId {
	switch tag {
	case 0x6f707573: // "opus"
		return avcodec.AV_CODEC_ID_OPUS
	case 0x61616320: // "aac "
		return avcodec.AV_CODEC_ID_AAC
	case 0x666c6163: // "flac"
		return avcodec.AV_CODEC_ID_FLAC
	default: // raw / unrecognized: treat as raw PCM, handled upstream
		return avcodec.AV_CODEC_ID_PCM_S16LE
	}
}

// Audio decodes the raw audio-packet stream into interleaved float32 PCM.
type Audio struct {
	codecCtx *avcodec.Context
	frame    *avutil.Frame

	sink Sink

	detectedOnce atomic.Bool
	sampleRate   int
	channels     int

	paused  atomic.Bool
	pauseCh chan struct{}
	pauseMu sync.Mutex
	stopped atomic.Bool
}

// NewAudio opens a decoder for the 4-byte codec tag read from the audio
// socket's header and wires it to sink.
func NewAudio(codecTag uint32, sink Sink) (*Audio, error) {
	id := audioCodecIDFor(codecTag)
	codec := avcodec.AvcodecFindDecoder(id)
	if codec == nil {
		return nil, fmt.Errorf("decoder: audio codec %d not found", id)
	}
	ctx := codec.AvcodecAllocContext3()
	if ctx == nil {
		return nil, fmt.Errorf("decoder: audio alloc context failed")
	}
	if ctx.AvcodecOpen2(codec, nil) < 0 {
		return nil, fmt.Errorf("decoder: audio open2 failed")
	}

	a := &Audio{
		codecCtx: ctx,
		frame:    avutil.AvFrameAlloc(),
		sink:     sink,
		pauseCh:  make(chan struct{}),
	}
	close(a.pauseCh)
	return a, nil
}

func (a *Audio) Pause() {
	a.pauseMu.Lock()
	defer a.pauseMu.Unlock()
	if a.paused.CompareAndSwap(false, true) {
		a.pauseCh = make(chan struct{})
	}
}

func (a *Audio) Resume() {
	a.pauseMu.Lock()
	defer a.pauseMu.Unlock()
	if a.paused.CompareAndSwap(true, false) {
		close(a.pauseCh)
	}
}

func (a *Audio) Paused() bool { return a.paused.Load() }
func (a *Audio) Stop()        { a.stopped.Store(true) }

// SampleRate/Channels expose what was actually detected from the stream's
// first decoded frame (the 48kHz/stereo config defaults are placeholders
// until then).
func (a *Audio) SampleRate() int { return a.sampleRate }
func (a *Audio) Channels() int   { return a.channels }

func (a *Audio) DecodeLoop(queue <-chan protocol.Packet) {
	for {
		if a.paused.Load() {
			a.pauseMu.Lock()
			ch := a.pauseCh
			a.pauseMu.Unlock()
			select {
			case <-ch:
			case <-time.After(200 * time.Millisecond):
			}
			if a.stopped.Load() {
				return
			}
			continue
		}

		pkt, ok := <-queue
		if !ok || a.stopped.Load() {
			return
		}

		// Audio decode errors are skipped silently (§7) — a single
		// bad frame should never disrupt playback continuity.
		_ = a.decodeOne(pkt.Data)
	}
}

func (a *Audio) decodeOne(data []byte) error {
	pkt := avcodec.AvPacketAlloc()
	pkt.AvInitPacket()
	pkt.SetData(data)
	pkt.SetSize(len(data))

	if ret := avcodec.AvcodecSendPacket(a.codecCtx, pkt); ret < 0 {
		return fmt.Errorf("decoder: audio send packet failed (%d)", ret)
	}

	for {
		ret := avcodec.AvcodecReceiveFrame(a.codecCtx, a.frame)
		if ret != 0 {
			break
		}

		if a.detectedOnce.CompareAndSwap(false, true) {
			a.sampleRate = a.frame.SampleRate()
			a.channels = a.frame.Channels()
		}

		pcm := interleaveFloat32(a.frame)
		if a.sink != nil {
			a.sink.PushAudio(AudioFrame{
				SampleRate: a.sampleRate,
				Channels:   a.channels,
				PCM:        pcm,
			})
		}
	}
	return nil
}

// interleaveFloat32 converts a decoded AVFrame's planar/packed samples into
// interleaved float32, the format §4.9a's WAV writer expects.
func interleaveFloat32(f *avutil.Frame) []float32 {
	// goav exposes raw plane data; libavcodec's audio decoders used here
	// (opus/aac/flac) are configured to output AV_SAMPLE_FMT_FLT(P), so a
	// byte-level reinterpret is sufficient — no resampling is performed,
	// matching the source's "no hidden conversion" behaviour.
	data := f.Data()
	channels := f.Channels()
	nbSamples := f.NbSamples()
	out := make([]float32, 0, nbSamples*channels)

	planar := isPlanarFloat(f.Format())
	if planar {
		planes := make([][]byte, channels)
		for c := 0; c < channels; c++ {
			planes[c] = data[c]
		}
		for i := 0; i < nbSamples; i++ {
			for c := 0; c < channels; c++ {
				out = append(out, bytesToFloat32(planes[c], i*4))
			}
		}
	} else {
		buf := data[0]
		for i := 0; i < nbSamples*channels; i++ {
			out = append(out, bytesToFloat32(buf, i*4))
		}
	}
	return out
}

func isPlanarFloat(fmtID int) bool {
	// AV_SAMPLE_FMT_FLTP (planar float) vs AV_SAMPLE_FMT_FLT (packed).
	const avSampleFmtFltp = 8
	return fmtID == avSampleFmtFltp
}

func bytesToFloat32(b []byte, offset int) float32 {
	if offset+4 > len(b) {
		return 0
	}
	bits := uint32(b[offset]) | uint32(b[offset+1])<<8 | uint32(b[offset+2])<<16 | uint32(b[offset+3])<<24
	return math.Float32frombits(bits)
}
