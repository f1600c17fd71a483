package demux

import (
	"log"
	"net"
	"time"

	"strconv"

	"github.com/cowby123/scrcpy-go/internal/metrics"
	"github.com/cowby123/scrcpy-go/internal/protocol"
	"github.com/cowby123/scrcpy-go/internal/video"
)

// VideoQueueDepth is the default bounded depth of the video-packet queue.
const VideoQueueDepth = 3

// Video reads framed video packets off the video socket, merges H.264/H.265
// config packets into the following media packet (§4.3), and enqueues the
// result for the video decoder.
type Video struct {
	*Base
	codecID uint32
	queue   chan protocol.Packet

	pendingConfig []byte // held config payload awaiting the next media packet

	// shotTap, when non-nil, receives one copy of the next full access
	// unit's raw bytes without blocking the demuxer (§4.3a, supplemented
	// from core/demuxer/video.py's screenshot side-channel).
	shotTap chan []byte
}

// NewVideo wraps an established video socket.
func NewVideo(conn net.Conn, codecID uint32) *Video {
	return &Video{
		Base:    NewBase(conn, "VIDEO"),
		codecID: codecID,
		queue:   make(chan protocol.Packet, VideoQueueDepth),
	}
}

// Queue exposes the bounded output channel for the video decoder.
func (v *Video) Queue() <-chan protocol.Packet { return v.queue }

// TapNextAccessUnit arms a one-shot capture of the next access unit's raw
// bytes, used by ScreenshotStandalone.
func (v *Video) TapNextAccessUnit() <-chan []byte {
	ch := make(chan []byte, 1)
	v.shotTap = ch
	return ch
}

// Run drives the read loop until the socket is closed or an unrecoverable
// I/O error occurs. Intended to run on its own goroutine via utils.GoSafe.
func (v *Video) Run() {
	for !v.Stopped() {
		if v.Paused() {
			v.drainWhilePaused()
			continue
		}

		pkt, err := v.recvPacket()
		if err != nil {
			if !v.Stopped() {
				log.Printf("[VIDEO] demuxer stopping: %v", err)
			}
			return
		}

		v.addParsed()

		merged := v.mergeConfig(pkt)

		if v.shotTap != nil {
			select {
			case v.shotTap <- append([]byte(nil), merged.Data...):
			default:
			}
			v.shotTap = nil
		}

		select {
		case v.queue <- *merged:
		case <-time.After(queuePutTimeout):
			log.Printf("[VIDEO] packet queue full, dropping packet (size=%d)", len(merged.Data))
			v.addBytesDropped(len(merged.Data))
		}
	}
}

// recvPacket reads exactly one 12-byte header plus its payload.
func (v *Video) recvPacket() (protocol.Packet, error) {
	var hdrBuf [protocol.HeaderSize]byte
	if err := v.recvExact(hdrBuf[:]); err != nil {
		return protocol.Packet{}, err
	}
	header := protocol.DecodeHeader(hdrBuf[:])

	if header.Size > protocol.MaxVideoPacketSize {
		v.addParseError()
		return protocol.Packet{}, &oversizedPacketError{size: header.Size}
	}

	data := make([]byte, header.Size)
	if err := v.recvExact(data); err != nil {
		return protocol.Packet{}, err
	}

	return protocol.Packet{Header: header, Data: data, CodecID: v.codecID}, nil
}

// mergeConfig implements the config-packet merger of §4.3/Testable
// Property #2. It never returns nil in this implementation: the config
// packet itself is always emitted, exactly as core/demuxer/video.py does
// (`_merge_config` returns the unchanged packet for the config case, not a
// deferred nil). The header is reused verbatim even though data grows.
func (v *Video) mergeConfig(pkt protocol.Packet) *protocol.Packet {
	if !protocol.IsConfigMergeCodec(pkt.CodecID) {
		return &pkt
	}

	if pkt.Header.Config {
		v.pendingConfig = append([]byte(nil), pkt.Data...)
		if pkt.CodecID == protocol.CodecIDH264 {
			v.reportSPSDimensions(pkt.Data)
		}
		return &pkt
	}

	if v.pendingConfig != nil {
		merged := make([]byte, 0, len(v.pendingConfig)+len(pkt.Data))
		merged = append(merged, v.pendingConfig...)
		merged = append(merged, pkt.Data...)
		v.pendingConfig = nil
		out := protocol.Packet{Header: pkt.Header, Data: merged, CodecID: pkt.CodecID}
		return &out
	}

	return &pkt
}

// reportSPSDimensions looks for an SPS NALU in a freshly-received H.264
// config packet and, if found, publishes its coded width/height — this
// catches resolution changes (device rotation re-sends SPS/PPS) without
// waiting for the decoder to produce a frame.
func (v *Video) reportSPSDimensions(config []byte) {
	for _, nalu := range video.SplitAnnexBNALUs(config) {
		if w, h, ok := video.ParseH264SPSDimensions(nalu); ok {
			metrics.VideoW.Set(int64(w))
			metrics.VideoH.Set(int64(h))
			return
		}
	}
}

type oversizedPacketError struct{ size uint32 }

func (e *oversizedPacketError) Error() string {
	return "video packet exceeds 16 MiB: " + strconv.FormatUint(uint64(e.size), 10)
}
