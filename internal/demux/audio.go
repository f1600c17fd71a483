package demux

import (
	"encoding/binary"
	"log"
	"net"
	"time"

	"github.com/cowby123/scrcpy-go/internal/protocol"
)

// AudioQueueDepth is the default bounded depth of the raw audio-packet
// queue feeding the audio decoder.
const AudioQueueDepth = 8

// Audio reads the one-time 4-byte codec tag followed by framed raw audio
// packets (no config merge — §4.3's merger only applies to H.264/H.265
// video).
type Audio struct {
	*Base
	codecID uint32
	queue   chan protocol.Packet
}

// NewAudio wraps an established audio socket. The codec tag is not read
// here or in Run; call ReadCodecTag once before Run.
func NewAudio(conn net.Conn) *Audio {
	return &Audio{
		Base:  NewBase(conn, "AUDIO"),
		queue: make(chan protocol.Packet, AudioQueueDepth),
	}
}

func (a *Audio) Queue() <-chan protocol.Packet { return a.queue }

// CodecID returns the 4-byte tag read from the stream, valid only after
// ReadCodecTag has succeeded.
func (a *Audio) CodecID() uint32 { return a.codecID }

// ReadCodecTag reads the one-time 4-byte audio codec tag. Must be called
// before Run.
func (a *Audio) ReadCodecTag() error {
	var tag [4]byte
	if err := a.recvExact(tag[:]); err != nil {
		return err
	}
	a.codecID = binary.BigEndian.Uint32(tag[:])
	return nil
}

func (a *Audio) Run() {
	for !a.Stopped() {
		if a.Paused() {
			a.drainWhilePaused()
			continue
		}

		pkt, err := a.recvPacket()
		if err != nil {
			if !a.Stopped() {
				log.Printf("[AUDIO] demuxer stopping: %v", err)
			}
			return
		}
		a.addParsed()

		select {
		case a.queue <- pkt:
		case <-time.After(queuePutTimeout):
			log.Printf("[AUDIO] packet queue full, dropping packet (size=%d)", len(pkt.Data))
			a.addBytesDropped(len(pkt.Data))
		}
	}
}

func (a *Audio) recvPacket() (protocol.Packet, error) {
	var hdrBuf [protocol.HeaderSize]byte
	if err := a.recvExact(hdrBuf[:]); err != nil {
		return protocol.Packet{}, err
	}
	header := protocol.DecodeHeader(hdrBuf[:])

	if header.Size > protocol.MaxVideoPacketSize {
		a.addParseError()
		return protocol.Packet{}, &oversizedPacketError{size: header.Size}
	}

	data := make([]byte, header.Size)
	if err := a.recvExact(data); err != nil {
		return protocol.Packet{}, err
	}

	return protocol.Packet{Header: header, Data: data, CodecID: a.codecID}, nil
}
