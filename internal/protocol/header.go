package protocol

import "encoding/binary"

const HeaderSize = 12

const (
	flagConfigBit    = uint64(1) << 63
	flagKeyFrameBit  = uint64(1) << 62
	ptsMask          = flagKeyFrameBit - 1 // low 62 bits
)

// PacketHeader is the 12-byte big-endian header prefixing every video/audio
// media packet: [u64 pts_flags][u32 payload_size].
type PacketHeader struct {
	PTS       uint64
	Config    bool
	KeyFrame  bool
	Size      uint32
}

// Encode writes the header into a 12-byte big-endian buffer.
func (h PacketHeader) Encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	ptsFlags := h.PTS & ptsMask
	if h.Config {
		ptsFlags |= flagConfigBit
	}
	if h.KeyFrame {
		ptsFlags |= flagKeyFrameBit
	}
	binary.BigEndian.PutUint64(buf[0:8], ptsFlags)
	binary.BigEndian.PutUint32(buf[8:12], h.Size)
	return buf
}

// DecodeHeader parses a 12-byte big-endian buffer into a PacketHeader.
func DecodeHeader(buf []byte) PacketHeader {
	ptsFlags := binary.BigEndian.Uint64(buf[0:8])
	return PacketHeader{
		PTS:      ptsFlags & ptsMask,
		Config:   ptsFlags&flagConfigBit != 0,
		KeyFrame: ptsFlags&flagKeyFrameBit != 0,
		Size:     binary.BigEndian.Uint32(buf[8:12]),
	}
}

// Packet is a decoded media packet: header plus payload, tagged with the
// stream's codec ID so the config merger and decoder can dispatch on it.
type Packet struct {
	Header  PacketHeader
	Data    []byte
	CodecID uint32
}
