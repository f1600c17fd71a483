package demux

import (
	"net"
	"testing"
	"time"

	"github.com/cowby123/scrcpy-go/internal/protocol"
)

// writePacket serializes one header+payload packet onto conn.
func writePacket(t *testing.T, conn net.Conn, h protocol.PacketHeader, data []byte) {
	t.Helper()
	h.Size = uint32(len(data))
	hdr := h.Encode()
	if _, err := conn.Write(hdr[:]); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if len(data) > 0 {
		if _, err := conn.Write(data); err != nil {
			t.Fatalf("write payload: %v", err)
		}
	}
}

// writeFragmented writes buf to conn one byte at a time, exercising the
// demuxer's exact-read loop against a maximally fragmented socket.
func writeFragmented(t *testing.T, conn net.Conn, buf []byte) {
	t.Helper()
	for _, b := range buf {
		if _, err := conn.Write([]byte{b}); err != nil {
			t.Fatalf("fragmented write: %v", err)
		}
	}
}

func TestVideoConfigMergePurity(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	v := NewVideo(client, protocol.CodecIDH264)
	go v.Run()

	config := []byte("SPSPPS")
	m1 := []byte("media-1")
	m2 := []byte("media-2")

	go func() {
		writePacket(t, server, protocol.PacketHeader{Config: true}, config)
		writePacket(t, server, protocol.PacketHeader{}, m1)
		writePacket(t, server, protocol.PacketHeader{KeyFrame: true}, m2)
	}()

	want := [][]byte{
		config,
		append(append([]byte(nil), config...), m1...),
		m2,
	}

	for i, w := range want {
		select {
		case pkt := <-v.Queue():
			if string(pkt.Data) != string(w) {
				t.Errorf("packet %d: expected %q, got %q", i, w, pkt.Data)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("packet %d: timed out waiting for output", i)
		}
	}

	v.Stop()
}

func TestVideoAV1BypassesConfigMerge(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	v := NewVideo(client, protocol.CodecIDAV1)
	go v.Run()

	config := []byte("av1-config")
	media := []byte("av1-media")

	go func() {
		writePacket(t, server, protocol.PacketHeader{Config: true}, config)
		writePacket(t, server, protocol.PacketHeader{}, media)
	}()

	for _, want := range [][]byte{config, media} {
		select {
		case pkt := <-v.Queue():
			if string(pkt.Data) != string(want) {
				t.Errorf("expected %q, got %q (config merge must not apply to AV1)", want, pkt.Data)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for output")
		}
	}

	v.Stop()
}

func TestVideoExactReadAgainstFragmentedSocket(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	v := NewVideo(client, protocol.CodecIDAV1)
	go v.Run()

	data := []byte("a single access unit's worth of bytes")
	h := protocol.PacketHeader{KeyFrame: true, Size: uint32(len(data))}
	hdr := h.Encode()

	go func() {
		writeFragmented(t, server, hdr[:])
		writeFragmented(t, server, data)
	}()

	select {
	case pkt := <-v.Queue():
		if string(pkt.Data) != string(data) {
			t.Errorf("expected %q, got %q", data, pkt.Data)
		}
		if !pkt.Header.KeyFrame {
			t.Error("expected KeyFrame flag to survive a byte-at-a-time delivery")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for output")
	}

	v.Stop()
}
