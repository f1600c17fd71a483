package demux

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/cowby123/scrcpy-go/internal/protocol"
)

func TestAudioReadCodecTagThenPackets(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	a := NewAudio(client)

	go func() {
		var tag [4]byte
		binary.BigEndian.PutUint32(tag[:], 0x6F707573) // "opus"
		server.Write(tag[:])
	}()

	done := make(chan error, 1)
	go func() { done <- a.ReadCodecTag() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ReadCodecTag: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ReadCodecTag")
	}

	if a.CodecID() != 0x6F707573 {
		t.Errorf("expected codec id 0x6F707573, got %#x", a.CodecID())
	}

	go a.Run()
	defer a.Stop()

	payload := []byte("audio-frame-1")
	go writePacket(t, server, protocol.PacketHeader{}, payload)

	select {
	case pkt := <-a.Queue():
		if string(pkt.Data) != string(payload) {
			t.Errorf("expected payload %q, got %q", payload, pkt.Data)
		}
		if pkt.CodecID != a.CodecID() {
			t.Errorf("expected packet CodecID %#x, got %#x", a.CodecID(), pkt.CodecID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audio packet")
	}
}

func TestAudioStopUnblocksRun(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	a := NewAudio(client)
	runDone := make(chan struct{})
	go func() {
		a.Run()
		close(runDone)
	}()

	a.Stop()

	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
