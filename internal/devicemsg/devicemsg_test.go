package devicemsg

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/cowby123/scrcpy-go/internal/protocol"
)

func encodeClipboard(text string) []byte {
	data := []byte(text)
	buf := make([]byte, 5+len(data))
	buf[0] = protocol.DeviceMsgClipboard
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(data)))
	copy(buf[5:], data)
	return buf
}

func encodeAckClipboard(seq uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = protocol.DeviceMsgAckClipboard
	binary.BigEndian.PutUint64(buf[1:9], seq)
	return buf
}

func encodeAppList(apps []App) []byte {
	buf := []byte{protocol.DeviceMsgAppList, 0, 0}
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(apps)))
	for _, a := range apps {
		var sys byte
		if a.System {
			sys = 1
		}
		buf = append(buf, sys)
		nameLen := make([]byte, 2)
		binary.BigEndian.PutUint16(nameLen, uint16(len(a.Name)))
		buf = append(buf, nameLen...)
		buf = append(buf, []byte(a.Name)...)
		pkgLen := make([]byte, 2)
		binary.BigEndian.PutUint16(pkgLen, uint16(len(a.Pkg)))
		buf = append(buf, pkgLen...)
		buf = append(buf, []byte(a.Pkg)...)
	}
	return buf
}

func TestParseClipboardTrimsTrailingNuls(t *testing.T) {
	var got string
	r := &Receiver{cb: Callbacks{OnClipboard: func(text string, _ uint64) { got = text }}}

	buf := encodeClipboard("hello\x00\x00")
	consumed := r.parseOne(buf)
	if consumed != len(buf) {
		t.Fatalf("expected to consume %d bytes, got %d", len(buf), consumed)
	}
	if got != "hello" {
		t.Errorf("expected trimmed text %q, got %q", "hello", got)
	}
}

func TestParseClipboardIncompleteReturnsZero(t *testing.T) {
	r := &Receiver{}
	buf := encodeClipboard("hello")
	if consumed := r.parseOne(buf[:len(buf)-2]); consumed != 0 {
		t.Errorf("expected 0 (incomplete) for a truncated record, got %d", consumed)
	}
}

func TestParseAckClipboard(t *testing.T) {
	var got uint64
	r := &Receiver{cb: Callbacks{OnClipboardAck: func(seq uint64) { got = seq }}}

	buf := encodeAckClipboard(42)
	consumed := r.parseOne(buf)
	if consumed != 9 {
		t.Fatalf("expected to consume 9 bytes, got %d", consumed)
	}
	if got != 42 {
		t.Errorf("expected sequence 42, got %d", got)
	}
}

func TestParseAppListRoundTrip(t *testing.T) {
	want := []App{
		{Name: "Firefox", Pkg: "org.mozilla.firefox", System: false},
		{Name: "Camera", Pkg: "com.android.camera", System: true},
	}
	var got []App
	r := &Receiver{cb: Callbacks{OnAppList: func(apps []App) { got = apps }}}

	buf := encodeAppList(want)
	consumed := r.parseOne(buf)
	if consumed != len(buf) {
		t.Fatalf("expected to consume %d bytes, got %d", len(buf), consumed)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d apps, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("app %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestParseOneUnknownTypeSignalsDiscard(t *testing.T) {
	r := &Receiver{}
	if consumed := r.parseOne([]byte{0xFF, 1, 2, 3}); consumed != -1 {
		t.Errorf("expected -1 for an unrecognized type byte, got %d", consumed)
	}
}

func TestDrainDiscardsWholeBufferOnUnknownType(t *testing.T) {
	r := &Receiver{buf: []byte{0xFF, 1, 2, 3}}
	r.drain()
	if len(r.buf) != 0 {
		t.Errorf("expected buffer to be fully discarded, got %d bytes left", len(r.buf))
	}
}

func TestRunAcrossFragmentedReads(t *testing.T) {
	server, conn := net.Pipe()
	defer server.Close()
	defer conn.Close()

	gotCh := make(chan uint64, 1)
	recv := NewReceiver(conn, Callbacks{OnClipboardAck: func(seq uint64) { gotCh <- seq }})
	go recv.Run()
	defer recv.Stop()

	buf := encodeAckClipboard(7)
	go func() {
		// Split the 9-byte record across two writes to exercise the
		// receiver's partial-record buffering.
		server.Write(buf[:4])
		time.Sleep(10 * time.Millisecond)
		server.Write(buf[4:])
	}()

	select {
	case got := <-gotCh:
		if got != 7 {
			t.Errorf("expected sequence 7, got %d", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the ack callback")
	}
}
