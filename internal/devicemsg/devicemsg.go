// Package devicemsg implements the control socket's read side (§4.8): a
// growing buffer, exact record parsing per device-message type, and the
// defensive whole-buffer discard on an unrecognized type byte.
package devicemsg

import (
	"encoding/binary"
	"log"
	"net"
	"time"

	"github.com/cowby123/scrcpy-go/internal/protocol"
)

// App is one entry of an APP_LIST record.
type App struct {
	Name   string
	Pkg    string
	System bool
}

// Callbacks receives parsed device messages. Any nil field is skipped.
type Callbacks struct {
	OnClipboard     func(text string, seq uint64)
	OnClipboardAck  func(sequence uint64)
	OnUhidOutput    func(id uint16, data []byte)
	OnAppList       func(apps []App)
}

// Receiver owns the control socket's read side as a standalone task.
type Receiver struct {
	conn net.Conn
	cb   Callbacks
	buf  []byte

	stopCh chan struct{}
}

func NewReceiver(conn net.Conn, cb Callbacks) *Receiver {
	return &Receiver{
		conn:   conn,
		cb:     cb,
		buf:    make([]byte, 0, 4096),
		stopCh: make(chan struct{}),
	}
}

func (r *Receiver) Stop() {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
	r.conn.Close()
}

// Run reads from the control socket until it closes or Stop is called,
// parsing as many complete records as possible after every read and then
// compacting the tail to the front of the buffer.
func (r *Receiver) Run() {
	chunk := make([]byte, 8192)
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		r.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, err := r.conn.Read(chunk)
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
			r.drain()
		}
		if err != nil {
			if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
				continue
			}
			select {
			case <-r.stopCh:
			default:
				log.Printf("[CTRL] device-message receiver stopping: %v", err)
			}
			return
		}
	}
}

func (r *Receiver) drain() {
	for {
		if len(r.buf) == 0 {
			return
		}
		if len(r.buf) > protocol.DeviceMsgMaxSize {
			log.Printf("[CTRL] device-message buffer exceeded max size, discarding")
			r.buf = r.buf[:0]
			return
		}

		consumed := r.parseOne(r.buf)
		if consumed == 0 {
			return // incomplete record, wait for more bytes
		}
		if consumed < 0 {
			// Unknown type byte: defensive whole-buffer discard,
			// matching the source's fallback behaviour.
			r.buf = r.buf[:0]
			return
		}

		copy(r.buf, r.buf[consumed:])
		r.buf = r.buf[:len(r.buf)-consumed]
	}
}

// parseOne returns bytes consumed, 0 if incomplete, -1 if the type byte is
// unrecognized (caller discards the whole buffer in that case).
func (r *Receiver) parseOne(buf []byte) int {
	if len(buf) < 1 {
		return 0
	}
	switch buf[0] {
	case protocol.DeviceMsgClipboard:
		return r.parseClipboard(buf)
	case protocol.DeviceMsgAckClipboard:
		return r.parseAckClipboard(buf)
	case protocol.DeviceMsgUhidOutput:
		return r.parseUhidOutput(buf)
	case protocol.DeviceMsgAppList:
		return r.parseAppList(buf)
	default:
		return -1
	}
}

func (r *Receiver) parseClipboard(buf []byte) int {
	if len(buf) < 5 {
		return 0
	}
	textLen := int(binary.BigEndian.Uint32(buf[1:5]))
	need := 5 + textLen
	if len(buf) < need {
		return 0
	}
	text := trimTrailingNuls(buf[5:need])
	if r.cb.OnClipboard != nil {
		r.cb.OnClipboard(text, 0)
	}
	return need
}

func (r *Receiver) parseAckClipboard(buf []byte) int {
	if len(buf) < 9 {
		return 0
	}
	seq := binary.BigEndian.Uint64(buf[1:9])
	if r.cb.OnClipboardAck != nil {
		r.cb.OnClipboardAck(seq)
	}
	return 9
}

func (r *Receiver) parseUhidOutput(buf []byte) int {
	if len(buf) < 5 {
		return 0
	}
	id := binary.BigEndian.Uint16(buf[1:3])
	size := int(binary.BigEndian.Uint16(buf[3:5]))
	need := 5 + size
	if len(buf) < need {
		return 0
	}
	data := append([]byte(nil), buf[5:need]...)
	if r.cb.OnUhidOutput != nil {
		r.cb.OnUhidOutput(id, data)
	}
	return need
}

func (r *Receiver) parseAppList(buf []byte) int {
	if len(buf) < 3 {
		return 0
	}
	count := int(binary.BigEndian.Uint16(buf[1:3]))
	off := 3
	apps := make([]App, 0, count)
	for i := 0; i < count; i++ {
		if len(buf) < off+1+2 {
			return 0
		}
		system := buf[off] != 0
		off++
		nameLen := int(binary.BigEndian.Uint16(buf[off : off+2]))
		off += 2
		if len(buf) < off+nameLen+2 {
			return 0
		}
		name := string(buf[off : off+nameLen])
		off += nameLen
		pkgLen := int(binary.BigEndian.Uint16(buf[off : off+2]))
		off += 2
		if len(buf) < off+pkgLen {
			return 0
		}
		pkg := string(buf[off : off+pkgLen])
		off += pkgLen
		apps = append(apps, App{Name: name, Pkg: pkg, System: system})
	}
	if r.cb.OnAppList != nil {
		r.cb.OnAppList(apps)
	}
	return off
}

func trimTrailingNuls(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
