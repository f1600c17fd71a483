// Package demux implements the streaming demuxers of §4.3: header-first
// exact reads over the video and audio sockets, with pause/resume and a
// bounded packet queue. This is the "streaming" variant only — the source's
// alternate buffer-based demuxer (lazy 75%-threshold compaction) is not
// ported; see DESIGN.md's Open Question resolution.
package demux

import (
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cowby123/scrcpy-go/internal/errs"
)

const (
	recvChunkSize  = 65536
	recvTimeout    = 5 * time.Second
	queuePutTimeout = 1 * time.Second
)

// Stats mirrors the source's get_stats() counters.
type Stats struct {
	BytesReceived   int64
	PacketsParsed   int64
	ParseErrors     int64
	IncompleteReads int64
	BytesDropped    int64
}

// Base is embedded by the video and audio demuxers. It owns the socket read
// side exclusively and drives the recv-exact primitive plus the pause gate.
type Base struct {
	conn net.Conn
	name string // log tag, e.g. "VIDEO" / "AUDIO"

	stopped atomic.Bool
	paused  atomic.Bool
	pauseCh chan struct{} // closed while running, recreated on pause

	pauseMu sync.Mutex

	stats   Stats
	statsMu sync.Mutex
}

// NewBase wires a demuxer base onto an already-connected socket.
func NewBase(conn net.Conn, name string) *Base {
	b := &Base{conn: conn, name: name}
	b.pauseCh = make(chan struct{})
	close(b.pauseCh) // not paused initially
	return b
}

// Stop closes the underlying socket, unblocking any pending exact read, and
// marks the demuxer as stopped. Idempotent.
func (b *Base) Stop() {
	if b.stopped.CompareAndSwap(false, true) {
		b.conn.Close()
	}
}

func (b *Base) Stopped() bool { return b.stopped.Load() }

// Pause switches the demuxer into discard-while-draining mode.
func (b *Base) Pause() {
	b.pauseMu.Lock()
	defer b.pauseMu.Unlock()
	if !b.paused.Load() {
		b.paused.Store(true)
		b.pauseCh = make(chan struct{})
	}
}

// Resume switches the demuxer back to enqueueing parsed packets.
func (b *Base) Resume() {
	b.pauseMu.Lock()
	defer b.pauseMu.Unlock()
	if b.paused.CompareAndSwap(true, false) {
		close(b.pauseCh)
	}
}

func (b *Base) Paused() bool { return b.paused.Load() }

// Stats returns a snapshot of the running counters.
func (b *Base) Stats() Stats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return b.stats
}

func (b *Base) addBytesReceived(n int) {
	b.statsMu.Lock()
	b.stats.BytesReceived += int64(n)
	b.statsMu.Unlock()
}

func (b *Base) addParsed() {
	b.statsMu.Lock()
	b.stats.PacketsParsed++
	b.statsMu.Unlock()
}

func (b *Base) addParseError() {
	b.statsMu.Lock()
	b.stats.ParseErrors++
	b.statsMu.Unlock()
}

func (b *Base) addIncompleteRead() {
	b.statsMu.Lock()
	b.stats.IncompleteReads++
	b.statsMu.Unlock()
}

func (b *Base) addBytesDropped(n int) {
	b.statsMu.Lock()
	b.stats.BytesDropped += int64(n)
	b.statsMu.Unlock()
}

// recvExact reads exactly len(buf) bytes, looping on short reads. It mirrors
// the source's `_recv_exact`: any read that returns zero bytes before the
// buffer is full is treated as the peer having closed mid-frame.
func (b *Base) recvExact(buf []byte) error {
	n, err := io.ReadFull(b.conn, buf)
	if err != nil {
		b.addIncompleteRead()
		return &errs.IncompleteReadError{Expected: len(buf), Got: n}
	}
	b.addBytesReceived(n)
	return nil
}

// recvDiscard reads up to recvChunkSize bytes and throws them away, used
// while paused to keep draining the socket and avoid device-encoder
// back-pressure.
func (b *Base) recvDiscard() error {
	buf := make([]byte, recvChunkSize)
	n, err := b.conn.Read(buf)
	if err != nil {
		return err
	}
	b.addBytesReceived(n)
	b.addBytesDropped(n)
	return nil
}

// drainWhilePaused blocks until Resume() is called or the demuxer is stopped,
// but keeps draining the socket meanwhile so the on-device encoder never
// stalls on a full TCP window.
func (b *Base) drainWhilePaused() {
	for b.Paused() && !b.Stopped() {
		if err := b.recvDiscard(); err != nil {
			if !b.Stopped() {
				log.Printf("[DEMUX][%s] discard read error: %v", b.name, err)
			}
			return
		}
	}
}
