package client

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/cowby123/scrcpy-go/internal/protocol"
	"github.com/cowby123/scrcpy-go/internal/queue"
)

// GetClipboard requests the device's current clipboard text and waits up
// to timeout for the device message carrying it.
func (c *Connection) GetClipboard(timeout time.Duration) (string, error) {
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeGetClipboard,
		Payload:   protocol.EncodeGetClipboard(protocol.CopyKeyNone),
		Droppable: false,
	})

	select {
	case text := <-c.clipboardCh:
		return text, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("client: get clipboard timed out after %v", timeout)
	}
}

// SetClipboard pushes text to the device clipboard with a fresh,
// per-connection incrementing sequence number and returns it, without
// waiting for the device's ack.
func (c *Connection) SetClipboard(text string, paste bool) uint64 {
	seq := atomic.AddUint64(&c.clipboardSeq, 1)
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeSetClipboard,
		Payload:   protocol.EncodeSetClipboard(seq, paste, text),
		Droppable: false,
	})
	return seq
}

// SyncClipboardToDevice reads the host clipboard and pushes it to the
// device as a single SET_CLIPBOARD, forwarding paste unchanged as the
// wire paste flag (the device auto-pastes on receipt when paste is set).
// Blocks until the device acknowledges that exact sequence number, or
// timeout elapses.
func (c *Connection) SyncClipboardToDevice(paste bool, timeout time.Duration) error {
	text, err := robotgo.ReadAll()
	if err != nil {
		return fmt.Errorf("client: reading host clipboard: %w", err)
	}
	if text == "" {
		return fmt.Errorf("client: host clipboard is empty, nothing to sync")
	}

	seq := atomic.AddUint64(&c.clipboardSeq, 1)
	ack := make(chan struct{})

	c.ackMu.Lock()
	c.ackChans[seq] = ack
	c.ackMu.Unlock()

	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeSetClipboard,
		Payload:   protocol.EncodeSetClipboard(seq, paste, text),
		Droppable: false,
	})

	select {
	case <-ack:
		return nil
	case <-time.After(timeout):
		c.ackMu.Lock()
		delete(c.ackChans, seq)
		c.ackMu.Unlock()
		return fmt.Errorf("client: clipboard sync ack timed out for sequence %d", seq)
	}
}
