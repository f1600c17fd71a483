package client

import (
	"time"

	"github.com/cowby123/scrcpy-go/internal/protocol"
	"github.com/cowby123/scrcpy-go/internal/queue"
)

// swipeStepInterval matches the ~60ms MOVE spacing of the tap/swipe
// end-to-end scenario.
const swipeStepInterval = 60 * time.Millisecond

// sendTouch encodes and enqueues a single-pointer touch event using the
// generic-finger sentinel pointer ID, bypassing the multitouch slot
// allocator entirely — tap/swipe/longPress are one synthetic finger, never
// a real multitouch gesture.
func (c *Connection) sendTouch(action byte, x, y int32, pressure float32) {
	w, h := c.DeviceSize()
	payload := protocol.EncodeInjectTouch(protocol.TouchEvent{
		Action:    action,
		PointerID: protocol.PointerIDGenericFinger,
		X:         x,
		Y:         y,
		W:         uint16(w),
		H:         uint16(h),
		Pressure:  pressure,
	})
	c.controlQueue.Put(queue.Message{Kind: protocol.TypeInjectTouchEvent, Payload: payload, Droppable: true})
}

// Tap injects a down/up pair at (x, y).
func (c *Connection) Tap(x, y int32) {
	c.sendTouch(protocol.ActionDown, x, y, 1.0)
	c.sendTouch(protocol.ActionUp, x, y, 0)
}

// LongPress holds a down at (x, y) for duration before releasing.
func (c *Connection) LongPress(x, y int32, duration time.Duration) {
	c.sendTouch(protocol.ActionDown, x, y, 1.0)
	time.Sleep(duration)
	c.sendTouch(protocol.ActionUp, x, y, 0)
}

// Swipe injects a down at (x0, y0), a MOVE every swipeStepInterval along a
// linear path to (x1, y1), and a final up.
func (c *Connection) Swipe(x0, y0, x1, y1 int32, duration time.Duration) {
	steps := int(duration / swipeStepInterval)
	if steps < 1 {
		steps = 1
	}

	c.sendTouch(protocol.ActionDown, x0, y0, 1.0)
	for i := 1; i <= steps; i++ {
		time.Sleep(swipeStepInterval)
		t := float64(i) / float64(steps)
		x := x0 + int32(float64(x1-x0)*t)
		y := y0 + int32(float64(y1-y0)*t)
		c.sendTouch(protocol.ActionMove, x, y, 1.0)
	}
	c.sendTouch(protocol.ActionUp, x1, y1, 0)
}

// InjectText sends a block of text via INJECT_TEXT, truncated by the
// protocol encoder to its maximum wire length.
func (c *Connection) InjectText(text string) {
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeInjectText,
		Payload:   protocol.EncodeInjectText(text),
		Droppable: true,
	})
}
