// Package input maps host-side pointer events (from the local preview
// window) onto the scrcpy multitouch pointer-slot model and enqueues the
// resulting INJECT_TOUCH control messages.
package input

import (
	"log"
	"sync"

	"github.com/cowby123/scrcpy-go/internal/protocol"
	"github.com/cowby123/scrcpy-go/internal/queue"
)

// MaxPointers bounds concurrent multitouch slots; touch pointers get slots
// 1..MaxPointers and slot 0 is never assigned. Mouse and pen events use
// protocol.PointerIDMouse instead of a slot.
const MaxPointers = 10

// Slots maps remote (client-assigned) pointer IDs onto the small set of
// local slot numbers the wire protocol actually carries. One Slots per
// device session — never shared across devices.
type Slots struct {
	mu             sync.Mutex
	localByRemote  map[uint64]uint16
	slotUsed       [MaxPointers]bool
	buttonsByLocal map[uint64]uint32
}

func NewSlots() *Slots {
	return &Slots{
		localByRemote:  make(map[uint64]uint16),
		buttonsByLocal: make(map[uint64]uint32),
	}
}

func (s *Slots) get(remote uint64) (uint16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.localByRemote[remote]
	return v, ok
}

func (s *Slots) alloc(remote uint64) (uint16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.localByRemote[remote]; ok {
		return v, true
	}
	for i := uint16(0); i < MaxPointers; i++ {
		if !s.slotUsed[i] {
			s.slotUsed[i] = true
			s.localByRemote[remote] = i + 1 // 1..10, 0 never assigned
			return i + 1, true
		}
	}
	return 0, false
}

func (s *Slots) free(remote uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if local, ok := s.localByRemote[remote]; ok {
		delete(s.localByRemote, remote)
		if local > 0 {
			s.slotUsed[local-1] = false
		}
		delete(s.buttonsByLocal, uint64(local))
	}
}

// Event is a normalized pointer event, independent of where it came from
// (the preview window builds this shape from SDL mouse events before
// calling HandleTouch).
type Event struct {
	Action      string // "down" | "up" | "move" | "cancel"
	RemoteID    uint64
	X, Y        int32
	ScreenW     uint16
	ScreenH     uint16
	Pressure    float32
	Buttons     uint32
	PointerType string // "mouse" | "touch" | "pen"
}

func actionByteFor(action string) (byte, bool) {
	switch action {
	case "down":
		return protocol.ActionDown, true
	case "up":
		return protocol.ActionUp, true
	case "move":
		return protocol.ActionMove, true
	case "cancel":
		return protocol.ActionCancel, true
	default:
		return 0, false
	}
}

// HandleTouch resolves ev's pointer slot, clamps its coordinates to
// 0..ev.ScreenW-1 and 0..ev.ScreenH-1, encodes an INJECT_TOUCH message and
// enqueues it as droppable. A screen dimension of zero leaves that axis
// without an upper clamp.
func HandleTouch(slots *Slots, q *queue.Queue, ev Event) {
	action, ok := actionByteFor(ev.Action)
	if !ok {
		log.Printf("[TOUCH] unknown action %q, dropping", ev.Action)
		return
	}

	if ev.X < 0 {
		ev.X = 0
	}
	if ev.Y < 0 {
		ev.Y = 0
	}
	if ev.ScreenW > 0 && ev.X > int32(ev.ScreenW)-1 {
		ev.X = int32(ev.ScreenW) - 1
	}
	if ev.ScreenH > 0 && ev.Y > int32(ev.ScreenH)-1 {
		ev.Y = int32(ev.ScreenH) - 1
	}

	var pointerID uint64
	if ev.PointerType != "touch" {
		pointerID = protocol.PointerIDMouse
		if action == protocol.ActionMove && ev.Buttons == 0 {
			return // no hover-move injection without a button held
		}
	} else {
		switch action {
		case protocol.ActionDown:
			local, ok := slots.alloc(ev.RemoteID)
			if !ok {
				log.Printf("[TOUCH] dropping down, over %d concurrent pointers", MaxPointers)
				return
			}
			pointerID = uint64(local)
		case protocol.ActionUp, protocol.ActionCancel:
			local, ok := slots.get(ev.RemoteID)
			if !ok {
				return
			}
			pointerID = uint64(local)
			defer slots.free(ev.RemoteID)
		default: // move
			local, ok := slots.get(ev.RemoteID)
			if !ok {
				return
			}
			pointerID = uint64(local)
		}
	}

	buttons := ev.Buttons
	if ev.PointerType == "touch" {
		buttons = 0
	}

	slots.mu.Lock()
	prevButtons := slots.buttonsByLocal[pointerID]
	var actionButton uint32
	switch action {
	case protocol.ActionDown:
		actionButton = buttons &^ prevButtons
	case protocol.ActionUp:
		actionButton = prevButtons &^ buttons
	}
	if action == protocol.ActionUp || action == protocol.ActionCancel {
		delete(slots.buttonsByLocal, pointerID)
	} else {
		slots.buttonsByLocal[pointerID] = buttons
	}
	slots.mu.Unlock()

	pressure := ev.Pressure
	if action == protocol.ActionUp {
		pressure = 0
	}

	payload := protocol.EncodeInjectTouch(protocol.TouchEvent{
		Action:       action,
		PointerID:    pointerID,
		X:            ev.X,
		Y:            ev.Y,
		W:            ev.ScreenW,
		H:            ev.ScreenH,
		Pressure:     pressure,
		ActionButton: actionButton,
		Buttons:      buttons,
	})
	q.Put(queue.Message{Kind: protocol.TypeInjectTouchEvent, Payload: payload, Droppable: true})
}
