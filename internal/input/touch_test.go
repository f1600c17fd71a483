package input

import (
	"testing"
	"time"

	"github.com/cowby123/scrcpy-go/internal/protocol"
	"github.com/cowby123/scrcpy-go/internal/queue"
)

func getPayload(t *testing.T, q *queue.Queue) []byte {
	t.Helper()
	m, ok := q.Get(time.Second)
	if !ok {
		t.Fatal("expected a queued message")
	}
	return m.Payload
}

func TestHandleTouchTapAt540x1200On1080x2400(t *testing.T) {
	slots := NewSlots()
	q := queue.New()

	HandleTouch(slots, q, Event{
		Action: "down", RemoteID: 1, X: 540, Y: 1200,
		ScreenW: 1080, ScreenH: 2400, Pressure: 1.0, PointerType: "touch",
	})
	down := getPayload(t, q)

	HandleTouch(slots, q, Event{
		Action: "up", RemoteID: 1, X: 540, Y: 1200,
		ScreenW: 1080, ScreenH: 2400, PointerType: "touch",
	})
	up := getPayload(t, q)

	if down[1] != protocol.ActionDown {
		t.Errorf("down action byte: expected %d, got %d", protocol.ActionDown, down[1])
	}
	if up[1] != protocol.ActionUp {
		t.Errorf("up action byte: expected %d, got %d", protocol.ActionUp, up[1])
	}
	// Pressure for the UP event is forced to zero regardless of what the
	// caller passed in.
	pressureOffset := 1 + 1 + 8 + 4 + 4 + 2 + 2
	if up[pressureOffset] != 0 || up[pressureOffset+1] != 0 {
		t.Errorf("expected UP pressure to be zero, got %v", up[pressureOffset:pressureOffset+2])
	}
}

func TestHandleTouchAllocatesAndFreesSlots(t *testing.T) {
	slots := NewSlots()
	q := queue.New()

	HandleTouch(slots, q, Event{Action: "down", RemoteID: 42, PointerType: "touch"})
	if _, ok := slots.get(42); !ok {
		t.Fatal("expected remote id 42 to have an allocated slot after down")
	}
	q.Get(0)

	HandleTouch(slots, q, Event{Action: "up", RemoteID: 42, PointerType: "touch"})
	q.Get(0)
	if _, ok := slots.get(42); ok {
		t.Error("expected remote id 42's slot to be freed after up")
	}
}

func TestHandleTouchDropsMoveWithoutPriorDown(t *testing.T) {
	slots := NewSlots()
	q := queue.New()

	HandleTouch(slots, q, Event{Action: "move", RemoteID: 7, PointerType: "touch"})
	if q.Len() != 0 {
		t.Errorf("expected move without a prior down to be dropped, queue has %d entries", q.Len())
	}
}

func TestHandleTouchExhaustsPointerSlots(t *testing.T) {
	slots := NewSlots()
	q := queue.New()

	for i := uint64(0); i < MaxPointers; i++ {
		HandleTouch(slots, q, Event{Action: "down", RemoteID: i, PointerType: "touch"})
		q.Get(0)
	}
	if q.Len() != 0 {
		t.Fatalf("expected %d downs to drain cleanly, queue has %d", MaxPointers, q.Len())
	}

	HandleTouch(slots, q, Event{Action: "down", RemoteID: 999, PointerType: "touch"})
	if q.Len() != 0 {
		t.Error("expected the 11th concurrent pointer down to be dropped, not queued")
	}
}

func TestHandleTouchMouseHoverWithoutButtonIsDropped(t *testing.T) {
	slots := NewSlots()
	q := queue.New()

	HandleTouch(slots, q, Event{Action: "move", PointerType: "mouse", Buttons: 0})
	if q.Len() != 0 {
		t.Error("expected a buttonless mouse hover-move to be dropped")
	}
}
