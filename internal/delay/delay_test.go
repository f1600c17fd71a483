package delay

import "testing"

type testFrame struct {
	id   int
	data []byte
}

func (f testFrame) Copy() testFrame {
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return testFrame{id: f.id, data: out}
}

func TestPushReportsSkipOnlyWhenUnconsumed(t *testing.T) {
	var b Buffer[testFrame]

	if skipped := b.Push(testFrame{id: 1, data: []byte("a")}); skipped {
		t.Error("first push should never report a skip")
	}

	if skipped := b.Push(testFrame{id: 2, data: []byte("b")}); !skipped {
		t.Error("second push without a consume in between should report skip=true")
	}
}

func TestConsumeReturnsDeepCopyThenEmpties(t *testing.T) {
	var b Buffer[testFrame]
	b.Push(testFrame{id: 1, data: []byte("a")})
	b.Push(testFrame{id: 2, data: []byte("b")})

	out, ok := b.Consume()
	if !ok {
		t.Fatal("expected a frame")
	}
	if out.id != 2 || string(out.data) != "b" {
		t.Errorf("expected the latest pushed frame (id 2, \"b\"), got id %d, %q", out.id, out.data)
	}

	// Mutating the returned copy must not affect the buffer's internal state.
	out.data[0] = 'z'
	if p, ok := b.Peek(); !ok || string(p.data) != "b" {
		t.Errorf("expected the buffered frame to stay \"b\" after mutating the consumed copy, got %q", p.data)
	}

	if _, ok := b.Consume(); ok {
		t.Error("second consume with no intervening push should report no frame")
	}
}

func TestIsEmptyAndClear(t *testing.T) {
	var b Buffer[testFrame]
	if !b.IsEmpty() {
		t.Fatal("zero-value buffer should be empty")
	}
	b.Push(testFrame{id: 1})
	if b.IsEmpty() {
		t.Fatal("buffer should not be empty after push")
	}
	b.Clear()
	if !b.IsEmpty() {
		t.Error("buffer should be empty after Clear")
	}
	if _, ok := b.Consume(); ok {
		t.Error("consume after Clear should report no frame")
	}
}

func TestPeekDoesNotMarkConsumed(t *testing.T) {
	var b Buffer[testFrame]
	b.Push(testFrame{id: 1, data: []byte("a")})

	if _, ok := b.Peek(); !ok {
		t.Fatal("expected a frame from Peek")
	}
	out, ok := b.Consume()
	if !ok {
		t.Fatal("expected Consume to still see the frame after Peek")
	}
	if out.id != 1 {
		t.Errorf("expected id 1, got %d", out.id)
	}
}
