package protocol

import (
	"encoding/binary"
	"testing"
)

func TestPressureFxP(t *testing.T) {
	cases := []struct {
		in   float32
		want uint16
	}{
		{0, 0},
		{1, 0xFFFE}, // clamped below 0x10000, never wraps
		{0.5, 0x7FFF},
		{-1, 0},
		{2, 0xFFFE},
	}
	for _, c := range cases {
		if got := PressureFxP(c.in); got != c.want {
			t.Errorf("PressureFxP(%v) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

func TestScrollFxP(t *testing.T) {
	cases := []struct {
		in   float32
		want int16
	}{
		{-1, -0x8000},
		{0, 0},
		{1, 0x7FFF},
		{0.5, 0x4000},
		{-0.5, -0x4000},
		{2, 0x7FFF},
		{-2, -0x8000},
	}
	for _, c := range cases {
		if got := ScrollFxP(c.in); got != c.want {
			t.Errorf("ScrollFxP(%v) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

func TestEncodeInjectTouchLayout(t *testing.T) {
	buf := EncodeInjectTouch(TouchEvent{
		Action:    ActionDown,
		PointerID: PointerIDGenericFinger,
		X:         540,
		Y:         1200,
		W:         1080,
		H:         2400,
		Pressure:  1.0,
	})

	if buf[0] != TypeInjectTouchEvent {
		t.Fatalf("byte 0: expected type tag %d, got %d", TypeInjectTouchEvent, buf[0])
	}
	if buf[1] != ActionDown {
		t.Fatalf("byte 1: expected action %d, got %d", ActionDown, buf[1])
	}
	if got := binary.BigEndian.Uint64(buf[2:10]); got != PointerIDGenericFinger {
		t.Errorf("pointer id: expected %#x, got %#x", PointerIDGenericFinger, got)
	}
	if got := binary.BigEndian.Uint32(buf[10:14]); got != 540 {
		t.Errorf("x: expected 540, got %d", got)
	}
	if got := binary.BigEndian.Uint32(buf[14:18]); got != 1200 {
		t.Errorf("y: expected 1200, got %d", got)
	}
	if got := binary.BigEndian.Uint16(buf[18:20]); got != 1080 {
		t.Errorf("w: expected 1080, got %d", got)
	}
	if got := binary.BigEndian.Uint16(buf[20:22]); got != 2400 {
		t.Errorf("h: expected 2400, got %d", got)
	}
	if got := binary.BigEndian.Uint16(buf[22:24]); got != 0xFFFE {
		t.Errorf("pressure: expected 0xFFFE, got %#x", got)
	}
}

func TestEncodeSetClipboardLayoutAndTruncation(t *testing.T) {
	buf := EncodeSetClipboard(7, true, "hello")
	if buf[0] != TypeSetClipboard {
		t.Fatalf("expected type tag %d, got %d", TypeSetClipboard, buf[0])
	}
	if got := binary.BigEndian.Uint64(buf[1:9]); got != 7 {
		t.Errorf("sequence: expected 7, got %d", got)
	}
	if buf[9] != 1 {
		t.Errorf("paste flag: expected 1, got %d", buf[9])
	}
	if got := binary.BigEndian.Uint32(buf[10:14]); got != 5 {
		t.Errorf("text length: expected 5, got %d", got)
	}
	if string(buf[14:19]) != "hello" {
		t.Errorf("text: expected %q, got %q", "hello", string(buf[14:19]))
	}

	long := make([]byte, ClipboardTextMaxLength+100)
	for i := range long {
		long[i] = 'x'
	}
	buf2 := EncodeSetClipboard(8, false, string(long))
	gotLen := binary.BigEndian.Uint32(buf2[10:14])
	if gotLen != ClipboardTextMaxLength {
		t.Errorf("expected truncation to %d, got %d", ClipboardTextMaxLength, gotLen)
	}
}

func TestIsConfigMergeCodec(t *testing.T) {
	cases := []struct {
		codec uint32
		want  bool
	}{
		{CodecIDH264, true},
		{CodecIDH265, true},
		{CodecIDAV1, false},
	}
	for _, c := range cases {
		if got := IsConfigMergeCodec(c.codec); got != c.want {
			t.Errorf("IsConfigMergeCodec(%#x) = %v, want %v", c.codec, got, c.want)
		}
	}
}
