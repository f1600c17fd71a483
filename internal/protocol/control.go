package protocol

import (
	"encoding/binary"
	"math"
)

// TouchEvent carries the fields needed to serialize INJECT_TOUCH.
type TouchEvent struct {
	Action       byte
	PointerID    uint64
	X, Y         int32
	W, H         uint16
	Pressure     float32 // 0..1
	ActionButton uint32
	Buttons      uint32
}

// ScrollEvent carries the fields needed to serialize INJECT_SCROLL.
type ScrollEvent struct {
	X, Y    int32
	W, H    uint16
	HScroll float32 // -1..1
	VScroll float32 // -1..1
	Buttons uint32
}

// PressureFxP converts a 0..1 pressure value to the fixed-point encoding
// the wire format uses: clamp(pressure*0xFFFF, 0, 0xFFFE).
func PressureFxP(pressure float32) uint16 {
	v := pressure * PressureMultiplier
	if v < 0 {
		v = 0
	}
	if v > PressureMultiplier-1 {
		v = PressureMultiplier - 1
	}
	return uint16(v)
}

// ScrollFxP converts a -1..1 scroll delta to its fixed-point encoding:
// clamp(round(clamp(v,-1,1)*0x8000), -0x8000, 0x7FFF).
func ScrollFxP(v float32) int16 {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	scaled := math.Round(float64(v) * ScrollMultiplier)
	if scaled < -0x8000 {
		scaled = -0x8000
	}
	if scaled > 0x7FFF {
		scaled = 0x7FFF
	}
	return int16(scaled)
}

// EncodeInjectKeycode serializes INJECT_KEYCODE.
func EncodeInjectKeycode(action byte, keycode, repeat, metastate uint32) []byte {
	buf := make([]byte, 1+1+4+4+4)
	buf[0] = TypeInjectKeycode
	buf[1] = action
	binary.BigEndian.PutUint32(buf[2:], keycode)
	binary.BigEndian.PutUint32(buf[6:], repeat)
	binary.BigEndian.PutUint32(buf[10:], metastate)
	return buf
}

// EncodeInjectText serializes INJECT_TEXT, truncating to InjectTextMaxLength
// bytes.
func EncodeInjectText(text string) []byte {
	data := []byte(text)
	if len(data) > InjectTextMaxLength {
		data = data[:InjectTextMaxLength]
	}
	buf := make([]byte, 1+4+len(data))
	buf[0] = TypeInjectText
	binary.BigEndian.PutUint32(buf[1:], uint32(len(data)))
	copy(buf[5:], data)
	return buf
}

// EncodeInjectTouch serializes INJECT_TOUCH.
func EncodeInjectTouch(e TouchEvent) []byte {
	buf := make([]byte, 1+1+8+4+4+2+2+2+4+4)
	i := 0
	buf[i] = TypeInjectTouchEvent
	i++
	buf[i] = e.Action
	i++
	binary.BigEndian.PutUint64(buf[i:], e.PointerID)
	i += 8
	binary.BigEndian.PutUint32(buf[i:], uint32(e.X))
	i += 4
	binary.BigEndian.PutUint32(buf[i:], uint32(e.Y))
	i += 4
	binary.BigEndian.PutUint16(buf[i:], e.W)
	i += 2
	binary.BigEndian.PutUint16(buf[i:], e.H)
	i += 2
	binary.BigEndian.PutUint16(buf[i:], PressureFxP(e.Pressure))
	i += 2
	binary.BigEndian.PutUint32(buf[i:], e.ActionButton)
	i += 4
	binary.BigEndian.PutUint32(buf[i:], e.Buttons)
	return buf
}

// EncodeInjectScroll serializes INJECT_SCROLL.
func EncodeInjectScroll(e ScrollEvent) []byte {
	buf := make([]byte, 1+4+4+2+2+2+2+4)
	i := 0
	buf[i] = TypeInjectScrollEvent
	i++
	binary.BigEndian.PutUint32(buf[i:], uint32(e.X))
	i += 4
	binary.BigEndian.PutUint32(buf[i:], uint32(e.Y))
	i += 4
	binary.BigEndian.PutUint16(buf[i:], e.W)
	i += 2
	binary.BigEndian.PutUint16(buf[i:], e.H)
	i += 2
	binary.BigEndian.PutUint16(buf[i:], uint16(ScrollFxP(e.HScroll)))
	i += 2
	binary.BigEndian.PutUint16(buf[i:], uint16(ScrollFxP(e.VScroll)))
	i += 2
	binary.BigEndian.PutUint32(buf[i:], e.Buttons)
	return buf
}

// EncodeBackOrScreenOn serializes BACK_OR_SCREEN_ON.
func EncodeBackOrScreenOn(action byte) []byte {
	return []byte{TypeBackOrScreenOn, action}
}

// EncodeGetClipboard serializes GET_CLIPBOARD.
func EncodeGetClipboard(copyKey byte) []byte {
	return []byte{TypeGetClipboard, copyKey}
}

// EncodeSetClipboard serializes SET_CLIPBOARD, truncating to
// ClipboardTextMaxLength bytes.
func EncodeSetClipboard(sequence uint64, paste bool, text string) []byte {
	data := []byte(text)
	if len(data) > ClipboardTextMaxLength {
		data = data[:ClipboardTextMaxLength]
	}
	buf := make([]byte, 1+8+1+4+len(data))
	i := 0
	buf[i] = TypeSetClipboard
	i++
	binary.BigEndian.PutUint64(buf[i:], sequence)
	i += 8
	if paste {
		buf[i] = 1
	}
	i++
	binary.BigEndian.PutUint32(buf[i:], uint32(len(data)))
	i += 4
	copy(buf[i:], data)
	return buf
}

// EncodeSetDisplayPower serializes SET_DISPLAY_POWER.
func EncodeSetDisplayPower(on bool) []byte {
	v := byte(0)
	if on {
		v = 1
	}
	return []byte{TypeSetDisplayPower, v}
}

// EncodeUhidCreate serializes UHID_CREATE, truncating name to
// UhidNameMaxLength bytes.
func EncodeUhidCreate(id, vendorID, productID uint16, name string, reportDesc []byte) []byte {
	nameBytes := []byte(name)
	if len(nameBytes) > UhidNameMaxLength {
		nameBytes = nameBytes[:UhidNameMaxLength]
	}
	buf := make([]byte, 1+2+2+2+1+len(nameBytes)+2+len(reportDesc))
	i := 0
	buf[i] = TypeUhidCreate
	i++
	binary.BigEndian.PutUint16(buf[i:], id)
	i += 2
	binary.BigEndian.PutUint16(buf[i:], vendorID)
	i += 2
	binary.BigEndian.PutUint16(buf[i:], productID)
	i += 2
	buf[i] = byte(len(nameBytes))
	i++
	copy(buf[i:], nameBytes)
	i += len(nameBytes)
	binary.BigEndian.PutUint16(buf[i:], uint16(len(reportDesc)))
	i += 2
	copy(buf[i:], reportDesc)
	return buf
}

// EncodeUhidInput serializes UHID_INPUT.
func EncodeUhidInput(id uint16, data []byte) []byte {
	buf := make([]byte, 1+2+2+len(data))
	i := 0
	buf[i] = TypeUhidInput
	i++
	binary.BigEndian.PutUint16(buf[i:], id)
	i += 2
	binary.BigEndian.PutUint16(buf[i:], uint16(len(data)))
	i += 2
	copy(buf[i:], data)
	return buf
}

// EncodeUhidDestroy serializes UHID_DESTROY.
func EncodeUhidDestroy(id uint16) []byte {
	buf := make([]byte, 3)
	buf[0] = TypeUhidDestroy
	binary.BigEndian.PutUint16(buf[1:], id)
	return buf
}

// EncodeStartApp serializes START_APP, truncating name to
// StartAppNameMaxLength bytes.
func EncodeStartApp(name string) []byte {
	data := []byte(name)
	if len(data) > StartAppNameMaxLength {
		data = data[:StartAppNameMaxLength]
	}
	buf := make([]byte, 2+len(data))
	buf[0] = TypeStartApp
	buf[1] = byte(len(data))
	copy(buf[2:], data)
	return buf
}

// EncodeEmpty serializes one of the empty-body kinds: expand/collapse
// panels, rotate device, open-hard-keyboard-settings, reset-video,
// screenshot, get-app-list.
func EncodeEmpty(kind byte) []byte {
	return []byte{kind}
}
