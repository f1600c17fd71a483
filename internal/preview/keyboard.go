package preview

import (
	"github.com/go-vgo/robotgo"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/cowby123/scrcpy-go/internal/protocol"
	"github.com/cowby123/scrcpy-go/internal/queue"
)

// sdlKeycodeToAndroid maps the SDL keysyms this preview cares about onto
// Android key event codes; anything else is dropped rather than guessed.
var sdlKeycodeToAndroid = map[sdl.Keycode]uint32{
	sdl.K_BACKSPACE: 67,
	sdl.K_RETURN:    66,
	sdl.K_TAB:       61,
	sdl.K_ESCAPE:    111,
	sdl.K_UP:        19,
	sdl.K_DOWN:      20,
	sdl.K_LEFT:      21,
	sdl.K_RIGHT:     22,
	sdl.K_HOME:      3,
	sdl.K_AC_BACK:   4,
	sdl.K_MENU:      82,
	sdl.K_VOLUMEUP:  24,
	sdl.K_VOLUMEDOWN: 25,
	sdl.K_POWER:     26,
}

// HandleKey translates an SDL keyboard event into an INJECT_KEYCODE
// message and enqueues it, doing nothing for keys with no Android mapping.
func HandleKey(q *queue.Queue, e *sdl.KeyboardEvent) {
	android, ok := sdlKeycodeToAndroid[e.Keysym.Sym]
	if !ok {
		return
	}

	action := protocol.ActionDown
	if e.Type == sdl.KEYUP {
		action = protocol.ActionUp
	}

	payload := protocol.EncodeInjectKeycode(action, android, 0, 0)
	q.Put(queue.Message{Kind: protocol.TypeInjectKeycode, Payload: payload, Droppable: true})
}

// ReplayOnHost taps key on the host keyboard via robotgo, so that the host,
// not the device, reacts to the keypress. No other package in this module
// calls it.
func ReplayOnHost(key string) {
	if key == "" {
		return
	}
	robotgo.KeyTap(key)
}
