// Package preview implements the optional local SDL2 preview window and
// host-side input capture, gated by Config.ShowWindow. Neither is required
// when running without a window; both are adapted from the teacher's flat
// video/display.go and input/handler.go for RGB24 frames (this system's
// decoder output) instead of YUV.
package preview

import (
	"fmt"
	"sync"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/cowby123/scrcpy-go/internal/decoder"
	"github.com/cowby123/scrcpy-go/internal/input"
	"github.com/cowby123/scrcpy-go/internal/logging"
	"github.com/cowby123/scrcpy-go/internal/queue"
)

// Window renders decoded RGB24 frames in an SDL2 window and, when polled,
// translates SDL mouse/keyboard events into control-queue touch injections.
type Window struct {
	mu       sync.Mutex
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	width    int
	height   int

	slots *input.Slots
	queue *queue.Queue

	screenW, screenH uint16
}

// NewWindow creates an SDL window sized to (w, h) and wires it to the
// control queue used to inject touch/mouse events back to the device.
func NewWindow(title string, w, h int, slots *input.Slots, q *queue.Queue) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	win, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(w), int32(h), sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, fmt.Errorf("sdl create window: %w", err)
	}
	rend, err := sdl.CreateRenderer(win, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("sdl create renderer: %w", err)
	}
	tex, err := rend.CreateTexture(sdl.PIXELFORMAT_RGB24, sdl.TEXTUREACCESS_STREAMING, int32(w), int32(h))
	if err != nil {
		return nil, fmt.Errorf("sdl create texture: %w", err)
	}
	return &Window{
		window: win, renderer: rend, texture: tex,
		width: w, height: h,
		slots: slots, queue: q,
		screenW: uint16(w), screenH: uint16(h),
	}, nil
}

// PushVideo implements decoder.VideoSink, rendering every delivered frame,
// resizing the texture on the fly if the device rotates or the stream's
// resolution changes mid-session.
func (win *Window) PushVideo(f decoder.VideoFrame) {
	win.mu.Lock()
	defer win.mu.Unlock()

	if f.Width != win.width || f.Height != win.height {
		if err := win.resize(f.Width, f.Height); err != nil {
			logging.Error("[PREVIEW] resize to %dx%d failed: %v", f.Width, f.Height, err)
			return
		}
	}

	if err := win.texture.Update(nil, f.RGB24, f.Stride); err != nil {
		logging.Error("[PREVIEW] texture update failed: %v", err)
		return
	}
	win.renderer.Copy(win.texture, nil, nil)
	win.renderer.Present()
}

func (win *Window) resize(w, h int) error {
	win.texture.Destroy()
	tex, err := win.renderer.CreateTexture(sdl.PIXELFORMAT_RGB24, sdl.TEXTUREACCESS_STREAMING, int32(w), int32(h))
	if err != nil {
		return err
	}
	win.texture = tex
	win.width, win.height = w, h
	win.screenW, win.screenH = uint16(w), uint16(h)
	win.window.SetSize(int32(w), int32(h))
	return nil
}

// Poll drains pending SDL events, translating mouse clicks/drags into
// touch injections and reporting whether the window should stay open.
func (win *Window) Poll() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			return false
		case *sdl.MouseButtonEvent:
			action := "down"
			if e.Type == sdl.MOUSEBUTTONUP {
				action = "up"
			}
			win.injectMouse(action, e.X, e.Y, sdlButtonMask(e.Button))
		case *sdl.MouseMotionEvent:
			if e.State != 0 {
				win.injectMouse("move", e.X, e.Y, sdlMotionButtonMask(e.State))
			}
		case *sdl.KeyboardEvent:
			HandleKey(win.queue, e)
		}
	}
	sdl.Delay(10)
	return true
}

func (win *Window) injectMouse(action string, x, y int32, buttons uint32) {
	win.mu.Lock()
	sw, sh := win.screenW, win.screenH
	win.mu.Unlock()

	input.HandleTouch(win.slots, win.queue, input.Event{
		Action:      action,
		RemoteID:    0,
		X:           x,
		Y:           y,
		ScreenW:     sw,
		ScreenH:     sh,
		Pressure:    1.0,
		Buttons:     buttons,
		PointerType: "mouse",
	})
}

func sdlButtonMask(button uint8) uint32 {
	switch button {
	case sdl.BUTTON_LEFT:
		return 1
	case sdl.BUTTON_RIGHT:
		return 2
	case sdl.BUTTON_MIDDLE:
		return 4
	default:
		return 0
	}
}

func sdlMotionButtonMask(state uint32) uint32 {
	var m uint32
	if state&sdl.ButtonLMask() != 0 {
		m |= 1
	}
	if state&sdl.ButtonRMask() != 0 {
		m |= 2
	}
	if state&sdl.ButtonMMask() != 0 {
		m |= 4
	}
	return m
}

// Close releases the SDL window/renderer/texture and shuts SDL down.
func (win *Window) Close() {
	win.mu.Lock()
	defer win.mu.Unlock()
	win.texture.Destroy()
	win.renderer.Destroy()
	win.window.Destroy()
	sdl.Quit()
}
