package preview

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"
)

func TestSDLButtonMask(t *testing.T) {
	cases := []struct {
		button uint8
		want   uint32
	}{
		{sdl.BUTTON_LEFT, 1},
		{sdl.BUTTON_RIGHT, 2},
		{sdl.BUTTON_MIDDLE, 4},
		{99, 0},
	}
	for _, c := range cases {
		if got := sdlButtonMask(c.button); got != c.want {
			t.Errorf("sdlButtonMask(%d) = %d, want %d", c.button, got, c.want)
		}
	}
}

func TestSDLMotionButtonMaskCombinesBits(t *testing.T) {
	state := sdl.ButtonLMask() | sdl.ButtonRMask()
	got := sdlMotionButtonMask(state)
	if got != 1|2 {
		t.Errorf("expected combined mask 3, got %d", got)
	}

	if got := sdlMotionButtonMask(0); got != 0 {
		t.Errorf("expected 0 for no buttons held, got %d", got)
	}

	mAll := sdl.ButtonLMask() | sdl.ButtonRMask() | sdl.ButtonMMask()
	if got := sdlMotionButtonMask(mAll); got != 1|2|4 {
		t.Errorf("expected all three bits set, got %d", got)
	}
}
