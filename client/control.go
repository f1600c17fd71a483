package client

import (
	"fmt"

	"github.com/cowby123/scrcpy-go/internal/protocol"
	"github.com/cowby123/scrcpy-go/internal/queue"
)

// Android key event codes used by the key-press helpers below. Lifted from
// android/keycodes.h, not an ad-hoc numbering — see the preview package's
// keyboard map for the same convention applied to SDL key events.
const (
	keycodeHome      = 3
	keycodeBack      = 4
	keycodePower     = 26
	keycodeMenu      = 82
	keycodeAppSwitch = 187
	keycodeDPadUp    = 19
	keycodeDPadDown  = 20
	keycodeDPadLeft  = 21
	keycodeDPadRight = 22
)

func (c *Connection) pressKey(keycode uint32) {
	down := protocol.EncodeInjectKeycode(protocol.KeyActionDown, keycode, 0, 0)
	up := protocol.EncodeInjectKeycode(protocol.KeyActionUp, keycode, 0, 0)
	c.controlQueue.Put(queue.Message{Kind: protocol.TypeInjectKeycode, Payload: down, Droppable: true})
	c.controlQueue.Put(queue.Message{Kind: protocol.TypeInjectKeycode, Payload: up, Droppable: true})
}

func (c *Connection) Home()      { c.pressKey(keycodeHome) }
func (c *Connection) Menu()      { c.pressKey(keycodeMenu) }
func (c *Connection) AppSwitch() { c.pressKey(keycodeAppSwitch) }
func (c *Connection) Power()     { c.pressKey(keycodePower) }

// Back sends BACK_OR_SCREEN_ON, which wakes the screen if it is off and
// otherwise behaves like the back key.
func (c *Connection) Back() {
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeBackOrScreenOn,
		Payload:   protocol.EncodeBackOrScreenOn(protocol.KeyActionDown),
		Droppable: true,
	})
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeBackOrScreenOn,
		Payload:   protocol.EncodeBackOrScreenOn(protocol.KeyActionUp),
		Droppable: true,
	})
}

// DPad presses one of the four directional keys.
func (c *Connection) DPad(direction string) error {
	switch direction {
	case "up":
		c.pressKey(keycodeDPadUp)
	case "down":
		c.pressKey(keycodeDPadDown)
	case "left":
		c.pressKey(keycodeDPadLeft)
	case "right":
		c.pressKey(keycodeDPadRight)
	default:
		return fmt.Errorf("client: unknown dpad direction %q", direction)
	}
	return nil
}

// SetDisplayPower turns the device's physical display on/off. Non-droppable:
// losing this message would leave the display in the wrong state with no
// way for the caller to tell.
func (c *Connection) SetDisplayPower(on bool) {
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeSetDisplayPower,
		Payload:   protocol.EncodeSetDisplayPower(on),
		Droppable: false,
	})
}

func (c *Connection) RotateDevice() {
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeRotateDevice,
		Payload:   protocol.EncodeEmpty(protocol.TypeRotateDevice),
		Droppable: true,
	})
}

func (c *Connection) ResetVideo() {
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeResetVideo,
		Payload:   protocol.EncodeEmpty(protocol.TypeResetVideo),
		Droppable: true,
	})
}

func (c *Connection) ExpandNotificationPanel() {
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeExpandNotificationPanel,
		Payload:   protocol.EncodeEmpty(protocol.TypeExpandNotificationPanel),
		Droppable: true,
	})
}

func (c *Connection) ExpandSettingsPanel() {
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeExpandSettingsPanel,
		Payload:   protocol.EncodeEmpty(protocol.TypeExpandSettingsPanel),
		Droppable: true,
	})
}

func (c *Connection) CollapsePanels() {
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeCollapsePanels,
		Payload:   protocol.EncodeEmpty(protocol.TypeCollapsePanels),
		Droppable: true,
	})
}

// StartApp launches an app by package/activity name. Non-droppable: a
// dropped launch request silently does nothing from the caller's point of
// view, unlike a dropped touch move.
func (c *Connection) StartApp(name string) {
	c.controlQueue.Put(queue.Message{
		Kind:      protocol.TypeStartApp,
		Payload:   protocol.EncodeStartApp(name),
		Droppable: false,
	})
}
