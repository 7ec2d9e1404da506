package memory

import "github.com/dmgcore/jeebie/jeebie/bit"

// JoypadKey represents a key on the Gameboy joypad. The zero value is
// reserved as "no key" so callers mapping an external action to a key can
// use 0 as a sentinel for "not a joypad control".
type JoypadKey uint8

const (
	_ JoypadKey = iota
	JoypadRight
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad models the P1/JOYP register (0xFF00) and the two 4-bit button
// groups it multiplexes. Both groups are active-low: a 1 bit means
// released, 0 means pressed, matching real hardware's pull-up wiring.
type Joypad struct {
	buttons uint8 // bit0=A bit1=B bit2=Select bit3=Start
	dpad    uint8 // bit0=Right bit1=Left bit2=Up bit3=Down
	line    uint8 // raw bits 4-5 as last written, selecting which group Read reports

	// RequestInterrupt is called when a previously-released key transitions
	// to pressed, modeling the Joypad interrupt source. May be nil.
	RequestInterrupt func()
}

// NewJoypad creates a new Joypad instance with no keys pressed.
func NewJoypad() *Joypad {
	return &Joypad{
		buttons: 0x0F,
		dpad:    0x0F,
	}
}

// Read returns the current value of the P1 register: bits 6-7 always read
// high, bits 4-5 echo the last-selected group, and bits 0-3 report the
// selected group's state (both groups are ANDed together if both are
// selected, and the line reads all-released if neither is selected).
func (j *Joypad) Read() uint8 {
	result := uint8(0xC0) | j.line

	switch j.line & 0x30 {
	case 0x10:
		// bit 5 low selects the button group
		result |= j.buttons & 0x0F
	case 0x20:
		// bit 4 low selects the d-pad group
		result |= j.dpad & 0x0F
	case 0x00:
		result |= j.dpad & j.buttons & 0x0F
	default:
		result |= 0x0F
	}

	return result
}

// Write updates the line-select bits (4-5); the lower nibble is read-only
// from the CPU's perspective.
func (j *Joypad) Write(value uint8) {
	j.line = value & 0x30
}

// Press updates the joypad state when a key is pressed, requesting a
// Joypad interrupt on the release->pressed transition.
func (j *Joypad) Press(key JoypadKey) {
	before := j.isPressed(key)

	switch key {
	case JoypadRight:
		j.dpad = bit.Reset(0, j.dpad)
	case JoypadLeft:
		j.dpad = bit.Reset(1, j.dpad)
	case JoypadUp:
		j.dpad = bit.Reset(2, j.dpad)
	case JoypadDown:
		j.dpad = bit.Reset(3, j.dpad)
	case JoypadA:
		j.buttons = bit.Reset(0, j.buttons)
	case JoypadB:
		j.buttons = bit.Reset(1, j.buttons)
	case JoypadSelect:
		j.buttons = bit.Reset(2, j.buttons)
	case JoypadStart:
		j.buttons = bit.Reset(3, j.buttons)
	}

	if !before && j.isPressed(key) && j.RequestInterrupt != nil {
		j.RequestInterrupt()
	}
}

// Release updates the joypad state when a key is released.
func (j *Joypad) Release(key JoypadKey) {
	switch key {
	case JoypadRight:
		j.dpad = bit.Set(0, j.dpad)
	case JoypadLeft:
		j.dpad = bit.Set(1, j.dpad)
	case JoypadUp:
		j.dpad = bit.Set(2, j.dpad)
	case JoypadDown:
		j.dpad = bit.Set(3, j.dpad)
	case JoypadA:
		j.buttons = bit.Set(0, j.buttons)
	case JoypadB:
		j.buttons = bit.Set(1, j.buttons)
	case JoypadSelect:
		j.buttons = bit.Set(2, j.buttons)
	case JoypadStart:
		j.buttons = bit.Set(3, j.buttons)
	}
}

func (j *Joypad) isPressed(key JoypadKey) bool {
	switch key {
	case JoypadRight:
		return j.dpad&0x01 == 0
	case JoypadLeft:
		return j.dpad&0x02 == 0
	case JoypadUp:
		return j.dpad&0x04 == 0
	case JoypadDown:
		return j.dpad&0x08 == 0
	case JoypadA:
		return j.buttons&0x01 == 0
	case JoypadB:
		return j.buttons&0x02 == 0
	case JoypadSelect:
		return j.buttons&0x04 == 0
	case JoypadStart:
		return j.buttons&0x08 == 0
	}
	return false
}
