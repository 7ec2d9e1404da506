package cpu

import "github.com/dmgcore/jeebie/jeebie/addr"

// interruptVectors lists the 5 DMG interrupt sources in priority order,
// each paired with its IF/IE bit position and service vector.
var interruptVectors = []struct {
	bit  uint8
	addr uint16
}{
	{0, 0x40}, // VBlank
	{1, 0x48}, // LCD STAT
	{2, 0x50}, // Timer
	{3, 0x58}, // Serial
	{4, 0x60}, // Joypad
}

// handleInterrupts services the highest-priority pending, enabled interrupt
// if IME is set. It returns whether any interrupt is pending (IE & IF & 0x1F
// != 0) regardless of IME, since that also determines HALT wakeup.
func (c *CPU) handleInterrupts() bool {
	ie := c.bus.Read(addr.IE)
	iflag := c.bus.Read(addr.IF)
	pending := ie & iflag & 0x1F

	if pending == 0 {
		return false
	}

	if !c.interruptsEnabled {
		return true
	}

	for _, v := range interruptVectors {
		if pending&(1<<v.bit) == 0 {
			continue
		}

		c.interruptsEnabled = false
		c.eiPending = false
		c.halted = false

		c.bus.Write(addr.IF, iflag&^(1<<v.bit))
		c.pushStack(c.pc)
		c.pc = v.addr

		c.bus.Tick(20)
		c.cycles += 20
		return true
	}

	return true
}
