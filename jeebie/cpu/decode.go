package cpu

// Decode peeks at the (possibly CB-prefixed) opcode at PC and returns its
// handler. It records the combined opcode value in currentOpcode but does
// not advance PC or charge any cycles — callers control fetch cost.
func Decode(c *CPU) Opcode {
	first := c.bus.Read(c.pc)

	if first == 0xCB {
		second := c.bus.Read(c.pc + 1)
		c.currentOpcode = 0xCB00 | uint16(second)
	} else {
		c.currentOpcode = uint16(first)
	}

	return decode(c.currentOpcode)
}

// Step advances the CPU by exactly one dispatched instruction, or by one
// halted M-cycle, per the algorithm in the interconnect's sequencer: IME
// is checked first (interrupt service takes priority over a waiting HALT
// wakeup), then HALT, then ordinary fetch/decode/execute.
func (c *CPU) Step() int {
	if c.stopped {
		// Locked on an illegal opcode: PC stays frozen but peripherals keep
		// ticking so the host loop still sees frames and can detect the hang.
		c.bus.Tick(4)
		c.cycles += 4
		return 4
	}

	imeWasEnabled := c.interruptsEnabled
	pending := c.handleInterrupts()

	// EI's IME activation is delayed until after the instruction following
	// it has been fetched/executed; resolving it here (after this step's
	// interrupt check, before this step's fetch) gives exactly one
	// instruction of delay.
	if c.eiPending {
		c.eiPending = false
		c.interruptsEnabled = true
	}

	if imeWasEnabled {
		if pending {
			return 20
		}
	} else if pending && c.halted {
		// IE&IF became true while halted with IME=0: wake without servicing.
		// The halt bug only arms when HALT executes with an interrupt
		// already pending, never on this later wake.
		c.halted = false
	}

	if c.halted {
		c.bus.Tick(4)
		c.cycles += 4
		return 4
	}

	handler := Decode(c)

	if c.haltBug {
		// The fetch that follows HALT (IME=0, interrupt pending) does not
		// advance PC: the byte just fetched will be executed again.
		c.haltBug = false
	} else if c.currentOpcode > 0xFF {
		c.pc += 2
	} else {
		c.pc++
	}

	cycles := handler(c)
	c.bus.Tick(cycles)
	c.cycles += uint64(cycles)

	return cycles
}
