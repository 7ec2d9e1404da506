package memory

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dmgcore/jeebie/jeebie/addr"
	"github.com/dmgcore/jeebie/jeebie/audio"
	"github.com/dmgcore/jeebie/jeebie/bit"
	"github.com/dmgcore/jeebie/jeebie/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnused
	regionIO
	regionHRAM
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// MMU allows access to all memory mapped I/O and data/registers
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	memory    []byte
	APU       *audio.APU
	regionMap [256]memRegion

	joypad *Joypad
	dma    dma

	serial SerialPort
	timer  Timer
}

// New creates a new memory unity with default data, i.e. nothing cartridge loaded.
// Equivalent to turning on a Gameboy without a cartridge in.
func New() *MMU {
	mmu := &MMU{
		memory: make([]byte, 0x10000),
		cart:   NewCartridge(),
		APU:    audio.New(),
		joypad: NewJoypad(),
	}
	mmu.serial = serial.NewLogSink(func() { mmu.RequestInterrupt(addr.SerialInterrupt) })
	mmu.timer.TimerInterruptHandler = func() { mmu.RequestInterrupt(addr.TimerInterrupt) }
	mmu.joypad.RequestInterrupt = func() { mmu.RequestInterrupt(addr.JoypadInterrupt) }
	initRegionMap(mmu)

	// Post-boot-ROM I/O register state: no boot ROM runs, so the registers
	// start at the values the DMG boot ROM leaves behind.
	mmu.memory[addr.LCDC] = 0x91
	mmu.memory[addr.STAT] = 0x02
	mmu.memory[addr.BGP] = 0xFC
	mmu.memory[addr.OBP0] = 0xFF
	mmu.memory[addr.OBP1] = 0xFF
	mmu.timer.SetSeed(0xABCC)

	return mmu
}

// Tick advances all memory-side peripherals (timer, serial, DMA) by cycles
// T-cycles. cycles is always a multiple of 4, since the CPU only ever
// charges whole M-cycles.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
	for range cycles / 4 {
		m.dma.tick(m)
	}
}

// SetTimerSeed initializes the internal timer divider seed and DIV register.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// Joypad returns the MMU's joypad controller, used by the input layer to
// translate external actions into button presses.
func (m *MMU) Joypad() *Joypad {
	return m.joypad
}

// NewWithCartridge creates a new memory unit with the provided cartridge data loaded.
// Equivalent to turning on a Gameboy with a cartridge in.
func NewWithCartridge(cart *Cartridge) *MMU {
	mmu := New()
	mmu.cart = cart

	switch cart.kind {
	case MBCKindNone:
		mmu.mbc = NewNoMBC(cart.data)
	case MBCKindMBC1:
		mmu.mbc = NewMBC1(cart.data, cart.hasBattery, cart.ramBankCount)
	case MBCKindMBC2:
		mmu.mbc = NewMBC2(cart.data, cart.hasBattery)
	case MBCKindMBC3:
		mmu.mbc = NewMBC3(cart.data, cart.hasBattery, cart.hasRTC, cart.ramBankCount)
	case MBCKindMBC5:
		mmu.mbc = NewMBC5(cart.data, cart.hasBattery, cart.hasRumble, cart.ramBankCount)
	default:
		panic(fmt.Sprintf("unsupported MBC kind: %d", cart.kind))
	}

	return mmu
}

// Cartridge returns the currently loaded cartridge.
func (m *MMU) Cartridge() *Cartridge {
	return m.cart
}

// NeedsSave reports whether the loaded cartridge has unsaved battery-backed
// RAM changes.
func (m *MMU) NeedsSave() bool {
	if saver, ok := m.mbc.(saveableMBC); ok {
		return saver.NeedsSave()
	}
	return false
}

// SaveRAM returns a copy of the cartridge's battery-backed RAM, or nil if
// the cartridge has none.
func (m *MMU) SaveRAM() []byte {
	if saver, ok := m.mbc.(saveableMBC); ok {
		return saver.Save()
	}
	return nil
}

// LoadSaveRAM restores battery-backed RAM from a previously-saved blob. It
// refuses mismatched sizes, leaving RAM zeroed rather than silently
// truncating or corrupting banks.
func (m *MMU) LoadSaveRAM(data []byte) error {
	saver, ok := m.mbc.(saveableMBC)
	if !ok {
		return fmt.Errorf("cartridge has no battery-backed RAM")
	}
	return saver.LoadSave(data)
}

// HasRTC reports whether the loaded cartridge carries a real-time clock.
func (m *MMU) HasRTC() bool {
	_, ok := m.mbc.(rtcBackedMBC)
	return ok
}

// SaveRTC returns the RTC sidecar blob, or nil if the cartridge has no RTC.
func (m *MMU) SaveRTC() []byte {
	if clock, ok := m.mbc.(rtcBackedMBC); ok {
		return clock.SaveRTC()
	}
	return nil
}

// LoadRTC restores RTC state from a previously-saved sidecar, catching up
// wall-clock time that elapsed since it was written.
func (m *MMU) LoadRTC(data []byte, now time.Time) error {
	clock, ok := m.mbc.(rtcBackedMBC)
	if !ok {
		return fmt.Errorf("cartridge has no RTC")
	}
	return clock.LoadRTC(data, now)
}

func initRegionMap(m *MMU) {
	// ROM: 0x0000-0x7FFF
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	// VRAM: 0x8000-0x9FFF
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	// External RAM: 0xA000-0xBFFF
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	// Work RAM: 0xC000-0xDFFF
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	// Echo RAM: 0xE000-0xFDFF
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	// OAM: 0xFE00-0xFE9F, Unused: 0xFEA0-0xFEFF
	m.regionMap[0xFE] = regionOAM
	// IO + HRAM: 0xFF00-0xFFFF
	m.regionMap[0xFF] = regionIO
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	interruptFlags := m.Read(addr.IF)

	var bitPos uint8
	switch interrupt {
	case addr.VBlankInterrupt:
		bitPos = 0
	case addr.LCDSTATInterrupt:
		bitPos = 1
	case addr.TimerInterrupt:
		bitPos = 2
	case addr.SerialInterrupt:
		bitPos = 3
	case addr.JoypadInterrupt:
		bitPos = 4
	default:
		panic(fmt.Sprintf("Unknown interrupt: 0x%02X", uint8(interrupt)))
	}

	newFlags := bit.Set(bitPos, interruptFlags)

	m.Write(addr.IF, newFlags)
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	value := m.Read(address)
	if set {
		value = bit.Set(index, value)
	} else {
		value = bit.Reset(index, value)
	}
	m.Write(address, value)
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.mbc == nil {
			slog.Warn("Reading from ROM/external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return 0xFF
		}
		return m.mbc.Read(address)
	case regionVRAM, regionWRAM:
		return m.memory[address]
	case regionEcho:
		// Echo RAM is unwired here: reads come back empty, writes vanish.
		return 0x00
	case regionOAM:
		if address >= 0xFEA0 {
			// Unusable region above OAM.
			return 0xFF
		}
		if m.dma.isActive() {
			return 0xFF
		}
		return m.memory[address]
	case regionIO:
		if address == addr.P1 {
			return m.joypad.Read()
		}
		if address == addr.SB || address == addr.SC {
			return m.serial.Read(address)
		}
		if address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC {
			return m.timer.Read(address)
		}
		if address >= 0xFF10 && address <= 0xFF3F {
			return m.APU.ReadRegister(address)
		}
		// Just in case, we always read the upper 3 bits of IF as 1.
		// They're not used, but have caused me some headaches when checking for
		// when the halt bug triggers (IF != 0).
		if address == addr.IF {
			return m.memory[address] | 0xE0
		}
		if address >= 0xFF80 {
			// HRAM
			return m.memory[address]
		}
		// Other IO registers
		return m.memory[address]
	default:
		panic(fmt.Sprintf("Attempted read at unmapped address: 0x%X", address))
	}
}

// readForDMA sources a byte for an in-flight OAM DMA transfer. It mirrors
// Read but does not apply the OAM-blocked-during-DMA guard, since that
// guard exists to shield OAM from the CPU, not from the transfer itself.
func (m *MMU) readForDMA(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.mbc == nil {
			return 0xFF
		}
		return m.mbc.Read(address)
	case regionOAM:
		return m.memory[address]
	default:
		return m.Read(address)
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM:
		if m.mbc == nil {
			slog.Warn("Writing to ROM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mbc.Write(address, value)
	case regionVRAM:
		m.memory[address] = value
	case regionExtRAM:
		if m.mbc == nil {
			slog.Warn("Writing to external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mbc.Write(address, value)
	case regionWRAM:
		m.memory[address] = value
	case regionEcho:
		// Writes to echo RAM are dropped.
	case regionOAM:
		if address >= 0xFEA0 {
			return
		}
		if m.dma.isActive() {
			return
		}
		m.memory[address] = value
	case regionIO:
		if address == addr.P1 {
			m.joypad.Write(value)
			return
		}
		if address == addr.SB || address == addr.SC {
			m.serial.Write(address, value)
			return
		}
		if address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC {
			m.timer.Write(address, value)
			return
		}
		if address >= 0xFF10 && address <= 0xFF3F {
			m.APU.WriteRegister(address, value)
			return
		}
		if address == addr.IF {
			// This goddamn register has its upper 3 bits always set as 1...
			// Beware if you're trying to match halt bug behavior.
			m.memory[address] = value | 0xE0
			return
		}
		if address == addr.DMA {
			m.dma.start(value)
			m.memory[address] = value
			return
		}
		if address >= 0xFF80 {
			// HRAM
			m.memory[address] = value
			return
		}
		// Other IO registers
		m.memory[address] = value
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%X", address))
	}
}
