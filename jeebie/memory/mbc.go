package memory

import "time"

// MBC represents a Memory Bank Controller interface that all MBC types must implement
type MBC interface {
	// Read reads a byte from the specified address
	Read(addr uint16) uint8
	// Write writes a byte to the specified address, returns the written value
	Write(addr uint16, value uint8) uint8
}

// saveableMBC is implemented by MBC variants with battery-backed RAM. It is
// a separate, optional interface rather than part of MBC since ROM-only
// cartridges have nothing to persist.
type saveableMBC interface {
	NeedsSave() bool
	Save() []byte
	LoadSave(data []byte) error
}

// rtcBackedMBC is implemented by the one MBC variant with a real-time
// clock (MBC3).
type rtcBackedMBC interface {
	SaveRTC() []byte
	LoadRTC(data []byte, now time.Time) error
}

// NoMBC represents cartridges with no memory banking capabilities.
// These are typically smaller games (32KB or less) that fit entirely in the
// base memory region. The cartridge ROM is directly mapped to 0x0000-0x7FFF
// and cannot be banked/switched. These cartridges cannot have external RAM.
type NoMBC struct {
	rom []uint8 // ROM data
}

// NewNoMBC creates a new NoMBC controller
func NewNoMBC(romData []uint8) *NoMBC {
	return &NoMBC{
		rom: romData,
	}
}

func (m *NoMBC) Read(addr uint16) uint8 {
	// Direct ROM mapping; anything past the ROM (including the external
	// RAM window, which these carts don't have) reads open-bus.
	if int(addr) >= len(m.rom) {
		return 0xFF
	}
	return m.rom[addr]
}

func (m *NoMBC) Write(addr uint16, value uint8) uint8 {
	// NoMBC doesn't support writing to ROM
	return 0
}

// MBC1 is the first and most common MBC chip. This implementation provides:
// - Up to 512KB ROM (32 16KB banks), selected by the 5-bit bank1 register only
// - Up to 32KB RAM (4 8KB banks)
// - Bank 0 always mapped to 0x0000-0x3FFF
// - Switchable ROM bank at 0x4000-0x7FFF
// - Optional RAM banking at 0xA000-0xBFFF
// - Two banking modes, which affect RAM only:
//   - Mode 0: RAM bank 0 is always mapped
//   - Mode 1: bank2 selects the RAM bank
//
// - Optional battery backup for RAM persistence
//
// bank2 takes no part in ROM addressing, so banks above 31 of larger ROMs
// are not reachable.
type MBC1 struct {
	rom          []uint8
	ram          []uint8
	bank1        uint8 // 5-bit ROM bank select
	bank2        uint8 // 2-bit RAM bank select (used in banking mode 1)
	ramEnabled   bool
	bankingMode  uint8
	hasBattery   bool
	ramBankCount uint8
	dirty        bool
}

// NewMBC1 creates a new MBC1 controller
func NewMBC1(romData []uint8, hasBattery bool, ramBankCount uint8) *MBC1 {
	ramSize := uint32(ramBankCount) * 0x2000 // 8KB per RAM bank
	return &MBC1{
		rom:          romData,
		ram:          make([]uint8, ramSize),
		bank1:        1,
		hasBattery:   hasBattery,
		ramBankCount: ramBankCount,
	}
}

func (m *MBC1) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		// Bank 0 is always mapped here, regardless of bank1/bank2.
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		offset := uint32(m.bank1) * 0x4000
		if len(m.rom) > 0 {
			offset %= uint32(len(m.rom))
		}
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		bank := uint8(0)
		if m.bankingMode != 0 {
			bank = m.bank2
		}
		offset := uint32(bank)*0x2000 + uint32(addr-0xA000)
		return m.ram[offset%uint32(len(m.ram))]
	default:
		return 0xFF
	}
}

func (m *MBC1) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr >= 0x2000 && addr <= 0x3FFF:
		bank := value & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.bank1 = bank
	case addr >= 0x4000 && addr <= 0x5FFF:
		bank2 := value & 0x03
		if m.ramBankCount > 0 && uint8(bank2) > m.ramBankCount-1 {
			bank2 = m.ramBankCount - 1
		}
		m.bank2 = bank2
	case addr >= 0x6000 && addr <= 0x7FFF:
		m.bankingMode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		bank := uint8(0)
		if m.bankingMode != 0 {
			bank = m.bank2
		}
		offset := uint32(bank)*0x2000 + uint32(addr-0xA000)
		m.ram[offset%uint32(len(m.ram))] = value
		if m.hasBattery {
			m.dirty = true
		}
	}
	return value
}

func (m *MBC1) NeedsSave() bool { return m.hasBattery && m.dirty }

// Save returns the current RAM contents and clears dirty.
func (m *MBC1) Save() []byte {
	m.dirty = false
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC1) LoadSave(data []byte) error {
	if len(data) != len(m.ram) {
		return errSaveSizeMismatch(len(data), len(m.ram))
	}
	copy(m.ram, data)
	return nil
}

// MBC2 is a simpler MBC chip with built-in RAM. Features include:
// - Supports up to 256KB ROM (16 16KB banks)
// - Built-in 512x4 bits RAM (not external)
// - ROM banking similar to MBC1 but simpler
// - The least significant bit of the upper address byte selects between
//   ROM banking and RAM access
// - RAM is limited to 4-bit values (upper 4 bits are ignored)
// - Optional battery backup for the built-in RAM
type MBC2 struct {
	rom        []uint8
	ram        [512]uint8
	romBank    uint8
	ramEnabled bool
	hasBattery bool
	dirty      bool
}

// NewMBC2 creates a new MBC2 controller
func NewMBC2(romData []uint8, hasBattery bool) *MBC2 {
	return &MBC2{
		rom:        romData,
		romBank:    1,
		hasBattery: hasBattery,
	}
}

func (m *MBC2) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		offset := uint32(m.romBank) * 0x4000
		if len(m.rom) > 0 {
			offset %= uint32(len(m.rom))
		}
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.ram[addr&0x01FF] & 0x0F
	default:
		return 0xFF
	}
}

func (m *MBC2) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x3FFF:
		if addr&0x0100 == 0 {
			m.ramEnabled = (value & 0x0F) == 0x0A
		} else {
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		m.ram[addr&0x01FF] = value & 0x0F
		if m.hasBattery {
			m.dirty = true
		}
	}
	return value
}

func (m *MBC2) NeedsSave() bool { return m.hasBattery && m.dirty }

func (m *MBC2) Save() []byte {
	m.dirty = false
	out := make([]byte, len(m.ram))
	copy(out, m.ram[:])
	return out
}

func (m *MBC2) LoadSave(data []byte) error {
	if len(data) != len(m.ram) {
		return errSaveSizeMismatch(len(data), len(m.ram))
	}
	copy(m.ram[:], data)
	return nil
}

// MBC3 is an advanced MBC chip with RTC support. Features include:
// - Supports up to 2MB ROM (128 16KB banks)
// - Up to 32KB RAM (4 8KB banks)
// - Real-Time Clock (RTC) functionality
// - RTC has 5 registers: Seconds, Minutes, Hours, Days (lower), Days (upper)/Flags
// - Similar banking to MBC1 but with different register layout
// - RAM and RTC can be battery backed
// - Used in games that needed to track real time (e.g. Pokémon Gold/Silver)
type MBC3 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint8
	selector   uint8 // last value written to 0x4000-0x5FFF
	ramEnabled bool
	hasBattery bool
	hasRTC     bool
	dirty      bool
	clock      *rtc
}

// NewMBC3 creates a new MBC3 controller
func NewMBC3(romData []uint8, hasBattery bool, hasRTC bool, ramBankCount uint8) *MBC3 {
	ramSize := uint32(ramBankCount) * 0x2000
	m := &MBC3{
		rom:        romData,
		ram:        make([]uint8, ramSize),
		romBank:    1,
		hasBattery: hasBattery,
		hasRTC:     hasRTC,
	}
	if hasRTC {
		m.clock = newRTC(time.Now())
	}
	return m
}

func (m *MBC3) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		offset := uint32(m.romBank) * 0x4000
		if len(m.rom) > 0 {
			offset %= uint32(len(m.rom))
		}
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.selector >= 0x08 && m.selector <= 0x0C {
			if m.clock == nil {
				return 0xFF
			}
			return m.clock.read(m.selector, time.Now())
		}
		if len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.selector)*0x2000 + uint32(addr-0xA000)
		return m.ram[offset%uint32(len(m.ram))]
	default:
		return 0xFF
	}
}

func (m *MBC3) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr >= 0x2000 && addr <= 0x3FFF:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr >= 0x4000 && addr <= 0x5FFF:
		m.selector = value
	case addr >= 0x6000 && addr <= 0x7FFF:
		if m.clock != nil {
			m.clock.handleLatchWrite(value&0x01, time.Now())
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.selector >= 0x08 && m.selector <= 0x0C {
			if m.clock != nil {
				m.clock.write(m.selector, value, time.Now())
				if m.hasBattery {
					m.dirty = true
				}
			}
			return value
		}
		if len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.selector)*0x2000 + uint32(addr-0xA000)
		m.ram[offset%uint32(len(m.ram))] = value
		if m.hasBattery {
			m.dirty = true
		}
	}
	return value
}

func (m *MBC3) NeedsSave() bool { return m.hasBattery && m.dirty }

func (m *MBC3) Save() []byte {
	m.dirty = false
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) LoadSave(data []byte) error {
	if len(data) != len(m.ram) {
		return errSaveSizeMismatch(len(data), len(m.ram))
	}
	copy(m.ram, data)
	return nil
}

func (m *MBC3) SaveRTC() []byte {
	if m.clock == nil {
		return nil
	}
	return m.clock.save(time.Now())
}

func (m *MBC3) LoadRTC(data []byte, now time.Time) error {
	if m.clock == nil {
		return nil
	}
	if len(data) != 13 {
		return errSaveSizeMismatch(len(data), 13)
	}
	return m.clock.load(data, now)
}

// MBC5 is the most advanced MBC chip. Features include:
// - Supports up to 8MB ROM (512 16KB banks)
// - Up to 128KB RAM (16 8KB banks)
// - Simple ROM/RAM banking with no quirks (unlike MBC1)
// - 9-bit ROM bank number (allows all 512 banks to be directly accessed)
// - Optional rumble motor support
// - Used in Game Boy Color games that needed more ROM/RAM
// - Backwards compatible with Game Boy
//
// MBC5 reuses the same banked-RAM persistence shape as MBC1/MBC3, so
// supporting it costs little and lets the loader accept a wider range of
// real cartridges.
type MBC5 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint16 // MBC5 supports up to 512 ROM banks
	ramBank    uint8
	ramEnabled bool
	hasRumble  bool
	hasBattery bool
	dirty      bool
}

// NewMBC5 creates a new MBC5 controller
func NewMBC5(romData []uint8, hasBattery bool, hasRumble bool, ramBankCount uint8) *MBC5 {
	ramSize := uint32(ramBankCount) * 0x2000
	return &MBC5{
		rom:        romData,
		ram:        make([]uint8, ramSize),
		romBank:    1,
		hasRumble:  hasRumble,
		hasBattery: hasBattery,
	}
}

func (m *MBC5) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		offset := uint32(m.romBank) * 0x4000
		if len(m.rom) > 0 {
			offset %= uint32(len(m.rom))
		}
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank)*0x2000 + uint32(addr-0xA000)
		return m.ram[offset%uint32(len(m.ram))]
	default:
		return 0xFF
	}
}

func (m *MBC5) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr >= 0x2000 && addr <= 0x2FFF:
		m.romBank = (m.romBank & 0x100) | uint16(value)
	case addr >= 0x3000 && addr <= 0x3FFF:
		m.romBank = (m.romBank & 0x0FF) | (uint16(value&0x01) << 8)
	case addr >= 0x4000 && addr <= 0x5FFF:
		m.ramBank = value & 0x0F
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank)*0x2000 + uint32(addr-0xA000)
		m.ram[offset%uint32(len(m.ram))] = value
		if m.hasBattery {
			m.dirty = true
		}
	}
	return value
}

func (m *MBC5) NeedsSave() bool { return m.hasBattery && m.dirty }

func (m *MBC5) Save() []byte {
	m.dirty = false
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC5) LoadSave(data []byte) error {
	if len(data) != len(m.ram) {
		return errSaveSizeMismatch(len(data), len(m.ram))
	}
	copy(m.ram, data)
	return nil
}
