package memory

// MBCKind identifies which memory bank controller variant a cartridge
// uses, decoded from the header's cart-type byte (0x147).
type MBCKind uint8

const (
	MBCKindNone MBCKind = iota
	MBCKindMBC1
	MBCKindMBC2
	MBCKindMBC3
	MBCKindMBC5
)

// Cartridge holds a parsed ROM image and the header metadata needed to
// construct the right MBC for it.
type Cartridge struct {
	data []uint8

	title          string
	licensee       string
	kind           MBCKind
	hasBattery     bool
	hasRTC         bool
	hasRumble      bool
	ramBankCount   uint8
	romBankCount   uint16
	version        uint8
	headerChecksum uint8
	globalChecksum uint16
}

// NewCartridge returns an empty cartridge placeholder, used when the
// machine is constructed with nothing inserted.
func NewCartridge() *Cartridge {
	return &Cartridge{kind: MBCKindNone}
}

// Header offsets, per the standard DMG cartridge header layout.
const (
	headerTitleStart    = 0x0134
	headerTitleEnd      = 0x0143
	headerNewLicStart   = 0x0144
	headerNewLicEnd     = 0x0145
	headerCGBFlag       = 0x0143
	headerCartType      = 0x0147
	headerROMSize       = 0x0148
	headerRAMSize       = 0x0149
	headerVersion       = 0x014C
	headerChecksumAddr  = 0x014D
	headerGlobalCksHigh = 0x014E
	headerMinimumSize   = 0x0150
)

// NewCartridgeWithData parses a raw ROM image into a Cartridge, validating
// the header checksum and decoding the MBC type, battery/RTC/rumble flags
// and RAM bank count from the cart-type and RAM-size bytes.
func NewCartridgeWithData(data []uint8) (*Cartridge, error) {
	if len(data) < headerMinimumSize {
		return nil, &InvalidCartridgeError{Reason: "file too small to contain a header"}
	}

	if err := validateHeaderChecksum(data); err != nil {
		return nil, err
	}

	cart := &Cartridge{data: data}

	titleEnd := headerTitleEnd
	if data[headerCGBFlag] == 0x80 || data[headerCGBFlag] == 0xC0 {
		titleEnd--
	}
	cart.title = cleanGameboyTitle(data[headerTitleStart : titleEnd+1])
	cart.licensee = string(data[headerNewLicStart : headerNewLicEnd+1])
	cart.version = data[headerVersion]
	cart.headerChecksum = data[headerChecksumAddr]
	cart.globalChecksum = uint16(data[headerGlobalCksHigh])<<8 | uint16(data[headerGlobalCksHigh+1])
	cart.romBankCount = romBankCountFromCode(data[headerROMSize])
	cart.ramBankCount = ramBankCountFromCode(data[headerRAMSize])

	kind, hasBattery, hasRTC, hasRumble, err := decodeCartType(data[headerCartType])
	if err != nil {
		return nil, err
	}
	cart.kind = kind
	cart.hasBattery = hasBattery
	cart.hasRTC = hasRTC
	cart.hasRumble = hasRumble

	// MBC2 has a fixed 512x4-bit built-in RAM, not derived from the header.
	if kind == MBCKindMBC2 {
		cart.ramBankCount = 0
	}

	return cart, nil
}

// validateHeaderChecksum implements sum = 0; for i in 0x134..=0x14C:
// sum = sum - data[i] - 1; reject if (sum & 0xFF) != data[0x14D].
func validateHeaderChecksum(data []uint8) error {
	var sum uint8
	for i := headerTitleStart; i <= headerVersion; i++ {
		sum = sum - data[i] - 1
	}
	if sum != data[headerChecksumAddr] {
		return &InvalidCartridgeError{Reason: "header checksum mismatch"}
	}
	return nil
}

func romBankCountFromCode(code uint8) uint16 {
	if code > 0x08 {
		return 2
	}
	return 2 << code
}

func ramBankCountFromCode(code uint8) uint8 {
	switch code {
	case 0:
		return 0
	case 1:
		return 0 // unofficial 2KiB code; treated as no usable banks
	case 2:
		return 1
	case 3:
		return 4
	case 4:
		return 16
	case 5:
		return 8
	default:
		return 0
	}
}

// decodeCartType maps the header's cart-type byte to an MBC kind plus the
// battery/RTC/rumble flags that byte also encodes.
func decodeCartType(code uint8) (kind MBCKind, hasBattery, hasRTC, hasRumble bool, err error) {
	switch code {
	case 0x00, 0x08:
		return MBCKindNone, false, false, false, nil
	case 0x09:
		return MBCKindNone, true, false, false, nil
	case 0x01, 0x02:
		return MBCKindMBC1, false, false, false, nil
	case 0x03:
		return MBCKindMBC1, true, false, false, nil
	case 0x05:
		return MBCKindMBC2, false, false, false, nil
	case 0x06:
		return MBCKindMBC2, true, false, false, nil
	case 0x0F, 0x10:
		return MBCKindMBC3, true, true, false, nil
	case 0x11, 0x12:
		return MBCKindMBC3, false, false, false, nil
	case 0x13:
		return MBCKindMBC3, true, false, false, nil
	case 0x19, 0x1A:
		return MBCKindMBC5, false, false, false, nil
	case 0x1B:
		return MBCKindMBC5, true, false, false, nil
	case 0x1C, 0x1D:
		return MBCKindMBC5, false, false, true, nil
	case 0x1E:
		return MBCKindMBC5, true, false, true, nil
	default:
		return 0, false, false, false, &UnsupportedMBCError{CartType: code}
	}
}

// Title returns the cartridge's cleaned-up header title.
func (c *Cartridge) Title() string { return c.title }

// Kind returns the cartridge's decoded MBC variant.
func (c *Cartridge) Kind() MBCKind { return c.kind }

// RAMBankSize returns the number of bytes the cartridge's battery-backed
// save blob should contain, or 0 if it has none.
func (c *Cartridge) RAMBankSize() int {
	if c.kind == MBCKindMBC2 {
		return 512
	}
	return int(c.ramBankCount) * 0x2000
}

// HasRTC reports whether the cartridge carries a real-time clock.
func (c *Cartridge) HasRTC() bool { return c.hasRTC }
