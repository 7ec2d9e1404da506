package memory

import (
	"encoding/binary"
	"time"
)

// rtc models the MBC3 real-time clock: five live registers {S,M,H,DL,DH}
// advanced lazily from wall-clock time on each access, plus a latched
// snapshot that is what the CPU actually observes once latched at least
// once (real MBC3 carts read garbage before the first latch; we instead
// read the live state, which is a harmless deviation since every ROM
// latches before reading).
type rtc struct {
	seconds, minutes, hours uint8
	days                    uint16 // 9-bit day counter; bit 8 lives in DH
	halt                    bool
	carry                   bool

	lastLatchWrite uint8
	latched        [5]uint8
	latchedValid   bool

	lastUpdate time.Time
}

func newRTC(now time.Time) *rtc {
	return &rtc{lastUpdate: now}
}

// advance folds elapsed wall-clock seconds into the live registers. It
// runs on every RTC access and save, so the clock never drifts more than
// one access behind real time.
func (r *rtc) advance(now time.Time) {
	if r.halt {
		r.lastUpdate = now
		return
	}

	delta := int64(now.Sub(r.lastUpdate) / time.Second)
	if delta <= 0 {
		return
	}
	r.lastUpdate = r.lastUpdate.Add(time.Duration(delta) * time.Second)

	total := int64(r.seconds) + int64(r.minutes)*60 + int64(r.hours)*3600 + int64(r.days)*86400 + delta

	r.seconds = uint8(total % 60)
	total /= 60
	r.minutes = uint8(total % 60)
	total /= 60
	r.hours = uint8(total % 24)
	total /= 24

	if total >= 512 {
		r.carry = true
		total %= 512
	}
	r.days = uint16(total)
}

// handleLatchWrite processes a write to the 0x6000-0x7FFF latch register,
// snapshotting the (advanced) live registers on a 0->1 transition.
func (r *rtc) handleLatchWrite(value uint8, now time.Time) {
	if r.lastLatchWrite == 0 && value == 1 {
		r.advance(now)
		r.latched = [5]uint8{r.seconds, r.minutes, r.hours, r.dl(), r.dh()}
		r.latchedValid = true
	}
	r.lastLatchWrite = value
}

func (r *rtc) dl() uint8 {
	return uint8(r.days)
}

func (r *rtc) dh() uint8 {
	v := uint8(r.days>>8) & 0x01
	if r.halt {
		v |= 0x40
	}
	if r.carry {
		v |= 0x80
	}
	return v
}

// read returns the register selected by the 0x08-0x0C select value
// (S,M,H,DL,DH in that order), from the latched snapshot if one has ever
// been taken, otherwise from live state.
func (r *rtc) read(selector uint8, now time.Time) uint8 {
	if r.latchedValid {
		return r.latched[selector-0x08]
	}

	r.advance(now)
	switch selector {
	case 0x08:
		return r.seconds
	case 0x09:
		return r.minutes
	case 0x0A:
		return r.hours
	case 0x0B:
		return r.dl()
	case 0x0C:
		return r.dh()
	}
	return 0xFF
}

// write updates the live register selected by the 0x08-0x0C select value.
func (r *rtc) write(selector uint8, value uint8, now time.Time) {
	r.advance(now)
	switch selector {
	case 0x08:
		r.seconds = value % 60
	case 0x09:
		r.minutes = value % 60
	case 0x0A:
		r.hours = value % 24
	case 0x0B:
		r.days = (r.days & 0x100) | uint16(value)
	case 0x0C:
		r.days = (r.days & 0xFF) | (uint16(value&0x01) << 8)
		r.halt = value&0x40 != 0
		r.carry = value&0x80 != 0
	}
}

// save encodes the RTC sidecar format: 5 live register bytes followed by
// an 8-byte little-endian Unix-seconds timestamp of the last update.
func (r *rtc) save(now time.Time) []byte {
	r.advance(now)
	buf := make([]byte, 13)
	buf[0] = r.seconds
	buf[1] = r.minutes
	buf[2] = r.hours
	buf[3] = r.dl()
	buf[4] = r.dh()
	binary.LittleEndian.PutUint64(buf[5:], uint64(r.lastUpdate.Unix()))
	return buf
}

// load restores RTC state from the sidecar format, then catches up any
// wall-clock time that elapsed while the machine was not running.
func (r *rtc) load(data []byte, now time.Time) error {
	r.seconds = data[0] % 60
	r.minutes = data[1] % 60
	r.hours = data[2] % 24
	days := uint16(data[3])
	r.halt = data[4]&0x40 != 0
	r.carry = data[4]&0x80 != 0
	days |= uint16(data[4]&0x01) << 8
	r.days = days

	sec := int64(binary.LittleEndian.Uint64(data[5:13]))
	r.lastUpdate = time.Unix(sec, 0)
	r.latchedValid = false
	r.advance(now)
	return nil
}
