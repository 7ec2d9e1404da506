package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/dmgcore/jeebie/jeebie/addr"
)

func TestDMACopiesIntoOAM(t *testing.T) {
	mmu := New()

	for i := uint16(0); i < 0xA0; i++ {
		mmu.Write(0xC000+i, byte(i)^0x5A)
	}

	mmu.Write(addr.DMA, 0xC0)
	assert.True(t, mmu.dma.isActive())

	// 2 M-cycles of start delay plus one M-cycle per byte.
	for range 162 {
		mmu.Tick(4)
	}

	assert.False(t, mmu.dma.isActive())
	for i := uint16(0); i < 0xA0; i++ {
		assert.Equal(t, byte(i)^0x5A, mmu.Read(0xFE00+i))
	}
}

func TestDMABlocksOAMWhileActive(t *testing.T) {
	mmu := New()
	mmu.Write(0xFE00, 0x77)
	assert.Equal(t, uint8(0x77), mmu.Read(0xFE00))

	mmu.Write(addr.DMA, 0xC0)

	assert.Equal(t, uint8(0xFF), mmu.Read(0xFE00), "OAM reads 0xFF during DMA")
	mmu.Write(0xFE01, 0x33)

	for range 162 {
		mmu.Tick(4)
	}

	assert.NotEqual(t, uint8(0x33), mmu.Read(0xFE01), "OAM writes are dropped during DMA")
}

func TestDMARestartLatchesNewSource(t *testing.T) {
	mmu := New()
	mmu.Write(0xC000, 0x11)
	mmu.Write(0xD000, 0x22)

	mmu.Write(addr.DMA, 0xC0)
	mmu.Tick(4)
	mmu.Write(addr.DMA, 0xD0) // restart from a different page

	for range 162 {
		mmu.Tick(4)
	}

	assert.Equal(t, uint8(0x22), mmu.Read(0xFE00))
}
