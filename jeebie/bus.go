package jeebie

import (
	"github.com/dmgcore/jeebie/jeebie/addr"
	"github.com/dmgcore/jeebie/jeebie/memory"
	"github.com/dmgcore/jeebie/jeebie/video"
)

// Bus is the concrete cpu.Bus implementation wiring the CPU to the MMU,
// the GPU and the APU. It exists so a single Tick call can advance every
// peripheral in lockstep, which the cpu.Bus interface needs but a bare
// *memory.MMU alone cannot provide (MMU.Tick only advances the timer,
// serial port and DMA engine).
type Bus struct {
	MMU *memory.MMU
	GPU *video.GPU
}

// NewBus wires a Bus around an already-constructed MMU, creating its GPU.
func NewBus(mmu *memory.MMU) *Bus {
	return &Bus{
		MMU: mmu,
		GPU: video.NewGpu(mmu),
	}
}

func (b *Bus) Read(address uint16) byte {
	return b.MMU.Read(address)
}

func (b *Bus) Write(address uint16, value byte) {
	b.MMU.Write(address, value)
}

// Tick advances the MMU (timer/serial/DMA), the GPU and the APU by the
// same number of T-cycles, keeping every peripheral in lockstep with the
// CPU step that produced them.
func (b *Bus) Tick(cycles int) {
	b.MMU.Tick(cycles)
	b.GPU.Tick(cycles)
	b.MMU.APU.Tick(cycles)
}

func (b *Bus) RequestInterrupt(interrupt addr.Interrupt) {
	b.MMU.RequestInterrupt(interrupt)
}

func (b *Bus) ReadBit(index uint8, address uint16) bool {
	return b.MMU.ReadBit(index, address)
}
