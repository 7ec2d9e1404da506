package debug

import "github.com/dmgcore/jeebie/jeebie/video"

// CPUState contains all CPU register information for debugging
type CPUState struct {
	A uint8
	F uint8
	B uint8
	C uint8
	D uint8
	E uint8
	H uint8
	L uint8

	SP     uint16
	PC     uint16
	IME    bool
	Cycles uint64
}

// MemorySnapshot contains a snapshot of memory for disassembly
type MemorySnapshot struct {
	StartAddr uint16
	Bytes     []uint8
}

// DebuggerState represents the current debugger state
type DebuggerState int

const (
	DebuggerRunning DebuggerState = iota
	DebuggerPaused
	DebuggerStepInstruction
	DebuggerStepFrame
)

// CompleteDebugData contains all debug information needed by debug displays
type CompleteDebugData struct {
	OAM             *OAMData
	VRAM            *VRAMData
	CPU             *CPUState
	Memory          *MemorySnapshot
	DebuggerState   DebuggerState
	InterruptEnable uint8 // IE register at 0xFFFF
	InterruptFlags  uint8 // IF register at 0xFF0F
}

// Data is the richer payload windowed debug UIs consume: the disassembly
// inputs plus optional pre-extracted visualizers. Any field except CPU may
// be nil; consumers skip the matching panel.
type Data struct {
	CPU           *CPUState
	Memory        *MemorySnapshot
	DebuggerState DebuggerState

	SpriteVis     *SpriteVisualizer
	BackgroundVis *BackgroundVisualizer
	PaletteVis    *PaletteVisualizer
	Audio         *AudioData
	LayerBuffers  *video.RenderLayers
}

// NewData lifts the common CompleteDebugData payload into a Data, leaving
// the visualizer fields for callers with direct memory access to fill in.
func NewData(complete *CompleteDebugData) *Data {
	if complete == nil {
		return nil
	}
	return &Data{
		CPU:           complete.CPU,
		Memory:        complete.Memory,
		DebuggerState: complete.DebuggerState,
	}
}
