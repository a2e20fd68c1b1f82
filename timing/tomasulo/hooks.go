package tomasulo

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tomasim/emu"
)

// Hook positions. Every line of the execution log is published at one of
// these positions.
var (
	HookPosLoad       = &sim.HookPos{Name: "Load"}
	HookPosCycleStart = &sim.HookPos{Name: "CycleStart"}
	HookPosCycleEnd   = &sim.HookPos{Name: "CycleEnd"}
	HookPosIssue      = &sim.HookPos{Name: "Issue"}
	HookPosDependency = &sim.HookPos{Name: "Dependency"}
	HookPosStall      = &sim.HookPos{Name: "Stall"}
	HookPosBubble     = &sim.HookPos{Name: "Bubble"}
	HookPosBroadcast  = &sim.HookPos{Name: "Broadcast"}
	HookPosStore      = &sim.HookPos{Name: "Store"}
	HookPosCommit     = &sim.HookPos{Name: "Commit"}
	HookPosFlush      = &sim.HookPos{Name: "Flush"}
	HookPosTimeout    = &sim.HookPos{Name: "Timeout"}
	HookPosComplete   = &sim.HookPos{Name: "Complete"}
)

// Event is the item carried by every hook the engine invokes.
type Event struct {
	// Cycle is the 1-based cycle the event happened in. Load events carry 0.
	Cycle int

	// Kind is the name of the hook position.
	Kind string

	Station  string
	ROBIndex int
	Phys     emu.PhysReg

	// Entry is the 0-based program index of the instruction involved, or -1.
	Entry int

	// Inst is the canonical text of the instruction involved, if any.
	Inst string

	// Text is the execution log line.
	Text string
}

func newEvent() Event {
	return Event{ROBIndex: -1, Entry: -1, Phys: emu.NoPhysReg}
}
