package tomasulo

import (
	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
)

// Stats holds the scalar counters of a simulation.
type Stats struct {
	// Cycles is the number of cycles simulated so far.
	Cycles int
	// TotalCycles is frozen at normal completion; 0 while running and
	// after a timeout.
	TotalCycles int
	// Bubbles counts stalled issues and stations waiting on operands.
	Bubbles uint64
	// Issued counts issue events, including re-issues after a flush.
	Issued uint64
	// Committed is the number of instructions retired.
	Committed uint64
	// Flushes is the number of taken branches.
	Flushes uint64
	// Broadcasts is the number of results delivered on the data bus.
	Broadcasts uint64
	// DCacheHits and DCacheMisses count data cache accesses; both stay 0
	// without a data cache. Dirty lines are written back when the
	// simulation completes.
	DCacheHits       uint64
	DCacheMisses     uint64
	DCacheWritebacks uint64

	ProgramLength int
	Complete      bool
	TimedOut      bool
}

// IPC returns committed instructions per cycle, or 0 if the simulation has
// not completed normally.
func (s Stats) IPC() float64 {
	if s.TotalCycles == 0 {
		return 0
	}
	return float64(s.Committed) / float64(s.TotalCycles)
}

// StationSnapshot is a read-only view of a reservation station.
type StationSnapshot struct {
	Name            string
	Class           insts.Class
	Busy            bool
	Op              insts.Op
	Vj, Vk          float64
	HasVj, HasVk    bool
	Qj, Qk          emu.PhysReg
	Dest            emu.PhysReg
	Imm             int
	CyclesRemaining uint64
}

// ROBSnapshot is a read-only view of a reorder buffer slot.
type ROBSnapshot struct {
	Index       int
	Busy        bool
	Instruction string
	State       SlotState
	PublicReg   insts.Reg
	Renamed     emu.PhysReg
	Ready       bool
	Result      float64
	HasResult   bool
	IssueCycle  int
	ExecCycle   int
	WriteCycle  int
}

// StateDescription returns the slot state text, or "-" for a free slot.
func (s ROBSnapshot) StateDescription() string {
	if !s.Busy {
		return "-"
	}
	return s.State.String()
}

// RegisterSnapshot is a read-only view of the register file pair.
type RegisterSnapshot struct {
	Public    []float64
	Physical  []float64
	RenameMap map[insts.Reg]emu.PhysReg
	FreeList  []emu.PhysReg
}

// InstructionSnapshot is the timeline of one program instruction. Cycle
// fields describe the latest attempt and are -1 when not reached.
type InstructionSnapshot struct {
	Line        int
	Text        string
	Status      Status
	Reissues    int
	Latency     uint64
	IssueCycle  int
	ExecCycle   int
	WriteCycle  int
	CommitCycle int
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	stats := Stats{
		Cycles:        e.cycle,
		TotalCycles:   e.totalCycles,
		Bubbles:       e.bubbles,
		Issued:        e.issued,
		Committed:     e.committed,
		Flushes:       e.flushes,
		Broadcasts:    e.broadcasts,
		ProgramLength: len(e.program),
		Complete:      e.complete,
		TimedOut:      e.timedOut,
	}

	if e.dcache != nil {
		dc := e.dcache.Stats()
		stats.DCacheHits = dc.Hits
		stats.DCacheMisses = dc.Misses
		stats.DCacheWritebacks = dc.Writebacks
	}

	return stats
}

// Cycle returns the number of cycles simulated so far.
func (e *Engine) Cycle() int {
	return e.cycle
}

// TotalCycles returns the cycle count frozen at normal completion.
func (e *Engine) TotalCycles() int {
	return e.totalCycles
}

// Bubbles returns the bubble count.
func (e *Engine) Bubbles() uint64 {
	return e.bubbles
}

// Committed returns the number of committed instructions.
func (e *Engine) Committed() uint64 {
	return e.committed
}

// ProgramLength returns the number of instructions loaded.
func (e *Engine) ProgramLength() int {
	return len(e.program)
}

// Complete returns true once the simulation has ended, normally or by
// timeout.
func (e *Engine) Complete() bool {
	return e.complete
}

// TimedOut returns true if a livelock guard ended the simulation.
func (e *Engine) TimedOut() bool {
	return e.timedOut
}

// IPC returns committed instructions per total cycle.
func (e *Engine) IPC() float64 {
	return e.Stats().IPC()
}

// PC returns the 0-based index of the next instruction to issue.
func (e *Engine) PC() int {
	return e.pc
}

// Source returns the name the program was loaded from.
func (e *Engine) Source() string {
	return e.source
}

// Program returns the loaded program.
func (e *Engine) Program() []*insts.Instruction {
	return append([]*insts.Instruction(nil), e.program...)
}

// Log returns a copy of the execution log.
func (e *Engine) Log() []string {
	return append([]string(nil), e.log...)
}

// Memory returns the value stored at addr.
func (e *Engine) Memory(addr int) float64 {
	return e.memory.Read(addr)
}

// MemoryState returns a copy of the full memory for comparisons.
func (e *Engine) MemoryState() *emu.Memory {
	m := emu.NewMemory(0)
	for _, addr := range e.memory.Diff(m) {
		m.Write(addr, e.memory.Read(addr))
	}
	return m
}

// Stations returns every reservation station in pool order.
func (e *Engine) Stations() []StationSnapshot {
	out := make([]StationSnapshot, e.stations.Len())
	for i := range out {
		st := e.stations.At(i)
		out[i] = StationSnapshot{
			Name:            st.Name,
			Class:           st.Class,
			Busy:            st.Busy,
			Op:              st.Op,
			Vj:              st.Vj,
			Vk:              st.Vk,
			HasVj:           st.HasVj,
			HasVk:           st.HasVk,
			Qj:              st.Qj,
			Qk:              st.Qk,
			Dest:            st.Dest,
			Imm:             st.Imm,
			CyclesRemaining: st.CyclesRemaining,
		}
	}
	return out
}

// ReorderBuffer returns the busy slots from head to tail.
func (e *Engine) ReorderBuffer() []ROBSnapshot {
	out := make([]ROBSnapshot, 0, e.rob.Count())
	e.rob.Walk(func(idx int, s *Slot) bool {
		out = append(out, slotSnapshot(idx, s))
		return true
	})
	return out
}

// ReorderBufferSlots returns every slot in index order, busy or not.
func (e *Engine) ReorderBufferSlots() []ROBSnapshot {
	out := make([]ROBSnapshot, e.rob.Size())
	for i := range out {
		out[i] = slotSnapshot(i, e.rob.Slot(i))
	}
	return out
}

func slotSnapshot(idx int, s *Slot) ROBSnapshot {
	return ROBSnapshot{
		Index:       idx,
		Busy:        s.Busy,
		Instruction: s.Inst.String(),
		State:       s.State,
		PublicReg:   s.PublicReg,
		Renamed:     s.Renamed,
		Ready:       s.Ready,
		Result:      s.Result,
		HasResult:   s.HasResult,
		IssueCycle:  s.IssueCycle,
		ExecCycle:   s.ExecCycle,
		WriteCycle:  s.WriteCycle,
	}
}

// Registers returns the register file pair.
func (e *Engine) Registers() RegisterSnapshot {
	return RegisterSnapshot{
		Public:    append([]float64(nil), e.regFile.Public...),
		Physical:  append([]float64(nil), e.regFile.Physical...),
		RenameMap: e.regFile.RenameMap(),
		FreeList:  e.regFile.FreeList(),
	}
}

// Instructions returns the timeline of every program instruction.
func (e *Engine) Instructions() []InstructionSnapshot {
	out := make([]InstructionSnapshot, len(e.program))
	for i, inst := range e.program {
		p := e.progress[i]
		out[i] = InstructionSnapshot{
			Line:        i + 1,
			Text:        inst.String(),
			Status:      p.status,
			Reissues:    p.reissues,
			Latency:     p.latency,
			IssueCycle:  p.issueCycle,
			ExecCycle:   p.execCycle,
			WriteCycle:  p.writeCycle,
			CommitCycle: p.commitCycle,
		}
	}
	return out
}
