package tomasulo

import (
	"fmt"
	"strings"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cache"
)

// writeResult writes back every station whose execution finished in an
// earlier cycle, broadcasts the results and frees the stations.
func (e *Engine) writeResult() {
	for i := 0; i < e.stations.Len(); i++ {
		st := e.stations.At(i)
		if !st.Busy || st.CyclesRemaining != 0 {
			continue
		}

		idx, ok := e.rob.FindByRenamed(st.Dest)
		if !ok {
			panic(fmt.Sprintf("station %s produces %v, which no reorder buffer slot owns",
				st.Name, st.Dest))
		}

		slot := e.rob.Slot(idx)
		if slot.WriteCycle == e.now {
			continue
		}

		result := st.Result()

		slot.State = SlotResultWritten
		slot.Ready = true
		slot.WriteCycle = e.now

		if p := e.attempt(slot); p != nil {
			p.status = StatusResultWritten
			p.writeCycle = e.now
		}

		switch st.Op.Class() {
		case insts.ClassMemory:
			result = e.writeMemoryResult(st, slot, idx, result)
		case insts.ClassBranch:
			slot.Result, slot.HasResult = result, true
			if result == 1 {
				e.flush(idx)
			}
		default:
			e.broadcast(st, slot, idx, result)
		}

		if !slot.HasResult {
			slot.Result, slot.HasResult = result, true
		}

		st.Clear()
	}
}

// writeMemoryResult performs the memory access of a load or store whose
// effective address is addr and returns the value recorded in the slot.
func (e *Engine) writeMemoryResult(st *Station, slot *Slot, idx int, addr float64) float64 {
	address := emu.Address(addr)

	if st.Op == insts.OpLOAD {
		value := e.memory.Read(address)
		e.broadcast(st, slot, idx, value)
		return value
	}

	e.memory.Write(address, st.Vj)

	evt := newEvent()
	evt.Station = st.Name
	evt.ROBIndex = idx
	evt.Phys = st.Dest
	evt.Entry = slot.Entry
	evt.Inst = slot.Inst.String()
	evt.Text = fmt.Sprintf("Write result: %s stored %.2f to mem[%d]", st.Name, st.Vj, address)
	e.emit(HookPosStore, evt)

	return st.Vj
}

// broadcast writes value into the producer's physical register and delivers
// it on the common data bus.
func (e *Engine) broadcast(st *Station, slot *Slot, idx int, value float64) {
	e.regFile.WritePhys(st.Dest, value)
	slot.Result, slot.HasResult = value, true

	woken := e.stations.Broadcast(st.Dest, value)
	e.broadcasts++

	text := fmt.Sprintf("Write result: %s broadcast %v = %.2f", st.Name, st.Dest, value)
	if len(woken) > 0 {
		text += " to " + strings.Join(woken, ", ")
	}

	evt := newEvent()
	evt.Station = st.Name
	evt.ROBIndex = idx
	evt.Phys = st.Dest
	evt.Entry = slot.Entry
	evt.Inst = slot.Inst.String()
	evt.Text = text
	e.emit(HookPosBroadcast, evt)
}

// flush cancels every slot younger than the taken branch in slot idx and
// redirects fetch to the branch target.
func (e *Engine) flush(idx int) {
	branch := e.rob.Slot(idx)
	branchInst := branch.Inst
	branchEntry := branch.Entry
	branchIssue := branch.IssueCycle

	for _, s := range e.rob.TruncateAfter(idx) {
		if s.IssueCycle <= branchIssue {
			panic(fmt.Sprintf("cancelled %v issued in cycle %d, not after branch issued in cycle %d",
				s.Inst, s.IssueCycle, branchIssue))
		}

		stationName := ""
		if st, ok := e.stations.FindByDest(s.Renamed); ok {
			stationName = e.stations.At(st).Name
			e.stations.At(st).Clear()
		}

		e.regFile.Release(s.Renamed)

		p := &e.progress[s.Entry]
		p.status = StatusSkipped

		evt := newEvent()
		evt.Station = stationName
		evt.Phys = s.Renamed
		evt.Entry = s.Entry
		evt.Inst = s.Inst.String()
		evt.Text = fmt.Sprintf("Branch taken, instruction cancelled: %v", s.Inst)
		e.emit(HookPosFlush, evt)
	}

	e.rebuildRenameMap()

	target := branchInst.Imm - 1
	if target < 0 {
		target = 0
	}
	if target > len(e.program) {
		target = len(e.program)
	}

	for i := branchEntry + 1; i < target; i++ {
		if e.progress[i].status == StatusNotIssued {
			e.progress[i].status = StatusSkipped
		}
	}

	e.pc = target
	e.flushes++

	evt := newEvent()
	evt.ROBIndex = idx
	evt.Entry = branchEntry
	evt.Inst = branchInst.String()
	evt.Text = fmt.Sprintf("Branch taken: %v, fetch redirected to line %d", branchInst, target+1)
	e.emit(HookPosFlush, evt)
}

// rebuildRenameMap maps each register to its youngest in-flight writer.
func (e *Engine) rebuildRenameMap() {
	e.regFile.ClearRenames()
	e.rob.Walk(func(_ int, s *Slot) bool {
		if s.PublicReg.Valid() {
			e.regFile.Rename(s.PublicReg, s.Renamed)
		}
		return true
	})
}

// execute advances every busy station whose operands are ready. A busy
// station still waiting on an operand counts as a bubble.
func (e *Engine) execute() {
	for i := 0; i < e.stations.Len(); i++ {
		st := e.stations.At(i)
		if !st.Busy {
			continue
		}

		if !st.Ready() {
			e.bubbles++

			evt := newEvent()
			evt.Station = st.Name
			evt.Phys = st.Dest
			evt.Text = fmt.Sprintf("Bubble: %s waiting on operands %s",
				st.Name, strings.TrimSpace(st.WaitReason()))
			e.emit(HookPosBubble, evt)
			continue
		}

		if st.CyclesRemaining == 0 {
			continue
		}

		idx, ok := e.rob.FindByRenamed(st.Dest)
		if !ok {
			panic(fmt.Sprintf("station %s produces %v, which no reorder buffer slot owns",
				st.Name, st.Dest))
		}

		slot := e.rob.Slot(idx)
		p := e.attempt(slot)

		slot.State = SlotExecuting
		if slot.ExecCycle < 0 {
			slot.ExecCycle = e.now
			if p != nil {
				p.execCycle = e.now
			}
			e.accessDataCache(st, &e.progress[slot.Entry])
		}

		if st.ExecuteCycle() {
			slot.State = SlotExecuted
			if p != nil {
				p.status = StatusExecuted
			}
		}
	}
}

// accessDataCache replaces the fixed latency of a memory operation with the
// latency of a data cache access, once its address is known.
func (e *Engine) accessDataCache(st *Station, p *progress) {
	if e.dcache == nil || !st.Op.IsMemoryOp() {
		return
	}

	addr := emu.Address(st.Result())

	var result cache.AccessResult
	if st.Op == insts.OpSTORE {
		result = e.dcache.Write(addr)
	} else {
		result = e.dcache.Read(addr)
	}

	st.CyclesRemaining = result.Latency
	p.latency = result.Latency
}

// issue dispatches the instruction at pc into a reorder buffer slot and a
// reservation station.
func (e *Engine) issue() {
	if e.pc >= len(e.program) {
		return
	}

	inst := e.program[e.pc]

	if e.rob.Full() {
		e.stall(inst, "Reorder buffer full")
		return
	}

	stIdx, ok := e.stations.FindFree(inst.Op.Class())
	if !ok {
		e.stall(inst, fmt.Sprintf("No free %v reservation station", inst.Op.Class()))
		return
	}

	if e.regFile.NumFree() == 0 {
		e.stall(inst, "No free physical register")
		return
	}

	if e.lastIssue == e.now {
		panic(fmt.Sprintf("second instruction issued in cycle %d", e.now))
	}
	e.lastIssue = e.now

	idx := e.rob.Allocate()
	slot := e.rob.Slot(idx)
	slot.Entry = e.pc
	slot.Inst = inst
	slot.State = SlotProcessing
	slot.IssueCycle = e.now

	p := &e.progress[e.pc]

	st := e.stations.At(stIdx)
	st.Busy = true
	st.Op = inst.Op
	st.Imm = inst.Imm
	st.CyclesRemaining = p.latency
	st.Vj, st.HasVj, st.Qj = e.resolveOperand(inst, inst.Rs1, idx)
	st.Vk, st.HasVk, st.Qk = e.resolveOperand(inst, inst.Rs2, idx)

	phys, _ := e.regFile.Allocate()
	if inst.WritesRegister() {
		e.regFile.WritePhys(phys, e.regFile.ReadReg(inst.Rd))
		e.regFile.Rename(inst.Rd, phys)
		slot.PublicReg = inst.Rd
	}
	slot.Renamed = phys
	st.Dest = phys

	if p.attempts > 0 {
		p.reissues++
	}
	p.attempts++
	p.status = StatusIssued
	p.clearCycles()
	p.issueCycle = e.now

	e.pc++
	e.issued++

	evt := newEvent()
	evt.Station = st.Name
	evt.ROBIndex = idx
	evt.Phys = phys
	evt.Entry = slot.Entry
	evt.Inst = inst.String()
	evt.Text = fmt.Sprintf("Issue: %v -> %s, ROB%d, %v", inst, st.Name, idx, phys)
	e.emit(HookPosIssue, evt)
}

// resolveOperand renames source register reg of inst. It returns either the
// operand value or the physical register of the in-flight producer.
func (e *Engine) resolveOperand(
	inst *insts.Instruction,
	reg insts.Reg,
	self int,
) (value float64, hasValue bool, producer emu.PhysReg) {
	if !reg.Valid() {
		return 0, false, emu.NoPhysReg
	}

	var latest *Slot
	e.rob.Walk(func(idx int, s *Slot) bool {
		if idx == self || s.PublicReg != reg {
			return true
		}
		if latest == nil || s.IssueCycle > latest.IssueCycle {
			latest = s
		}
		return true
	})

	if latest == nil {
		return e.regFile.ReadReg(reg), true, emu.NoPhysReg
	}

	evt := newEvent()
	evt.Phys = latest.Renamed
	evt.Entry = e.pc
	evt.Inst = inst.String()
	evt.Text = fmt.Sprintf("RAW dependency: %v waits on %v for %v (%v)",
		inst, latest.Inst, reg, latest.Renamed)
	e.emit(HookPosDependency, evt)

	if latest.Ready {
		return e.regFile.ReadPhys(latest.Renamed), true, emu.NoPhysReg
	}

	return 0, false, latest.Renamed
}

func (e *Engine) stall(inst *insts.Instruction, reason string) {
	e.bubbles++

	evt := newEvent()
	evt.Entry = e.pc
	evt.Inst = inst.String()
	evt.Text = fmt.Sprintf("Stall: %s, could not issue %v", reason, inst)
	e.emit(HookPosStall, evt)
}

// attempt returns the progress record of the instruction in slot, or nil if
// the instruction has been issued again since slot was filled.
func (e *Engine) attempt(slot *Slot) *progress {
	p := &e.progress[slot.Entry]
	if p.issueCycle != slot.IssueCycle {
		return nil
	}
	return p
}

// commit retires the reorder buffer head if its result is ready and was not
// written in this same cycle.
func (e *Engine) commit() {
	if e.rob.Empty() {
		return
	}

	idx := e.rob.HeadIndex()
	slot := e.rob.Head()
	if !slot.Busy || !slot.Ready || slot.WriteCycle == e.now {
		return
	}

	inst := slot.Inst
	text := fmt.Sprintf("Commit: %v", inst)

	if inst.WritesRegister() && slot.HasResult {
		e.regFile.WriteReg(slot.PublicReg, slot.Result)
		text = fmt.Sprintf("Commit: %v, %v = %.2f", inst, slot.PublicReg, slot.Result)
	}

	e.regFile.Release(slot.Renamed)
	e.regFile.Unrename(slot.PublicReg, slot.Renamed)

	if p := e.attempt(slot); p != nil {
		p.status = StatusCommitted
		p.commitCycle = e.now
	}

	evt := newEvent()
	evt.ROBIndex = idx
	evt.Phys = slot.Renamed
	evt.Entry = slot.Entry
	evt.Inst = inst.String()
	evt.Text = text

	e.rob.Retire()
	e.committed++

	e.emit(HookPosCommit, evt)
}
