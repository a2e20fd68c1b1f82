// Package emu provides the architectural state shared by the functional
// emulator and the Tomasulo timing engine: the public/physical register
// file pair, a flat memory, and the ALU that computes results.
package emu

import (
	"fmt"
	"sort"

	"github.com/sarchlab/tomasim/insts"
)

// PhysReg names a physical (renamed) register.
type PhysReg int

// NoPhysReg marks the absence of a physical register, e.g. an operand that is
// not waiting on any producer.
const NoPhysReg PhysReg = -1

// Valid returns true if p names a physical register.
func (p PhysReg) Valid() bool {
	return p >= 0
}

// String returns the register name, e.g. P5, or "-" when absent.
func (p PhysReg) String() string {
	if !p.Valid() {
		return "-"
	}
	return fmt.Sprintf("P%d", int(p))
}

// RegFile is the register file pair. Public holds the architectural state,
// which only changes at commit. Physical holds renamed working values.
//
// A physical register is either on the free list or owned by exactly one
// in-flight instruction.
type RegFile struct {
	Public   []float64
	Physical []float64

	renameMap map[insts.Reg]PhysReg
	freeList  []PhysReg
}

// NewRegFile creates a register file pair. Every register starts holding
// its own index (R_i = i, P_i = i) and every physical register is free.
func NewRegFile(numPublic, numPhysical int) *RegFile {
	r := &RegFile{
		Public:    make([]float64, numPublic),
		Physical:  make([]float64, numPhysical),
		renameMap: make(map[insts.Reg]PhysReg),
		freeList:  make([]PhysReg, 0, numPhysical),
	}

	for i := range r.Public {
		r.Public[i] = float64(i)
	}
	for i := range r.Physical {
		r.Physical[i] = float64(i)
		r.freeList = append(r.freeList, PhysReg(i))
	}

	return r
}

// ReadReg reads an architectural register. Absent or out-of-range
// registers read as 0.
func (r *RegFile) ReadReg(reg insts.Reg) float64 {
	if !reg.Valid() || int(reg) >= len(r.Public) {
		return 0
	}
	return r.Public[reg]
}

// WriteReg writes an architectural register. Out-of-range writes are
// ignored.
func (r *RegFile) WriteReg(reg insts.Reg, value float64) {
	if !reg.Valid() || int(reg) >= len(r.Public) {
		return
	}
	r.Public[reg] = value
}

// ReadPhys reads a physical register.
func (r *RegFile) ReadPhys(p PhysReg) float64 {
	if !p.Valid() || int(p) >= len(r.Physical) {
		return 0
	}
	return r.Physical[p]
}

// WritePhys writes a physical register.
func (r *RegFile) WritePhys(p PhysReg, value float64) {
	if !p.Valid() || int(p) >= len(r.Physical) {
		return
	}
	r.Physical[p] = value
}

// Allocate takes the oldest free physical register. It returns false when
// the free list is empty.
func (r *RegFile) Allocate() (PhysReg, bool) {
	if len(r.freeList) == 0 {
		return NoPhysReg, false
	}

	p := r.freeList[0]
	r.freeList = r.freeList[1:]
	return p, true
}

// Release returns a physical register to the back of the free list.
func (r *RegFile) Release(p PhysReg) {
	if !p.Valid() {
		return
	}

	for _, free := range r.freeList {
		if free == p {
			panic(fmt.Sprintf("physical register %v released twice", p))
		}
	}

	r.freeList = append(r.freeList, p)
}

// NumFree returns the number of free physical registers.
func (r *RegFile) NumFree() int {
	return len(r.freeList)
}

// FreeList returns a copy of the free list in allocation order.
func (r *RegFile) FreeList() []PhysReg {
	return append([]PhysReg(nil), r.freeList...)
}

// Rename maps an architectural register to a physical register, replacing
// any previous mapping.
func (r *RegFile) Rename(reg insts.Reg, p PhysReg) {
	r.renameMap[reg] = p
}

// Unrename removes the mapping for reg, but only if it still points at p.
// A younger writer of the same register keeps its mapping.
func (r *RegFile) Unrename(reg insts.Reg, p PhysReg) {
	if cur, ok := r.renameMap[reg]; ok && cur == p {
		delete(r.renameMap, reg)
	}
}

// ClearRenames drops every mapping.
func (r *RegFile) ClearRenames() {
	r.renameMap = make(map[insts.Reg]PhysReg)
}

// Lookup returns the physical register currently mapped to reg.
func (r *RegFile) Lookup(reg insts.Reg) (PhysReg, bool) {
	p, ok := r.renameMap[reg]
	return p, ok
}

// RenameMap returns a copy of the rename map.
func (r *RegFile) RenameMap() map[insts.Reg]PhysReg {
	m := make(map[insts.Reg]PhysReg, len(r.renameMap))
	for k, v := range r.renameMap {
		m[k] = v
	}
	return m
}

// RenamedRegs returns the architectural registers with a live mapping,
// sorted by index.
func (r *RegFile) RenamedRegs() []insts.Reg {
	regs := make([]insts.Reg, 0, len(r.renameMap))
	for reg := range r.renameMap {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })
	return regs
}
