package tomasulo

import (
	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
)

// SlotState is the progress of a reorder buffer slot.
type SlotState uint8

// Slot states, in the order a slot moves through them.
const (
	SlotProcessing SlotState = iota
	SlotExecuting
	SlotExecuted
	SlotResultWritten
)

// String returns the state name.
func (s SlotState) String() string {
	switch s {
	case SlotProcessing:
		return "Processing"
	case SlotExecuting:
		return "Executing"
	case SlotExecuted:
		return "Executed"
	case SlotResultWritten:
		return "Result written"
	default:
		return "Unknown"
	}
}

// Slot is one reorder buffer entry.
type Slot struct {
	Busy bool

	// Entry is the 0-based program index of the instruction in the slot.
	Entry int
	Inst  *insts.Instruction

	// Renamed is the physical register the instruction owns. PublicReg is
	// the architectural register it writes, or insts.NoReg.
	Renamed   emu.PhysReg
	PublicReg insts.Reg

	State     SlotState
	Ready     bool
	Result    float64
	HasResult bool

	IssueCycle int
	ExecCycle  int
	WriteCycle int
}

func emptySlot() Slot {
	return Slot{
		Entry:      -1,
		Renamed:    emu.NoPhysReg,
		PublicReg:  insts.NoReg,
		ExecCycle:  -1,
		WriteCycle: -1,
	}
}

// ReorderBuffer is a fixed-size circular buffer of slots. Busy slots always
// form the contiguous run from head to tail, oldest first.
type ReorderBuffer struct {
	slots []Slot
	head  int
	tail  int
	count int
}

// NewReorderBuffer creates an empty reorder buffer with size slots.
func NewReorderBuffer(size int) *ReorderBuffer {
	rob := &ReorderBuffer{slots: make([]Slot, size)}
	rob.Reset()
	return rob
}

// Reset empties the buffer.
func (r *ReorderBuffer) Reset() {
	for i := range r.slots {
		r.slots[i] = emptySlot()
	}
	r.head, r.tail, r.count = 0, 0, 0
}

// Size returns the capacity of the buffer.
func (r *ReorderBuffer) Size() int {
	return len(r.slots)
}

// Count returns the number of busy slots.
func (r *ReorderBuffer) Count() int {
	return r.count
}

// Empty returns true if no slot is busy.
func (r *ReorderBuffer) Empty() bool {
	return r.count == 0
}

// Full returns true if the tail slot is occupied.
func (r *ReorderBuffer) Full() bool {
	return r.count == len(r.slots)
}

// HeadIndex returns the index of the oldest slot.
func (r *ReorderBuffer) HeadIndex() int {
	return r.head
}

// TailIndex returns the index the next allocation will use.
func (r *ReorderBuffer) TailIndex() int {
	return r.tail
}

// Slot returns the slot at index i.
func (r *ReorderBuffer) Slot(i int) *Slot {
	return &r.slots[i]
}

// Head returns the oldest slot.
func (r *ReorderBuffer) Head() *Slot {
	return &r.slots[r.head]
}

// Allocate claims the tail slot and returns its index. The caller must check
// Full first.
func (r *ReorderBuffer) Allocate() int {
	if r.Full() {
		panic("reorder buffer overflow")
	}

	idx := r.tail
	r.slots[idx] = emptySlot()
	r.slots[idx].Busy = true
	r.tail = r.next(idx)
	r.count++

	return idx
}

// Retire frees the head slot and advances the head.
func (r *ReorderBuffer) Retire() {
	if r.Empty() {
		panic("retire from empty reorder buffer")
	}

	r.slots[r.head] = emptySlot()
	r.head = r.next(r.head)
	r.count--
}

// Walk calls fn for every busy slot from head to tail. Walking stops when fn
// returns false.
func (r *ReorderBuffer) Walk(fn func(idx int, s *Slot) bool) {
	idx := r.head
	for n := 0; n < r.count; n++ {
		if !fn(idx, &r.slots[idx]) {
			return
		}
		idx = r.next(idx)
	}
}

// FindByRenamed returns the busy slot owning physical register p.
func (r *ReorderBuffer) FindByRenamed(p emu.PhysReg) (int, bool) {
	found := -1
	r.Walk(func(idx int, s *Slot) bool {
		if s.Renamed == p {
			found = idx
			return false
		}
		return true
	})
	return found, found >= 0
}

// TruncateAfter frees every slot younger than idx and moves the tail to the
// slot after idx. It returns the freed slots, oldest first.
func (r *ReorderBuffer) TruncateAfter(idx int) []Slot {
	younger := r.count - 1 - r.Position(idx)
	dropped := make([]Slot, 0, younger)

	i := r.next(idx)
	for n := 0; n < younger; n++ {
		dropped = append(dropped, r.slots[i])
		r.slots[i] = emptySlot()
		i = r.next(i)
	}

	r.count -= younger
	r.tail = r.next(idx)

	return dropped
}

// Position returns the age rank of slot idx, 0 for the head.
func (r *ReorderBuffer) Position(idx int) int {
	return (idx - r.head + len(r.slots)) % len(r.slots)
}

func (r *ReorderBuffer) next(i int) int {
	return (i + 1) % len(r.slots)
}
