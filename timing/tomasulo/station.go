package tomasulo

import (
	"fmt"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
)

// Station is a reservation station. It holds an issued instruction until
// both operands are available and its execution latency has elapsed.
//
// For each operand, either the value is present (Vj/Vk) or the producing
// physical register is recorded (Qj/Qk), never both.
type Station struct {
	Name  string
	Class insts.Class

	Busy bool
	Op   insts.Op

	Vj, Vk          float64
	HasVj, HasVk    bool
	Qj, Qk          emu.PhysReg
	Dest            emu.PhysReg
	Imm             int
	CyclesRemaining uint64
}

// Ready returns true if no operand is waiting on a producer.
func (s *Station) Ready() bool {
	return !s.Qj.Valid() && !s.Qk.Valid()
}

// Clear frees the station.
func (s *Station) Clear() {
	name, class := s.Name, s.Class
	*s = Station{
		Name:  name,
		Class: class,
		Qj:    emu.NoPhysReg,
		Qk:    emu.NoPhysReg,
		Dest:  emu.NoPhysReg,
	}
}

// ExecuteCycle advances execution by one cycle and reports whether the
// station has finished.
func (s *Station) ExecuteCycle() bool {
	if s.CyclesRemaining > 0 {
		s.CyclesRemaining--
	}
	return s.CyclesRemaining == 0
}

// Result computes the functional-unit result from the captured operands.
func (s *Station) Result() float64 {
	return emu.Compute(s.Op, s.Vj, s.Vk, s.Imm)
}

// Snoop captures value for every operand waiting on producer and reports
// whether any operand was resolved.
func (s *Station) Snoop(producer emu.PhysReg, value float64) bool {
	resolved := false
	if s.Qj.Valid() && s.Qj == producer {
		s.Vj, s.HasVj, s.Qj = value, true, emu.NoPhysReg
		resolved = true
	}
	if s.Qk.Valid() && s.Qk == producer {
		s.Vk, s.HasVk, s.Qk = value, true, emu.NoPhysReg
		resolved = true
	}
	return resolved
}

// WaitReason describes the operands a station is waiting on.
func (s *Station) WaitReason() string {
	reason := ""
	if s.Qj.Valid() {
		reason += "Qj=" + s.Qj.String() + " "
	}
	if s.Qk.Valid() {
		reason += "Qk=" + s.Qk.String()
	}
	return reason
}

// StationPool holds the reservation stations of all classes in one arena.
// Stations are addressed by their stable index; within the arena they are
// ordered arithmetic, multiply/divide, memory, branch.
type StationPool struct {
	stations []Station
	byClass  [insts.NumClasses][]int
}

var stationPrefix = [insts.NumClasses]string{
	insts.ClassArith:  "Add",
	insts.ClassMulDiv: "Mult",
	insts.ClassMemory: "Load",
	insts.ClassBranch: "Branch",
}

// NewStationPool creates the station pool described by config.
func NewStationPool(config *Config) *StationPool {
	p := &StationPool{}

	for c := insts.Class(0); c < insts.NumClasses; c++ {
		for i := 0; i < config.StationCount(c); i++ {
			st := Station{
				Name:  fmt.Sprintf("%s%d", stationPrefix[c], i+1),
				Class: c,
			}
			st.Clear()
			p.byClass[c] = append(p.byClass[c], len(p.stations))
			p.stations = append(p.stations, st)
		}
	}

	return p
}

// Len returns the total number of stations.
func (p *StationPool) Len() int {
	return len(p.stations)
}

// At returns the station at index i.
func (p *StationPool) At(i int) *Station {
	return &p.stations[i]
}

// FindFree returns the index of the first free station of the class.
func (p *StationPool) FindFree(class insts.Class) (int, bool) {
	for _, i := range p.byClass[class] {
		if !p.stations[i].Busy {
			return i, true
		}
	}
	return -1, false
}

// FindByDest returns the busy station that will produce dest.
func (p *StationPool) FindByDest(dest emu.PhysReg) (int, bool) {
	for i := range p.stations {
		if p.stations[i].Busy && p.stations[i].Dest == dest {
			return i, true
		}
	}
	return -1, false
}

// Broadcast delivers value from producer to every busy station waiting on
// it and returns the names of the stations that captured it.
func (p *StationPool) Broadcast(producer emu.PhysReg, value float64) []string {
	var woken []string
	for i := range p.stations {
		st := &p.stations[i]
		if st.Busy && st.Snoop(producer, value) {
			woken = append(woken, st.Name)
		}
	}
	return woken
}

// NumBusy returns the number of busy stations.
func (p *StationPool) NumBusy() int {
	n := 0
	for i := range p.stations {
		if p.stations[i].Busy {
			n++
		}
	}
	return n
}

// Reset frees every station.
func (p *StationPool) Reset() {
	for i := range p.stations {
		p.stations[i].Clear()
	}
}
