// Package tomasulo implements a cycle-accurate model of dynamic instruction
// scheduling with Tomasulo's algorithm.
//
// Each cycle runs four phases in a fixed order: write-result, execute,
// issue, commit. Instructions are issued in program order, one per cycle,
// into a reservation station and a reorder buffer slot. Source operands are
// renamed against in-flight producers, results are broadcast to waiting
// stations, and the reorder buffer commits in program order, one per cycle.
// A taken branch cancels every younger in-flight instruction and redirects
// fetch to its target.
package tomasulo

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cache"
	"github.com/sarchlab/tomasim/timing/latency"
)

// ErrInvalidProgram is returned when a program does not fit the machine.
var ErrInvalidProgram = errors.New("invalid program")

// Status is the execution progress of one program instruction.
type Status int8

// Instruction statuses.
const (
	StatusSkipped       Status = -1
	StatusNotIssued     Status = 0
	StatusIssued        Status = 1
	StatusExecuted      Status = 2
	StatusResultWritten Status = 3
	StatusCommitted     Status = 4
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "Skipped"
	case StatusNotIssued:
		return "Not issued"
	case StatusIssued:
		return "Issued"
	case StatusExecuted:
		return "Executed"
	case StatusResultWritten:
		return "Result written"
	case StatusCommitted:
		return "Committed"
	default:
		return "Unknown"
	}
}

// progress is the engine-owned mutable state of one program instruction.
// Cycle fields describe the latest attempt and are -1 when not reached.
type progress struct {
	status   Status
	attempts int
	reissues int
	latency  uint64

	issueCycle  int
	execCycle   int
	writeCycle  int
	commitCycle int
}

func (p *progress) clearCycles() {
	p.issueCycle = -1
	p.execCycle = -1
	p.writeCycle = -1
	p.commitCycle = -1
}

// Engine is the Tomasulo cycle engine. It owns the register files, memory,
// reservation stations and reorder buffer, and mutates them only inside
// Step. Every execution log line is also published as an akita hook.
type Engine struct {
	sim.HookableBase

	config       *Config
	latencyTable *latency.Table

	program  []*insts.Instruction
	source   string
	progress []progress

	regFile  *emu.RegFile
	memory   *emu.Memory
	rob      *ReorderBuffer
	stations *StationPool
	dcache   *cache.Cache

	pc          int
	cycle       int
	now         int
	lastIssue   int
	totalCycles int
	complete    bool
	timedOut    bool

	bubbles    uint64
	issued     uint64
	committed  uint64
	flushes    uint64
	broadcasts uint64

	log []string
}

// EngineOption is a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithConfig sets the machine configuration.
func WithConfig(config *Config) EngineOption {
	return func(e *Engine) {
		e.config = config.Clone()
	}
}

// WithLatencyTable sets the per-opcode execution latencies.
func WithLatencyTable(table *latency.Table) EngineOption {
	return func(e *Engine) {
		e.latencyTable = table
	}
}

// NewEngine creates an engine with no program loaded.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		config:       DefaultConfig(),
		latencyTable: latency.NewTable(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.Reset()

	return e
}

// Config returns a copy of the machine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// LatencyTable returns the latency table used at load time.
func (e *Engine) LatencyTable() *latency.Table {
	return e.latencyTable
}

// Load replaces the program and resets the machine. The program is checked
// against the machine first; on error the engine is left untouched.
func (e *Engine) Load(program []*insts.Instruction, source string) error {
	if err := e.checkProgram(program); err != nil {
		return err
	}

	e.program = append([]*insts.Instruction(nil), program...)
	e.source = source
	e.Reset()

	evt := newEvent()
	evt.Text = fmt.Sprintf("Loaded %d instructions from %s", len(e.program), source)
	e.emit(HookPosLoad, evt)

	return nil
}

func (e *Engine) checkProgram(program []*insts.Instruction) error {
	for i, inst := range program {
		if inst == nil {
			return fmt.Errorf("%w: instruction %d is missing", ErrInvalidProgram, i+1)
		}

		for _, reg := range []insts.Reg{inst.Rd, inst.Rs1, inst.Rs2} {
			if reg.Valid() && int(reg) >= e.config.PublicRegisters {
				return fmt.Errorf("%w: instruction %d (%v) uses %v, machine has %d registers",
					ErrInvalidProgram, i+1, inst, reg, e.config.PublicRegisters)
			}
		}

		if inst.Op.IsBranch() && (inst.Imm < 1 || inst.Imm > len(program)+1) {
			return fmt.Errorf("%w: instruction %d (%v) targets line %d outside 1..%d",
				ErrInvalidProgram, i+1, inst, inst.Imm, len(program)+1)
		}
	}

	return nil
}

// Reset reinitialises every register, memory cell, pool and counter. The
// loaded program and its source name are kept.
func (e *Engine) Reset() {
	e.regFile = emu.NewRegFile(e.config.PublicRegisters, e.config.PhysicalRegisters)
	e.memory = emu.NewMemory(e.config.MemorySize)
	e.rob = NewReorderBuffer(e.config.ROBSize)
	e.stations = NewStationPool(e.config)
	switch {
	case e.config.DataCache == nil:
		e.dcache = nil
	case e.dcache != nil && e.dcache.Config() == *e.config.DataCache:
		e.dcache.Reset()
	default:
		e.dcache = cache.New(*e.config.DataCache)
	}

	e.progress = make([]progress, len(e.program))
	for i, inst := range e.program {
		e.progress[i].latency = e.latencyTable.GetLatency(inst)
		e.progress[i].clearCycles()
	}

	e.pc = 0
	e.cycle = 0
	e.now = 0
	e.lastIssue = 0
	e.totalCycles = 0
	e.complete = false
	e.timedOut = false

	e.bubbles = 0
	e.issued = 0
	e.committed = 0
	e.flushes = 0
	e.broadcasts = 0

	e.log = nil
}

// Step advances the simulation by exactly one cycle. It does nothing once
// the simulation is complete.
func (e *Engine) Step() {
	if e.complete {
		return
	}

	e.now = e.cycle + 1

	evt := newEvent()
	evt.Text = fmt.Sprintf("Cycle %d", e.now)
	e.emit(HookPosCycleStart, evt)

	if e.checkTimeout() {
		return
	}

	e.writeResult()
	e.execute()
	e.issue()
	e.commit()

	e.cycle = e.now

	if e.pc >= len(e.program) && e.rob.Empty() {
		e.complete = true
		e.totalCycles = e.cycle
		if e.dcache != nil {
			e.dcache.Flush()
		}

		evt := newEvent()
		evt.Text = fmt.Sprintf("Simulation complete. Total cycles: %d", e.totalCycles)
		e.emit(HookPosComplete, evt)
		return
	}

	evt = newEvent()
	evt.Text = "----------------------------------------"
	e.emit(HookPosCycleEnd, evt)
}

// Run steps until the simulation completes or the run ceiling is reached.
// It returns true if the simulation completed.
func (e *Engine) Run() bool {
	for !e.complete && e.cycle < e.config.RunCeiling {
		e.Step()
	}
	return e.complete
}

// checkTimeout ends the simulation when a livelock guard trips.
func (e *Engine) checkTimeout() bool {
	if e.cycle > e.config.MaxCycles {
		e.timeout(fmt.Sprintf(
			"Timeout: cycle count exceeded the limit of %d. Simulation stopped.",
			e.config.MaxCycles))
		return true
	}

	for i := range e.progress {
		p := &e.progress[i]
		if p.status > StatusNotIssued && p.reissues > e.config.MaxReissues {
			e.timeout(fmt.Sprintf(
				"Timeout: instruction %q re-issued more than %d times. Simulation stopped.",
				e.program[i].String(), e.config.MaxReissues))
			return true
		}
	}

	return false
}

func (e *Engine) timeout(reason string) {
	e.complete = true
	e.timedOut = true
	e.totalCycles = 0

	evt := newEvent()
	evt.Text = reason
	e.emit(HookPosTimeout, evt)

	evt = newEvent()
	evt.Text = "Simulation complete. Total cycles: 0 (loop detected)"
	e.emit(HookPosComplete, evt)
}

// emit appends a line to the execution log and publishes it to the hooks.
func (e *Engine) emit(pos *sim.HookPos, evt Event) {
	evt.Cycle = e.now
	evt.Kind = pos.Name

	e.log = append(e.log, evt.Text)

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    pos,
		Item:   evt,
	})
}
