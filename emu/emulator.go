package emu

import (
	"errors"

	"github.com/sarchlab/tomasim/insts"
)

// ErrMaxInstructions is returned when the emulator hits its instruction
// limit before the program ends.
var ErrMaxInstructions = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true when the program counter has run off the end.
	Exited bool

	// Err is set if the step could not be executed.
	Err error
}

// Emulator executes programs one instruction at a time, in program order,
// with no timing. It provides the architectural reference state that the
// out-of-order engine must reproduce at commit.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	program []*insts.Instruction

	numPublic   int
	memorySize  int
	pc          int
	instCount   uint64
	maxInstrs   uint64
	takenBranch uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions sets the maximum number of instructions to execute.
// Zero means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstrs = max
	}
}

// WithMachineSize sets the number of architectural registers and the
// initialised memory range.
func WithMachineSize(numPublic, memorySize int) EmulatorOption {
	return func(e *Emulator) {
		e.numPublic = numPublic
		e.memorySize = memorySize
	}
}

// NewEmulator creates a new emulator for the given program.
func NewEmulator(program []*insts.Instruction, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		program:    program,
		numPublic:  17,
		memorySize: 1024,
		maxInstrs:  10000,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.Reset()

	return e
}

// Reset restores the initial register and memory state.
func (e *Emulator) Reset() {
	e.regFile = NewRegFile(e.numPublic, 0)
	e.memory = NewMemory(e.memorySize)
	e.pc = 0
	e.instCount = 0
	e.takenBranch = 0
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the 0-based index of the next instruction.
func (e *Emulator) PC() int {
	return e.pc
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instCount
}

// TakenBranches returns the number of taken branches.
func (e *Emulator) TakenBranches() uint64 {
	return e.takenBranch
}

// Step executes one instruction.
func (e *Emulator) Step() StepResult {
	if e.pc >= len(e.program) {
		return StepResult{Exited: true}
	}
	if e.maxInstrs > 0 && e.instCount >= e.maxInstrs {
		return StepResult{Err: ErrMaxInstructions}
	}

	inst := e.program[e.pc]
	vj := e.regFile.ReadReg(inst.Rs1)
	vk := e.regFile.ReadReg(inst.Rs2)
	result := Compute(inst.Op, vj, vk, inst.Imm)

	e.instCount++
	e.pc++

	switch inst.Op {
	case insts.OpLOAD:
		e.regFile.WriteReg(inst.Rd, e.memory.Read(Address(result)))
	case insts.OpSTORE:
		e.memory.Write(Address(result), vj)
	case insts.OpBEQ:
		if result == 1 {
			e.takenBranch++
			e.pc = inst.Imm - 1
		}
	default:
		e.regFile.WriteReg(inst.Rd, result)
	}

	return StepResult{Exited: e.pc >= len(e.program)}
}

// Run executes until the program ends or an error occurs.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Exited {
			return nil
		}
	}
}
