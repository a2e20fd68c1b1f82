package insts

import (
	"fmt"
	"strings"
)

// Op represents an opcode.
type Op uint8

// Opcodes.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpLOAD
	OpSTORE
	OpBEQ
)

var opNames = map[Op]string{
	OpUnknown: "UNKNOWN",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpMUL:     "MUL",
	OpDIV:     "DIV",
	OpLOAD:    "LOAD",
	OpSTORE:   "STORE",
	OpBEQ:     "BEQ",
}

// String returns the mnemonic of the opcode.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Class groups opcodes by the kind of functional unit that executes them.
type Class uint8

// Operation classes. Each class owns its own reservation station pool.
const (
	ClassArith Class = iota
	ClassMulDiv
	ClassMemory
	ClassBranch
)

// NumClasses is the number of operation classes.
const NumClasses = 4

// String returns a short class name.
func (c Class) String() string {
	switch c {
	case ClassArith:
		return "arith"
	case ClassMulDiv:
		return "muldiv"
	case ClassMemory:
		return "memory"
	case ClassBranch:
		return "branch"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// Class returns the operation class of the opcode. Unknown opcodes fall into
// the arithmetic class.
func (o Op) Class() Class {
	switch o {
	case OpMUL, OpDIV:
		return ClassMulDiv
	case OpLOAD, OpSTORE:
		return ClassMemory
	case OpBEQ:
		return ClassBranch
	default:
		return ClassArith
	}
}

// IsMemoryOp returns true if the opcode accesses memory.
func (o Op) IsMemoryOp() bool {
	return o.Class() == ClassMemory
}

// IsMultiplyDivide returns true for MUL and DIV.
func (o Op) IsMultiplyDivide() bool {
	return o.Class() == ClassMulDiv
}

// IsBranch returns true for branch opcodes.
func (o Op) IsBranch() bool {
	return o.Class() == ClassBranch
}

// WritesRegister returns true if the opcode produces a register result.
func (o Op) WritesRegister() bool {
	switch o {
	case OpADD, OpSUB, OpMUL, OpDIV, OpLOAD:
		return true
	default:
		return false
	}
}

// Reg is an architectural register index.
type Reg int

// NoReg marks an absent register operand.
const NoReg Reg = -1

// Valid returns true if the register is present.
func (r Reg) Valid() bool {
	return r >= 0
}

// String returns the register name, e.g. R3, or "-" when absent.
func (r Reg) String() string {
	if !r.Valid() {
		return "-"
	}
	return fmt.Sprintf("R%d", int(r))
}

// Instruction is one line of a program. Instructions are immutable once
// parsed; the simulator keeps execution progress elsewhere.
type Instruction struct {
	Op  Op
	Rd  Reg // Destination register (NoReg for STORE and BEQ)
	Rs1 Reg // First source (base register for LOAD, data register for STORE)
	Rs2 Reg // Second source (base register for STORE)

	// Imm is the memory offset for LOAD/STORE or the 1-based target line
	// for BEQ.
	Imm int

	// Line is the 1-based position of the instruction in the program.
	Line int
}

// WritesRegister returns true if the instruction writes an architectural
// register.
func (i *Instruction) WritesRegister() bool {
	return i.Op.WritesRegister() && i.Rd.Valid()
}

// String renders the instruction in canonical assembly form.
func (i *Instruction) String() string {
	if i == nil {
		return "-"
	}

	switch i.Op {
	case OpLOAD:
		return fmt.Sprintf("%v %v, %d(%v)", i.Op, i.Rd, i.Imm, i.Rs1)
	case OpSTORE:
		return fmt.Sprintf("%v %v, %d(%v)", i.Op, i.Rs1, i.Imm, i.Rs2)
	case OpBEQ:
		return fmt.Sprintf("%v %v, %v, %d", i.Op, i.Rs1, i.Rs2, i.Imm)
	}

	operands := make([]string, 0, 3)
	for _, r := range []Reg{i.Rd, i.Rs1, i.Rs2} {
		if r.Valid() {
			operands = append(operands, r.String())
		}
	}
	return i.Op.String() + " " + strings.Join(operands, ", ")
}
