package emu

import (
	"math"

	"github.com/sarchlab/tomasim/insts"
)

// Compute returns the functional-unit result of op on operand values vj and
// vk with immediate imm.
//
// LOAD yields the effective address vj+imm. STORE yields the effective
// address vk+imm (vj is the data). BEQ yields 1 when the operands are equal
// and 0 otherwise.
func Compute(op insts.Op, vj, vk float64, imm int) float64 {
	switch op {
	case insts.OpADD:
		return vj + vk
	case insts.OpSUB:
		return vj - vk
	case insts.OpMUL:
		return vj * vk
	case insts.OpDIV:
		return vj / vk
	case insts.OpLOAD:
		return vj + float64(imm)
	case insts.OpSTORE:
		return vk + float64(imm)
	case insts.OpBEQ:
		if vj-vk == 0 {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Address converts a computed effective address to a memory address,
// truncating toward zero. NaN and infinities map to 0.
func Address(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(v)
}
