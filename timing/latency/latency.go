// Package latency provides the per-opcode execution latencies used by the
// Tomasulo engine.
//
// Latencies are fixed per opcode and can be configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/tomasim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given
// instruction. A nil or unknown instruction takes one cycle.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}
	return t.OpLatency(inst.Op)
}

// OpLatency returns the execution latency in cycles for an opcode.
func (t *Table) OpLatency(op insts.Op) uint64 {
	switch op {
	case insts.OpADD, insts.OpSUB:
		return t.config.ALULatency
	case insts.OpMUL:
		return t.config.MultiplyLatency
	case insts.OpDIV:
		return t.config.DivideLatency
	case insts.OpLOAD:
		return t.config.LoadLatency
	case insts.OpSTORE:
		return t.config.StoreLatency
	case insts.OpBEQ:
		return t.config.BranchLatency
	default:
		return 1
	}
}

// MinLatency returns the smallest latency any opcode can have. It bounds
// the achievable IPC of a program.
func (t *Table) MinLatency() uint64 {
	lowest := t.config.ALULatency
	for _, l := range []uint64{
		t.config.MultiplyLatency,
		t.config.DivideLatency,
		t.config.LoadLatency,
		t.config.StoreLatency,
		t.config.BranchLatency,
	} {
		if l < lowest {
			lowest = l
		}
	}
	return lowest
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
