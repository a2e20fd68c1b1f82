package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds execution latencies for each class of instruction.
// A latency is the number of execute-phase cycles a reservation station
// spends on the instruction once both operands are ready.
type TimingConfig struct {
	// ALULatency is the execution latency for ADD and SUB.
	// Default: 2 cycles.
	ALULatency uint64 `json:"alu_latency"`

	// MultiplyLatency is the execution latency for MUL.
	// Default: 4 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// DivideLatency is the execution latency for DIV.
	// Default: 8 cycles.
	DivideLatency uint64 `json:"divide_latency"`

	// LoadLatency is the latency for LOAD, including the address
	// computation. Default: 3 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the latency for STORE. Default: 3 cycles.
	StoreLatency uint64 `json:"store_latency"`

	// BranchLatency is the latency for evaluating a BEQ condition.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:      2,
		MultiplyLatency: 4,
		DivideLatency:   8,
		LoadLatency:     3,
		StoreLatency:    3,
		BranchLatency:   1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.DivideLatency == 0 {
		return fmt.Errorf("divide_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
