package tomasulo

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cache"
)

// Config holds the structural parameters of the machine and the limits that
// stop runaway simulations.
type Config struct {
	// ROBSize is the number of reorder buffer slots. Default: 8.
	ROBSize int `json:"rob_size"`

	// ArithStations is the number of ADD/SUB reservation stations. Default: 3.
	ArithStations int `json:"arith_stations"`

	// MulDivStations is the number of MUL/DIV reservation stations. Default: 3.
	MulDivStations int `json:"muldiv_stations"`

	// MemoryStations is the number of LOAD/STORE reservation stations.
	// Default: 3.
	MemoryStations int `json:"memory_stations"`

	// BranchStations is the number of BEQ reservation stations. Default: 3.
	BranchStations int `json:"branch_stations"`

	// PublicRegisters is the number of architectural registers, R0 through
	// R{n-1}. Default: 17 (R0-R16).
	PublicRegisters int `json:"public_registers"`

	// PhysicalRegisters is the number of rename registers, P0 through
	// P{n-1}. Default: 33 (P0-P32).
	PhysicalRegisters int `json:"physical_registers"`

	// MemorySize is the number of initialised memory cells. Default: 1024.
	MemorySize int `json:"memory_size"`

	// MaxCycles forces a timeout once more cycles than this have run.
	// Default: 100.
	MaxCycles int `json:"max_cycles"`

	// MaxReissues forces a timeout once any instruction has been re-issued
	// more times than this. Default: 50.
	MaxReissues int `json:"max_reissues"`

	// RunCeiling bounds the number of cycles Run will step regardless of
	// the other limits. Default: 10000.
	RunCeiling int `json:"run_ceiling"`

	// DataCache, when set, makes LOAD and STORE take the latency of a
	// data cache access instead of the fixed table latency. Default: nil.
	DataCache *cache.Config `json:"data_cache,omitempty"`
}

// DefaultConfig returns the default machine configuration.
func DefaultConfig() *Config {
	return &Config{
		ROBSize:           8,
		ArithStations:     3,
		MulDivStations:    3,
		MemoryStations:    3,
		BranchStations:    3,
		PublicRegisters:   17,
		PhysicalRegisters: 33,
		MemorySize:        1024,
		MaxCycles:         100,
		MaxReissues:       50,
		RunCeiling:        10000,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse machine config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize machine config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write machine config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration describes a usable machine.
func (c *Config) Validate() error {
	if c.ROBSize <= 0 {
		return fmt.Errorf("rob_size must be > 0")
	}
	if c.ArithStations <= 0 || c.MulDivStations <= 0 ||
		c.MemoryStations <= 0 || c.BranchStations <= 0 {
		return fmt.Errorf("every station class needs at least one station")
	}
	if c.PublicRegisters <= 0 {
		return fmt.Errorf("public_registers must be > 0")
	}
	if c.PhysicalRegisters <= 0 {
		return fmt.Errorf("physical_registers must be > 0")
	}
	if c.MemorySize < 0 {
		return fmt.Errorf("memory_size must be >= 0")
	}
	if c.MaxCycles <= 0 {
		return fmt.Errorf("max_cycles must be > 0")
	}
	if c.MaxReissues <= 0 {
		return fmt.Errorf("max_reissues must be > 0")
	}
	if c.RunCeiling <= 0 {
		return fmt.Errorf("run_ceiling must be > 0")
	}
	if c.DataCache != nil {
		if err := c.DataCache.Validate(); err != nil {
			return fmt.Errorf("data_cache: %w", err)
		}
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.DataCache != nil {
		dc := *c.DataCache
		clone.DataCache = &dc
	}
	return &clone
}

// StationCount returns the number of stations configured for a class.
func (c *Config) StationCount(class insts.Class) int {
	switch class {
	case insts.ClassArith:
		return c.ArithStations
	case insts.ClassMulDiv:
		return c.MulDivStations
	case insts.ClassMemory:
		return c.MemoryStations
	case insts.ClassBranch:
		return c.BranchStations
	default:
		return 0
	}
}

// ParseOptions returns parser options matching this machine's register file.
func (c *Config) ParseOptions() insts.ParseOptions {
	return insts.ParseOptions{NumRegisters: c.PublicRegisters}
}
