// Package core provides the simulator core used by command-line tools and
// other shells. It wraps the Tomasulo engine with locking, file loading and
// an akita event loop for running to completion.
package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/loader"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/tomasulo"
)

// Stats holds performance statistics for the core.
type Stats = tomasulo.Stats

// Core is a thread-safe simulator core. Commands and snapshot queries may
// be called from any goroutine; a snapshot never observes a partial cycle.
type Core struct {
	// runMu serialises RunToCompletion against Load and Reset.
	runMu sync.Mutex
	// mu guards everything below.
	mu sync.Mutex

	engine *tomasulo.Engine
	freq   sim.Freq

	simEngine *sim.SerialEngine
	ticker    *sim.TickingComponent
	runCtx    context.Context
}

// Option is a functional option for configuring the Core.
type Option func(*options)

type options struct {
	machine *tomasulo.Config
	timing  *latency.TimingConfig
	freq    sim.Freq
	hooks   []sim.Hook
}

// WithMachineConfig sets the structural machine configuration.
func WithMachineConfig(config *tomasulo.Config) Option {
	return func(o *options) {
		o.machine = config
	}
}

// WithTimingConfig sets the per-opcode latencies.
func WithTimingConfig(config *latency.TimingConfig) Option {
	return func(o *options) {
		o.timing = config
	}
}

// WithFrequency sets the clock frequency used to report simulated time.
func WithFrequency(freq sim.Freq) Option {
	return func(o *options) {
		o.freq = freq
	}
}

// WithHook attaches a hook to the engine.
func WithHook(hook sim.Hook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hook)
	}
}

// NewCore creates a core with no program loaded.
func NewCore(opts ...Option) (*Core, error) {
	o := &options{
		machine: tomasulo.DefaultConfig(),
		timing:  latency.DefaultTimingConfig(),
		freq:    1 * sim.GHz,
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.machine.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine config: %w", err)
	}
	if err := o.timing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}
	if o.freq <= 0 {
		return nil, fmt.Errorf("frequency must be > 0")
	}

	c := &Core{
		engine: tomasulo.NewEngine(
			tomasulo.WithConfig(o.machine),
			tomasulo.WithLatencyTable(latency.NewTableWithConfig(o.timing.Clone())),
		),
		freq: o.freq,
	}
	for _, h := range o.hooks {
		c.engine.AcceptHook(h)
	}
	c.resetClock()

	return c, nil
}

// AcceptHook attaches a hook to the engine.
func (c *Core) AcceptHook(hook sim.Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.AcceptHook(hook)
}

// Load replaces the program. On error the previous state is kept.
func (c *Core) Load(program []*insts.Instruction, source string) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.engine.Load(program, source); err != nil {
		return err
	}
	c.resetClock()

	return nil
}

// LoadFile reads a program file and loads it. On error the previous state
// is kept.
func (c *Core) LoadFile(path string) error {
	prog, err := loader.LoadWithOptions(path, c.Config().ParseOptions())
	if err != nil {
		return err
	}

	return c.Load(prog.Instructions, prog.Name)
}

// Reset restores the initial machine state and keeps the program.
func (c *Core) Reset() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.Reset()
	c.resetClock()
}

// resetClock replaces the akita engine so simulated time restarts at zero.
func (c *Core) resetClock() {
	c.simEngine = sim.NewSerialEngine()
	c.ticker = sim.NewTickingComponent("Core", c.simEngine, c.freq, c)
}

// Step advances the simulation by one cycle.
func (c *Core) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.Step()
}

// Tick advances the engine by one cycle on behalf of the akita event loop.
// It reports whether the core wants to tick again.
func (c *Core) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runCtx != nil && c.runCtx.Err() != nil {
		return false
	}

	if c.engine.Complete() || c.engine.Cycle() >= c.engine.Config().RunCeiling {
		return false
	}

	c.engine.Step()

	return !c.engine.Complete()
}

// RunToCompletion steps until the simulation completes, the run ceiling is
// reached or ctx is cancelled. Snapshots may be taken from other goroutines
// while it runs.
func (c *Core) RunToCompletion(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.mu.Lock()
	if c.engine.Complete() {
		c.mu.Unlock()
		return nil
	}
	c.runCtx = ctx
	simEngine, ticker := c.simEngine, c.ticker
	c.mu.Unlock()

	ticker.TickLater()
	err := simEngine.Run()

	c.mu.Lock()
	c.runCtx = nil
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	return ctx.Err()
}

// SimTime returns the simulated time of the last cycle run by
// RunToCompletion.
func (c *Core) SimTime() sim.VTimeInSec {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.simEngine.CurrentTime()
}

// Frequency returns the clock frequency.
func (c *Core) Frequency() sim.Freq {
	return c.freq
}

// Config returns the machine configuration.
func (c *Core) Config() *tomasulo.Config {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Config()
}

// Stats returns the current counters.
func (c *Core) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Stats()
}

// Complete returns true once the simulation has ended.
func (c *Core) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Complete()
}

// Program returns the loaded program.
func (c *Core) Program() []*insts.Instruction {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Program()
}

// Stations returns the reservation stations.
func (c *Core) Stations() []tomasulo.StationSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Stations()
}

// ReorderBuffer returns the busy reorder buffer slots from head to tail.
func (c *Core) ReorderBuffer() []tomasulo.ROBSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.ReorderBuffer()
}

// ReorderBufferSlots returns every reorder buffer slot in index order.
func (c *Core) ReorderBufferSlots() []tomasulo.ROBSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.ReorderBufferSlots()
}

// Registers returns the register file pair.
func (c *Core) Registers() tomasulo.RegisterSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Registers()
}

// Instructions returns the instruction timeline.
func (c *Core) Instructions() []tomasulo.InstructionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Instructions()
}

// Log returns a copy of the execution log.
func (c *Core) Log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Log()
}

// Memory returns the value stored at addr.
func (c *Core) Memory(addr int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Memory(addr)
}

// MemoryState returns a copy of the memory.
func (c *Core) MemoryState() *emu.Memory {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.MemoryState()
}
