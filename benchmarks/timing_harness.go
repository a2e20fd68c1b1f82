// Package benchmarks provides timing benchmark infrastructure for the
// Tomasulo simulator.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cache"
	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/tomasulo"
)

// Version is reported in JSON benchmark reports.
const Version = "0.3.0"

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// ProgramLength is the number of static instructions
	ProgramLength int `json:"program_length"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsCommitted is the number of retired instructions
	InstructionsCommitted uint64 `json:"instructions_committed"`

	// InstructionsIssued counts issue events, including re-issues
	InstructionsIssued uint64 `json:"instructions_issued"`

	// IPC is committed instructions per cycle
	IPC float64 `json:"ipc"`

	// CPI is cycles per committed instruction
	CPI float64 `json:"cpi"`

	// Bubbles counts stalled issues and stations waiting on operands
	Bubbles uint64 `json:"bubbles"`

	// Flushes is the number of taken branches
	Flushes uint64 `json:"flushes"`

	// Broadcasts is the number of results sent on the data bus
	Broadcasts uint64 `json:"broadcasts"`

	// Reissues is the sum of re-issue counts over all instructions
	Reissues int `json:"reissues"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// TimedOut is set when a livelock guard ended the run
	TimedOut bool `json:"timed_out"`

	// MatchesEmulator is set when the committed registers and memory equal
	// the in-order emulator's
	MatchesEmulator bool `json:"matches_emulator"`

	// Mismatches lists registers and addresses that differ from the
	// emulator, if any
	Mismatches []string `json:"mismatches,omitempty"`

	// Error is set if the benchmark could not be run
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Source is the assembly text of the program
	Source string

	// ExpectedRegs lists architectural register values the program must
	// end with (for validation)
	ExpectedRegs map[insts.Reg]float64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Machine is the structural machine configuration
	Machine *tomasulo.Config

	// Timing is the per-opcode latency configuration
	Timing *latency.TimingConfig

	// EnableDCache models a data cache with its default geometry unless
	// Machine already configures one
	EnableDCache bool

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose prints the execution log of every benchmark
	Verbose bool
}

// DefaultConfig returns a default harness configuration. The cycle limit is
// raised above the interactive default so that loop benchmarks finish.
func DefaultConfig() HarnessConfig {
	machine := tomasulo.DefaultConfig()
	machine.MaxCycles = 2000

	return HarnessConfig{
		Machine: machine,
		Timing:  latency.DefaultTimingConfig(),
		Output:  os.Stdout,
		Verbose: false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Machine == nil {
		config.Machine = DefaultConfig().Machine
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	if config.EnableDCache && config.Machine.DataCache == nil {
		config.Machine = config.Machine.Clone()
		dc := cache.DefaultConfig()
		config.Machine.DataCache = &dc
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results. Cancelling ctx stops
// the benchmark in progress and skips the rest.
func (h *Harness) RunAll(ctx context.Context) []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		if ctx.Err() != nil {
			break
		}
		result := h.runBenchmark(ctx, bench)
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(ctx context.Context, bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	program, err := insts.Parse(strings.NewReader(bench.Source), h.config.Machine.ParseOptions())
	if err != nil {
		result.Error = fmt.Sprintf("failed to parse: %v", err)
		return result
	}
	result.ProgramLength = len(program)

	c, err := core.NewCore(
		core.WithMachineConfig(h.config.Machine),
		core.WithTimingConfig(h.config.Timing),
	)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if err := c.Load(program, bench.Name); err != nil {
		result.Error = err.Error()
		return result
	}

	// Run simulation and measure time
	start := time.Now()
	err = c.RunToCompletion(ctx)
	result.WallTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
	}

	// Collect statistics
	stats := c.Stats()
	result.SimulatedCycles = uint64(stats.TotalCycles)
	result.InstructionsCommitted = stats.Committed
	result.InstructionsIssued = stats.Issued
	result.IPC = stats.IPC()
	if stats.Committed > 0 && stats.TotalCycles > 0 {
		result.CPI = float64(stats.TotalCycles) / float64(stats.Committed)
	}
	result.Bubbles = stats.Bubbles
	result.Flushes = stats.Flushes
	result.Broadcasts = stats.Broadcasts
	result.TimedOut = stats.TimedOut
	result.DCacheHits = stats.DCacheHits
	result.DCacheMisses = stats.DCacheMisses
	for _, inst := range c.Instructions() {
		result.Reissues += inst.Reissues
	}

	result.Mismatches = h.compare(c, program, bench)
	result.MatchesEmulator = stats.Complete && !stats.TimedOut && len(result.Mismatches) == 0

	if h.config.Verbose {
		for _, line := range c.Log() {
			_, _ = fmt.Fprintln(h.config.Output, line)
		}
	}

	return result
}

// compare checks the committed state against the in-order emulator and the
// benchmark's expected registers.
func (h *Harness) compare(c *core.Core, program []*insts.Instruction, bench Benchmark) []string {
	machine := h.config.Machine
	ref := emu.NewEmulator(program,
		emu.WithMachineSize(machine.PublicRegisters, machine.MemorySize),
		emu.WithMaxInstructions(uint64(machine.RunCeiling)),
	)
	if err := ref.Run(); err != nil {
		return []string{fmt.Sprintf("emulator: %v", err)}
	}

	var mismatches []string
	public := c.Registers().Public
	want := ref.RegFile().Public
	for i := range want {
		if i >= len(public) || public[i] != want[i] {
			mismatches = append(mismatches,
				fmt.Sprintf("%v: got %.2f, emulator %.2f", insts.Reg(i), valueAt(public, i), want[i]))
		}
	}

	for _, addr := range c.MemoryState().Diff(ref.Memory()) {
		mismatches = append(mismatches,
			fmt.Sprintf("mem[%d]: got %.2f, emulator %.2f", addr, c.Memory(addr), ref.Memory().Read(addr)))
	}

	for reg, v := range bench.ExpectedRegs {
		if got := valueAt(public, int(reg)); got != v {
			mismatches = append(mismatches, fmt.Sprintf("%v: got %.2f, expected %.2f", reg, got, v))
		}
	}

	return mismatches
}

func valueAt(values []float64, i int) float64 {
	if i < 0 || i >= len(values) {
		return 0
	}
	return values[i]
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Tomasulo Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Program Length:         %d\n", r.ProgramLength)
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:       %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Committed: %d\n", r.InstructionsCommitted)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Issued:    %d\n", r.InstructionsIssued)
		_, _ = fmt.Fprintf(h.config.Output, "  IPC:                    %.3f\n", r.IPC)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                    %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Bubbles:                %d\n", r.Bubbles)
		_, _ = fmt.Fprintf(h.config.Output, "  Flushes:                %d\n", r.Flushes)
		_, _ = fmt.Fprintf(h.config.Output, "  Broadcasts:             %d\n", r.Broadcasts)
		if r.Reissues > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Reissues:               %d\n", r.Reissues)
		}
		if r.TimedOut {
			_, _ = fmt.Fprintln(h.config.Output, "  Timed out (loop detected)")
		}
		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Validation ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Matches Emulator: %v\n", r.MatchesEmulator)
		for _, m := range r.Mismatches {
			_, _ = fmt.Fprintf(h.config.Output, "    %s\n", m)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,length,cycles,committed,issued,ipc,cpi,bubbles,flushes,broadcasts,reissues,dcache_hits,dcache_misses,timed_out,matches")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%d,%.3f,%.3f,%d,%d,%d,%d,%d,%d,%v,%v\n",
			r.Name,
			r.ProgramLength,
			r.SimulatedCycles,
			r.InstructionsCommitted,
			r.InstructionsIssued,
			r.IPC,
			r.CPI,
			r.Bubbles,
			r.Flushes,
			r.Broadcasts,
			r.Reissues,
			r.DCacheHits,
			r.DCacheMisses,
			r.TimedOut,
			r.MatchesEmulator,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// RunID uniquely identifies the report
	RunID string `json:"run_id"`

	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	Machine *tomasulo.Config      `json:"machine"`
	Timing  *latency.TimingConfig `json:"timing"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all committed instructions
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageIPC is committed instructions per cycle over all benchmarks
	AverageIPC float64 `json:"average_ipc"`

	// Mismatched is the number of benchmarks that disagree with the emulator
	Mismatched int `json:"mismatched"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Summarize computes aggregate statistics over results.
func Summarize(results []BenchmarkResult) ReportSummary {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsCommitted
		summary.TotalWallTime += r.WallTime
		if !r.MatchesEmulator {
			summary.Mismatched++
		}
	}

	if summary.TotalCycles > 0 {
		summary.AverageIPC = float64(summary.TotalInstructions) / float64(summary.TotalCycles)
	}

	return summary
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			RunID:     xid.New().String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config: BenchmarkConfig{
				Machine: h.config.Machine,
				Timing:  h.config.Timing,
			},
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
