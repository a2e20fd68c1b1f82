package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/tomasulo"
	"github.com/sarchlab/tomasim/trace"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Run a program and report timing statistics.",
		Long: "`run <program>` loads an assembly program, simulates it until " +
			"it completes or a livelock guard fires, and prints a report.",
		Args: cobra.ExactArgs(1),
		RunE: runProgram,
	}

	runCmd.Flags().Int("steps", 0, "Stop after this many cycles (0 runs to completion)")
	runCmd.Flags().Bool("log", false, "Print the execution log")
	runCmd.Flags().Bool("timeline", false, "Print the instruction timeline")
	runCmd.Flags().Bool("dump", false, "Dump the final machine state")
	runCmd.Flags().String("trace-db", "", "Record engine events to a SQLite database")
	runCmd.Flags().Duration("timeout", 0, "Wall-clock limit for the run (0 means none)")
	addProfileFlags(runCmd)

	return runCmd
}

func runProgram(cmd *cobra.Command, args []string) (err error) {
	out := cmd.OutOrStdout()
	programPath := args[0]

	machine, timing, err := loadConfigs(cmd)
	if err != nil {
		return err
	}

	opts := []core.Option{
		core.WithMachineConfig(machine),
		core.WithTimingConfig(timing),
	}

	var recorder *trace.SQLiteRecorder
	if path, _ := cmd.Flags().GetString("trace-db"); path != "" {
		recorder = trace.NewSQLiteRecorder(path)
		if err := recorder.Init(); err != nil {
			return err
		}
		defer func() { _ = recorder.Close() }()
		opts = append(opts, core.WithHook(recorder))
	}

	c, err := core.NewCore(opts...)
	if err != nil {
		return err
	}

	if err := c.LoadFile(programPath); err != nil {
		return err
	}

	stopProfiling, err := startProfiling(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := stopProfiling(); err == nil {
			err = stopErr
		}
	}()

	start := time.Now()
	steps, _ := cmd.Flags().GetInt("steps")
	if steps > 0 {
		for i := 0; i < steps && !c.Complete(); i++ {
			c.Step()
		}
	} else {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if limit, _ := cmd.Flags().GetDuration("timeout"); limit > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, limit)
			defer cancel()
		}
		if err := c.RunToCompletion(ctx); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	if printLog, _ := cmd.Flags().GetBool("log"); printLog {
		for _, line := range c.Log() {
			fmt.Fprintln(out, line)
		}
	}

	printReport(out, programPath, c)
	printSpeed(out, c.Stats().Cycles, elapsed)

	if timeline, _ := cmd.Flags().GetBool("timeline"); timeline {
		printTimeline(out, c.Instructions())
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		printer := pp.New()
		printer.SetColoringEnabled(false)
		printer.Fprintln(out, c.Registers())
		printer.Fprintln(out, c.ReorderBuffer())
	}

	if recorder != nil {
		if err := recorder.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Trace: %s (run %s)\n", recorder.Path(), recorder.RunID())
	}

	return nil
}

// printReport prints the timing summary of a run.
func printReport(out io.Writer, programPath string, c *core.Core) {
	stats := c.Stats()

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Program: %s\n", programPath)
	fmt.Fprintf(out, "Instructions: %d\n", stats.ProgramLength)
	fmt.Fprintf(out, "Cycles simulated: %d\n", stats.Cycles)

	switch {
	case stats.TimedOut:
		fmt.Fprintf(out, "Total Cycles: 0 (loop detected)\n")
	case stats.Complete:
		fmt.Fprintf(out, "Total Cycles: %d\n", stats.TotalCycles)
	default:
		fmt.Fprintf(out, "Total Cycles: - (not complete)\n")
	}

	fmt.Fprintf(out, "Committed: %d\n", stats.Committed)
	fmt.Fprintf(out, "IPC: %.2f\n", stats.IPC())
	fmt.Fprintf(out, "Simulated time: %.3e s\n", float64(c.SimTime()))
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Pipeline Events:\n")
	fmt.Fprintf(out, "  Issued:     %d\n", stats.Issued)
	fmt.Fprintf(out, "  Bubbles:    %d\n", stats.Bubbles)
	fmt.Fprintf(out, "  Flushes:    %d\n", stats.Flushes)
	fmt.Fprintf(out, "  Broadcasts: %d\n", stats.Broadcasts)
}

// printSpeed prints how fast the host simulated the run.
func printSpeed(out io.Writer, cycles int, elapsed time.Duration) {
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Elapsed time: %v\n", elapsed)
	if cycles > 0 && elapsed > 0 {
		fmt.Fprintf(out, "Cycles/second: %.0f\n", float64(cycles)/elapsed.Seconds())
	}
}

// printTimeline prints one row per program instruction.
func printTimeline(out io.Writer, rows []tomasulo.InstructionSnapshot) {
	fmt.Fprintf(out, "\n")

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tINSTRUCTION\tSTATUS\tISSUE\tEXEC\tWRITE\tCOMMIT\tREISSUES")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%v\t%s\t%s\t%s\t%s\t%d\n",
			r.Line, r.Text, r.Status,
			cycleText(r.IssueCycle), cycleText(r.ExecCycle),
			cycleText(r.WriteCycle), cycleText(r.CommitCycle),
			r.Reissues)
	}
	_ = w.Flush()
}

func cycleText(cycle int) string {
	if cycle < 0 {
		return "-"
	}
	return fmt.Sprint(cycle)
}
