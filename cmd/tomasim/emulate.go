package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/loader"
)

func newEmulateCmd() *cobra.Command {
	emulateCmd := &cobra.Command{
		Use:   "emulate <program>",
		Short: "Run a program in functional mode without timing.",
		Long: "`emulate <program>` executes the program in order, one " +
			"instruction at a time, and prints the final registers. It is " +
			"the reference the timing model must agree with.",
		Args: cobra.ExactArgs(1),
		RunE: runEmulation,
	}

	emulateCmd.Flags().Uint64("max-instr", 10000, "Max instructions to execute (0 = unlimited)")

	return emulateCmd
}

func runEmulation(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	programPath := args[0]

	machine, _, err := loadConfigs(cmd)
	if err != nil {
		return err
	}

	prog, err := loader.LoadWithOptions(programPath, machine.ParseOptions())
	if err != nil {
		return err
	}

	maxInstr, _ := cmd.Flags().GetUint64("max-instr")
	emulator := emu.NewEmulator(prog.Instructions,
		emu.WithMachineSize(machine.PublicRegisters, machine.MemorySize),
		emu.WithMaxInstructions(maxInstr),
	)

	if err := emulator.Run(); err != nil {
		return fmt.Errorf("emulating %s: %w", programPath, err)
	}

	fmt.Fprintf(out, "Program: %s\n", programPath)
	fmt.Fprintf(out, "Instructions executed: %d\n", emulator.InstructionCount())
	fmt.Fprintf(out, "Taken branches: %d\n", emulator.TakenBranches())
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Registers:\n")
	for i, v := range emulator.RegFile().Public {
		fmt.Fprintf(out, "  %-4v %.2f\n", insts.Reg(i), v)
	}

	return nil
}
