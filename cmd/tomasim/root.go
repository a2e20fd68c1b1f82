package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/tomasulo"
)

// newRootCmd builds the base command with every subcommand attached.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tomasim",
		Short: "Tomasim simulates a Tomasulo out-of-order core cycle by cycle.",
		Long: `Tomasim simulates a Tomasulo out-of-order core with reservation ` +
			`stations, register renaming and a reorder buffer. It runs small ` +
			`assembly programs and reports cycle counts, stalls and flushes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("machine-config", "",
		"Path to machine configuration JSON file")
	rootCmd.PersistentFlags().String("timing-config", "",
		"Path to timing configuration JSON file")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newEmulateCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// loadConfigs reads the configuration files named by the persistent flags,
// falling back to defaults.
func loadConfigs(cmd *cobra.Command) (*tomasulo.Config, *latency.TimingConfig, error) {
	machine := tomasulo.DefaultConfig()
	timing := latency.DefaultTimingConfig()

	if path, _ := cmd.Flags().GetString("machine-config"); path != "" {
		var err error
		machine, err = tomasulo.LoadConfig(path)
		if err != nil {
			return nil, nil, fmt.Errorf("loading machine config: %w", err)
		}
	}

	if path, _ := cmd.Flags().GetString("timing-config"); path != "" {
		var err error
		timing, err = latency.LoadConfig(path)
		if err != nil {
			return nil, nil, fmt.Errorf("loading timing config: %w", err)
		}
	}

	return machine, timing, nil
}
