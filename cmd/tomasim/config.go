package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print or write the effective configuration.",
		Long: "`config` prints the machine and timing configuration that `run` " +
			"would use. `--write-machine` and `--write-timing` save them as " +
			"JSON files that can be edited and passed back in.",
		Args: cobra.NoArgs,
		RunE: showConfig,
	}

	configCmd.Flags().String("write-machine", "", "Write the machine configuration to this file")
	configCmd.Flags().String("write-timing", "", "Write the timing configuration to this file")

	return configCmd
}

func showConfig(cmd *cobra.Command, _ []string) error {
	machine, timing, err := loadConfigs(cmd)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("write-machine"); path != "" {
		if err := machine.SaveConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Machine configuration written to %s\n", path)
	}

	if path, _ := cmd.Flags().GetString("write-timing"); path != "" {
		if err := timing.SaveConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Timing configuration written to %s\n", path)
	}

	data, err := json.MarshalIndent(struct {
		Machine interface{} `json:"machine"`
		Timing  interface{} `json:"timing"`
	}{machine, timing}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	return nil
}
