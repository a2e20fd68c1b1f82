// Package main provides the entry point for Tomasim.
// Tomasim is a cycle-level Tomasulo out-of-order core simulator built on Akita.
//
// For the full CLI, use: go run ./cmd/tomasim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("Tomasim - Tomasulo Out-of-Order Core Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: tomasim <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run <program>      Simulate a program and report timing")
	fmt.Println("  emulate <program>  Run a program without timing")
	fmt.Println("  config             Print or write the configuration")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/tomasim --help' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/tomasim' instead.")
	}
}
