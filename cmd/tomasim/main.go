// Command tomasim runs programs on the Tomasulo timing simulator.
//
// Usage:
//
//	tomasim run [flags] <program.asm>
//	tomasim config [flags]
//
// Example:
//
//	# Run a program and print the instruction timeline
//	tomasim run --timeline examples/loop.asm
//
//	# Record every engine event to a SQLite database
//	tomasim run --trace-db trace.sqlite3 examples/loop.asm
package main

import (
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	atexit.Exit(Execute(os.Args[1:], os.Stdout, os.Stderr))
}
