// Package insts provides the instruction set understood by the Tomasulo
// simulator and a parser that turns assembly text into instructions.
//
// It supports:
//   - Arithmetic: ADD, SUB
//   - Multiply/divide: MUL, DIV
//   - Memory: LOAD, STORE (offset(base) addressing)
//   - Branch: BEQ with a 1-based program line as target
//
// Usage:
//
//	prog, err := insts.Parse(strings.NewReader("ADD R1, R2, R3"), insts.DefaultParseOptions())
//	fmt.Printf("Op: %v, Rd: %v, Rs1: %v, Rs2: %v\n", prog[0].Op, prog[0].Rd, prog[0].Rs1, prog[0].Rs2)
package insts
