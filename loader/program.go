// Package loader reads assembly program files for the simulator.
package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/tomasim/insts"
)

// Program is a parsed program file ready to be handed to the engine.
type Program struct {
	// Path is the file the program was read from. Empty for programs read
	// from a stream.
	Path string
	// Name identifies the program in logs, the base name of Path by default.
	Name string
	// Instructions holds the parsed program in order.
	Instructions []*insts.Instruction
}

// Load reads and parses a program file for the default machine.
func Load(path string) (*Program, error) {
	return LoadWithOptions(path, insts.DefaultParseOptions())
}

// LoadWithOptions reads and parses a program file. Loading is all or
// nothing: any bad line fails the whole file.
func LoadWithOptions(path string, opts insts.ParseOptions) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := LoadReader(f, filepath.Base(path), opts)
	if err != nil {
		return nil, err
	}
	prog.Path = path

	return prog, nil
}

// LoadReader parses a program from r.
func LoadReader(r io.Reader, name string, opts insts.ParseOptions) (*Program, error) {
	instructions, err := insts.Parse(r, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse program %s: %w", name, err)
	}

	return &Program{
		Name:         name,
		Instructions: instructions,
	}, nil
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// Listing renders the program with 1-based line numbers, the numbering
// branch targets refer to.
func (p *Program) Listing() string {
	var sb strings.Builder
	for _, inst := range p.Instructions {
		fmt.Fprintf(&sb, "%3d: %v\n", inst.Line, inst)
	}
	return sb.String()
}
