package insts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Parse errors. A *ParseError wraps one of these.
var (
	ErrSyntax      = errors.New("syntax error")
	ErrUnknownOp   = errors.New("unknown opcode")
	ErrBadRegister = errors.New("invalid register")
	ErrBadTarget   = errors.New("invalid branch target")
	ErrEmpty       = errors.New("program has no instructions")
)

// ParseError reports the source line where parsing failed.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseOptions controls operand validation.
type ParseOptions struct {
	// NumRegisters is the number of architectural registers (R0..R{n-1}).
	NumRegisters int
}

// DefaultParseOptions returns options matching the default machine (R0..R16).
func DefaultParseOptions() ParseOptions {
	return ParseOptions{NumRegisters: 17}
}

var mnemonics = map[string]Op{
	"ADD":   OpADD,
	"SUB":   OpSUB,
	"MUL":   OpMUL,
	"DIV":   OpDIV,
	"LOAD":  OpLOAD,
	"LD":    OpLOAD,
	"LW":    OpLOAD,
	"STORE": OpSTORE,
	"SD":    OpSTORE,
	"SW":    OpSTORE,
	"BEQ":   OpBEQ,
}

// Parse reads a whole program. Either every line parses and the full program
// is returned, or an error is returned and no program at all.
func Parse(r io.Reader, opts ParseOptions) ([]*Instruction, error) {
	var prog []*Instruction
	type pendingTarget struct {
		inst   *Instruction
		srcNum int
		text   string
	}
	var branches []pendingTarget

	scanner := bufio.NewScanner(r)
	srcNum := 0
	for scanner.Scan() {
		srcNum++
		raw := scanner.Text()

		inst, err := ParseLine(raw, opts)
		if errors.Is(err, errEmptyLine) {
			continue
		}
		if err != nil {
			return nil, &ParseError{Line: srcNum, Text: raw, Err: err}
		}

		inst.Line = len(prog) + 1
		prog = append(prog, inst)
		if inst.Op == OpBEQ {
			branches = append(branches, pendingTarget{inst, srcNum, raw})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	if len(prog) == 0 {
		return nil, ErrEmpty
	}

	// Targets can only be checked once the program length is known.
	for _, b := range branches {
		if b.inst.Imm < 1 || b.inst.Imm > len(prog)+1 {
			return nil, &ParseError{Line: b.srcNum, Text: b.text, Err: ErrBadTarget}
		}
	}

	return prog, nil
}

// MustParse parses a program and panics on error. Intended for tests and
// canned benchmark programs.
func MustParse(src string) []*Instruction {
	prog, err := Parse(strings.NewReader(src), DefaultParseOptions())
	if err != nil {
		panic(err)
	}
	return prog
}

var errEmptyLine = errors.New("empty line")

// ParseLine parses a single line. Blank and comment-only lines return an
// internal empty-line error that Parse skips.
func ParseLine(raw string, opts ParseOptions) (*Instruction, error) {
	code, _, _ := strings.Cut(raw, "#")
	code, _, _ = strings.Cut(code, ";")
	code = strings.ReplaceAll(code, ",", " ")

	fields := strings.Fields(code)
	if len(fields) == 0 {
		return nil, errEmptyLine
	}

	op, ok := mnemonics[strings.ToUpper(fields[0])]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownOp, fields[0])
	}

	args := fields[1:]
	inst := &Instruction{Op: op, Rd: NoReg, Rs1: NoReg, Rs2: NoReg}

	var err error
	switch op {
	case OpADD, OpSUB, OpMUL, OpDIV:
		err = parseRRR(inst, args, opts)
	case OpLOAD:
		err = parseLoad(inst, args, opts)
	case OpSTORE:
		err = parseStore(inst, args, opts)
	case OpBEQ:
		err = parseBranch(inst, args, opts)
	}
	if err != nil {
		return nil, err
	}

	return inst, nil
}

func expectArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: expected %d operands, got %d", ErrSyntax, n, len(args))
	}
	return nil
}

func parseRRR(inst *Instruction, args []string, opts ParseOptions) error {
	if err := expectArgs(args, 3); err != nil {
		return err
	}

	var err error
	if inst.Rd, err = parseReg(args[0], opts); err != nil {
		return err
	}
	if inst.Rs1, err = parseReg(args[1], opts); err != nil {
		return err
	}
	inst.Rs2, err = parseReg(args[2], opts)
	return err
}

func parseLoad(inst *Instruction, args []string, opts ParseOptions) error {
	base, imm, rest, err := parseMemArgs(args, opts)
	if err != nil {
		return err
	}
	if inst.Rd, err = parseReg(rest, opts); err != nil {
		return err
	}
	inst.Rs1 = base
	inst.Imm = imm
	return nil
}

func parseStore(inst *Instruction, args []string, opts ParseOptions) error {
	base, imm, rest, err := parseMemArgs(args, opts)
	if err != nil {
		return err
	}
	if inst.Rs1, err = parseReg(rest, opts); err != nil {
		return err
	}
	inst.Rs2 = base
	inst.Imm = imm
	return nil
}

// parseMemArgs accepts "Rx, imm(Rb)" and "Rx, Rb, imm" forms.
func parseMemArgs(args []string, opts ParseOptions) (base Reg, imm int, reg string, err error) {
	switch len(args) {
	case 2:
		offset, baseText, ok := strings.Cut(args[1], "(")
		if !ok || !strings.HasSuffix(baseText, ")") {
			return NoReg, 0, "", fmt.Errorf("%w: expected offset(base), got %s", ErrSyntax, args[1])
		}
		if offset == "" {
			offset = "0"
		}
		if imm, err = parseImm(offset); err != nil {
			return NoReg, 0, "", err
		}
		if base, err = parseReg(strings.TrimSuffix(baseText, ")"), opts); err != nil {
			return NoReg, 0, "", err
		}
	case 3:
		if base, err = parseReg(args[1], opts); err != nil {
			return NoReg, 0, "", err
		}
		if imm, err = parseImm(args[2]); err != nil {
			return NoReg, 0, "", err
		}
	default:
		return NoReg, 0, "", fmt.Errorf("%w: expected 2 or 3 operands, got %d", ErrSyntax, len(args))
	}
	return base, imm, args[0], nil
}

func parseBranch(inst *Instruction, args []string, opts ParseOptions) error {
	if err := expectArgs(args, 3); err != nil {
		return err
	}

	var err error
	if inst.Rs1, err = parseReg(args[0], opts); err != nil {
		return err
	}
	if inst.Rs2, err = parseReg(args[1], opts); err != nil {
		return err
	}
	inst.Imm, err = parseImm(args[2])
	return err
}

func parseReg(text string, opts ParseOptions) (Reg, error) {
	upper := strings.ToUpper(strings.TrimSpace(text))
	if !strings.HasPrefix(upper, "R") || len(upper) < 2 {
		return NoReg, fmt.Errorf("%w %s", ErrBadRegister, text)
	}

	n, err := strconv.Atoi(upper[1:])
	if err != nil || n < 0 || (opts.NumRegisters > 0 && n >= opts.NumRegisters) {
		return NoReg, fmt.Errorf("%w %s", ErrBadRegister, text)
	}
	return Reg(n), nil
}

func parseImm(text string) (int, error) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "#")
	n, err := strconv.ParseInt(text, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad immediate %s", ErrSyntax, text)
	}
	return int(n), nil
}
