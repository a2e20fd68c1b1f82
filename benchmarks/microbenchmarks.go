package benchmarks

import (
	"strings"

	"github.com/sarchlab/tomasim/insts"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each
// benchmark targets a specific characteristic of the out-of-order core.
//
// Registers start as R_i = i and memory as mem[i] = i, so every expected
// value below follows from the program text alone.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		independentALU(),
		dependencyChain(),
		mulDivChain(),
		structuralPressure(),
		memoryStream(),
		matrixMultiply2x2(),
		branchSkip(),
		countedLoop(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a loop, a matrix multiply and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		countedLoop(),
		matrixMultiply2x2(),
		branchSkip(),
	}
}

// 1. Independent ALU - no dependencies, bounded only by single issue
func independentALU() Benchmark {
	return Benchmark{
		Name:        "independent_alu",
		Description: "8 independent ADD/SUB operations - measures issue throughput",
		Source: `ADD R1, R9, R10
SUB R2, R11, R12
ADD R3, R13, R14
SUB R4, R16, R15
ADD R5, R9, R16
SUB R6, R14, R10
ADD R7, R11, R13
SUB R8, R12, R9
`,
		ExpectedRegs: map[insts.Reg]float64{
			1: 19, 2: -1, 3: 27, 4: 1, 5: 25, 6: 4, 7: 24, 8: 3,
		},
	}
}

// 2. Dependency Chain - every instruction waits on the previous broadcast
func dependencyChain() Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "12 dependent ADDs (R1 = R1 + R1) - measures RAW latency",
		Source:      strings.Repeat("ADD R1, R1, R1\n", 12),
		ExpectedRegs: map[insts.Reg]float64{
			1: 4096,
		},
	}
}

// 3. Mul/Div Chain - long-latency operations feeding each other
func mulDivChain() Benchmark {
	return Benchmark{
		Name:        "muldiv_chain",
		Description: "Dependent MUL/DIV sequence - measures long-latency forwarding",
		Source: `MUL R1, R2, R3
DIV R4, R5, R2
MUL R6, R1, R4
DIV R7, R6, R3
ADD R8, R7, R1
SUB R9, R8, R4
`,
		ExpectedRegs: map[insts.Reg]float64{
			1: 6, 4: 2.5, 6: 15, 7: 5, 8: 11, 9: 8.5,
		},
	}
}

// 4. Structural Pressure - more multiplies than multiply stations
func structuralPressure() Benchmark {
	return Benchmark{
		Name:        "structural_pressure",
		Description: "6 independent MUL/DIV on 3 stations - measures station stalls",
		Source: `MUL R1, R2, R3
MUL R4, R5, R6
MUL R7, R8, R9
MUL R10, R11, R12
MUL R13, R14, R15
DIV R16, R16, R2
`,
		ExpectedRegs: map[insts.Reg]float64{
			1: 6, 4: 30, 7: 72, 10: 132, 13: 210, 16: 8,
		},
	}
}

// 5. Memory Stream - loads feeding arithmetic feeding stores
func memoryStream() Benchmark {
	return Benchmark{
		Name:        "memory_stream",
		Description: "Loads, arithmetic and stores to distinct addresses",
		Source: `LOAD R1, 10(R0)
LOAD R2, 20(R0)
ADD R3, R1, R2
MUL R4, R3, R2
STORE R4, 100(R0)
STORE R3, 101(R0)
LOAD R5, 30(R0)
ADD R6, R5, R4
`,
		ExpectedRegs: map[insts.Reg]float64{
			1: 10, 2: 20, 3: 30, 4: 600, 5: 30, 6: 630,
		},
	}
}

// 6. Matrix Multiply 2x2 - A at mem[0..3], B at mem[4..7], C to mem[200..203]
func matrixMultiply2x2() Benchmark {
	return Benchmark{
		Name:        "matrix_2x2",
		Description: "2x2 matrix multiply - mixed loads, MUL, ADD and stores",
		Source: `LOAD R1, 0(R0)
LOAD R2, 1(R0)
LOAD R3, 2(R0)
LOAD R4, 3(R0)
LOAD R5, 4(R0)
LOAD R6, 5(R0)
LOAD R7, 6(R0)
LOAD R8, 7(R0)
MUL R9, R1, R5
MUL R10, R2, R7
ADD R11, R9, R10
STORE R11, 200(R0)
MUL R9, R1, R6
MUL R10, R2, R8
ADD R12, R9, R10
STORE R12, 201(R0)
MUL R9, R3, R5
MUL R10, R4, R7
ADD R13, R9, R10
STORE R13, 202(R0)
MUL R9, R3, R6
MUL R10, R4, R8
ADD R14, R9, R10
STORE R14, 203(R0)
`,
		ExpectedRegs: map[insts.Reg]float64{
			11: 6, 12: 7, 13: 26, 14: 31, 9: 10, 10: 21,
		},
	}
}

// 7. Branch Skip - taken forward branches cancel speculative work
func branchSkip() Benchmark {
	return Benchmark{
		Name:        "branch_skip",
		Description: "Forward branches, two taken and one not - measures flush cost",
		Source: `ADD R1, R1, R1
BEQ R1, R2, 4
ADD R3, R3, R3
SUB R4, R4, R1
BEQ R4, R1, 7
MUL R5, R5, R5
ADD R6, R6, R4
BEQ R6, R7, 10
DIV R8, R8, R2
ADD R9, R9, R9
`,
		ExpectedRegs: map[insts.Reg]float64{
			1: 2, 3: 3, 4: 2, 5: 5, 6: 8, 8: 4, 9: 18,
		},
	}
}

// 8. Counted Loop - ten iterations of a backward branch
func countedLoop() Benchmark {
	return Benchmark{
		Name:        "counted_loop",
		Description: "10-iteration loop - measures re-issue after backward branches",
		Source: `SUB R4, R4, R4
ADD R4, R4, R1
ADD R11, R11, R2
BEQ R4, R10, 6
BEQ R0, R0, 2
MUL R12, R11, R1
`,
		ExpectedRegs: map[insts.Reg]float64{
			4: 10, 11: 31, 12: 31,
		},
	}
}
