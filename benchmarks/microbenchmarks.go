// Package benchmarks provides MIPS microbenchmarks and a harness that runs
// them on the pipeline, checks the architectural result against the
// functional emulator and reports timing.
package benchmarks

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// Register numbers used by the benchmark programs.
const (
	regT0 uint8 = 8
	regT1 uint8 = 9
	regT2 uint8 = 10
	regT3 uint8 = 11
	regT4 uint8 = 12
	regT5 uint8 = 13
	regT6 uint8 = 14
	regS0 uint8 = 16
	regS1 uint8 = 17
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific pipeline behavior.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadUseChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		multiplyDivide(),
		arraySum(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: a loop, a
// memory-bound kernel and call-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		branchTaken(),
		arraySum(),
		functionCalls(),
	}
}

// 1. Arithmetic Sequential - ALU throughput with independent operations
func arithmeticSequential() Benchmark {
	words := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		reg := regT0 + uint8(i%5)
		words = append(words, addiu(reg, reg, 1))
	}

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 independent ADDIUs over 5 registers - measures ALU throughput",
		Program:     BuildProgram(words...),
		ResultReg:   regT0,
		Expected:    4,
	}
}

// 2. Dependency Chain - RAW hazards between every pair of instructions
func dependencyChain() Benchmark {
	words := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		words = append(words, addiu(regT0, regT0, 1))
	}

	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDIUs ($t0 += 1) - measures stall and forwarding cost",
		Program:     BuildProgram(words...),
		ResultReg:   regT0,
		Expected:    20,
	}
}

// 3. Load-Use Chain - every load feeds the next instruction
func loadUseChain() Benchmark {
	words := []uint32{
		insts.EncodeI(insts.OpLUI, regT1, 0, 0x1001),
		addiu(regT0, 0, 1),
		insts.EncodeI(insts.OpSW, regT0, regT1, 0),
	}
	for i := 0; i < 10; i++ {
		words = append(words,
			insts.EncodeI(insts.OpLW, regT0, regT1, 0),
			addiu(regT0, regT0, 1),
			insts.EncodeI(insts.OpSW, regT0, regT1, 0),
		)
	}

	return Benchmark{
		Name:        "load_use_chain",
		Description: "10 load/increment/store rounds on one word - measures load-use stalls",
		Program:     BuildProgram(words...),
		ResultReg:   regT0,
		Expected:    11,
	}
}

// 4. Memory Sequential - store/load pairs to sequential addresses
func memorySequential() Benchmark {
	words := []uint32{
		insts.EncodeI(insts.OpLUI, regT1, 0, 0x1001),
		addiu(regT0, 0, 42),
	}
	for i := int32(0); i < 10; i++ {
		words = append(words,
			insts.EncodeI(insts.OpSW, regT0, regT1, 4*i),
			insts.EncodeI(insts.OpLW, regT0, regT1, 4*i),
		)
	}

	return Benchmark{
		Name:        "memory_sequential",
		Description: "10 store/load pairs to sequential words - measures memory stage traffic",
		Program:     BuildProgram(words...),
		ResultReg:   regT0,
		Expected:    42,
	}
}

// 5. Function Calls - JAL/JR overhead
func functionCalls() Benchmark {
	const calls = 5
	addOne := emu.TextBase + uint32(4*(calls+len(exitSequence())))

	words := make([]uint32, 0, calls+4)
	for i := 0; i < calls; i++ {
		words = append(words, insts.EncodeJ(insts.OpJAL, addOne))
	}
	words = append(words, exitSequence()...)
	words = append(words,
		addiu(regT0, regT0, 1),
		insts.EncodeR(insts.OpJR, 0, emu.RegRA, 0, 0),
	)

	return Benchmark{
		Name:        "function_calls",
		Description: "5 calls to a one-instruction function (JAL + JR) - measures call overhead",
		Program:     words,
		ResultReg:   regT0,
		Expected:    calls,
	}
}

// 6. Branch Taken - a counted loop with a taken backward branch
func branchTaken() Benchmark {
	return Benchmark{
		Name:        "branch_taken",
		Description: "10-iteration counted loop - measures taken branch penalty",
		Program: BuildProgram(
			addiu(regT0, 0, 10),
			addiu(regT1, regT1, 3), // loop:
			addiu(regT0, regT0, -1),
			insts.EncodeI(insts.OpBNE, 0, regT0, -3),
		),
		ResultReg: regT1,
		Expected:  30,
	}
}

// 7. Multiply/Divide - HI/LO producers and consumers
func multiplyDivide() Benchmark {
	return Benchmark{
		Name:        "multiply_divide",
		Description: "MULT, DIV and HI/LO moves - measures HI/LO forwarding",
		Program: BuildProgram(
			addiu(regT0, 0, 1000),
			addiu(regT1, 0, 7),
			insts.EncodeR(insts.OpMULT, 0, regT0, regT1, 0),
			insts.EncodeR(insts.OpMFLO, regT2, 0, 0, 0),
			addiu(regT6, 0, 9),
			insts.EncodeR(insts.OpDIV, 0, regT2, regT6, 0),
			insts.EncodeR(insts.OpMFLO, regT3, 0, 0, 0),
			insts.EncodeR(insts.OpMFHI, regT4, 0, 0, 0),
			insts.EncodeR(insts.OpADDU, regT5, regT3, regT4, 0),
		),
		ResultReg: regT5,
		Expected:  7000/9 + 7000%9,
	}
}

// 8. Array Sum - fill an array in one loop, sum it in another
func arraySum() Benchmark {
	return Benchmark{
		Name:        "array_sum",
		Description: "fill and sum an 8-word array - mixes loops, loads and stores",
		Program: BuildProgram(
			insts.EncodeI(insts.OpLUI, regS0, 0, 0x1001),
			addiu(regT0, 0, 8),
			addiu(regT1, 0, 0),
			insts.EncodeR(insts.OpSLL, regT2, 0, regT1, 2), // fill:
			insts.EncodeR(insts.OpADDU, regT2, regT2, regS0, 0),
			insts.EncodeI(insts.OpSW, regT1, regT2, 0),
			addiu(regT1, regT1, 1),
			insts.EncodeI(insts.OpBNE, regT0, regT1, -5),
			addiu(regT1, 0, 0),
			addiu(regS1, 0, 0),
			insts.EncodeR(insts.OpSLL, regT2, 0, regT1, 2), // sum:
			insts.EncodeR(insts.OpADDU, regT2, regT2, regS0, 0),
			insts.EncodeI(insts.OpLW, regT3, regT2, 0),
			insts.EncodeR(insts.OpADDU, regS1, regS1, regT3, 0),
			addiu(regT1, regT1, 1),
			insts.EncodeI(insts.OpBNE, regT0, regT1, -6),
		),
		ResultReg: regS1,
		Expected:  28,
	}
}

// BuildProgram appends the exit sequence to the given instruction words.
func BuildProgram(words ...uint32) []uint32 {
	return append(words, exitSequence()...)
}

func exitSequence() []uint32 {
	return []uint32{
		addiu(emu.RegV0, 0, int32(emu.SyscallExit)),
		insts.Syscall,
	}
}

func addiu(rt, rs uint8, imm int32) uint32 {
	return insts.EncodeI(insts.OpADDIU, rt, rs, imm)
}
