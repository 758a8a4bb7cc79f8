package emu

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/insts"
)

// ErrInstructionLimit is returned when the emulator reaches its instruction
// limit before the program exits.
var ErrInstructionLimit = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated (via exit syscall).
	Exited bool

	// Err is set if execution could not proceed.
	Err error
}

// Emulator executes MIPS instructions functionally, one instruction per
// step with no timing. It runs on the same ALU and load/store unit as the
// pipeline and serves as the reference for its architectural results.
type Emulator struct {
	regFile        *RegFile
	memory         *Memory
	decoder        *insts.Decoder
	syscallHandler SyscallHandler

	alu *ALU
	lsu *LoadStoreUnit

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates an emulator over memory with the PC at TextBase.
func NewEmulator(memory *Memory, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{PC: TextBase},
		memory:  memory,
		decoder: insts.NewDecoder(),
		alu:     NewALU(),
		lsu:     NewLoadStoreUnit(memory),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.syscallHandler == nil {
		e.syscallHandler = NewDefaultSyscallHandler(logrus.StandardLogger())
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions retired. The exit
// syscall does not retire.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Reset clears the registers and the instruction count and sets the PC to
// entry. Memory is left as is.
func (e *Emulator) Reset(entry uint32) {
	*e.regFile = RegFile{PC: entry}
	e.instructionCount = 0
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrInstructionLimit}
	}

	regs := e.regFile
	pc := regs.PC
	inst := e.decoder.Decode(e.memory.Read32(pc))

	a := regs.Operand(inst.SrcA)
	b := regs.Operand(inst.SrcB)
	r := e.alu.Execute(&inst, pc, a, b)

	var loaded uint32
	switch {
	case inst.IsLoad():
		loaded = e.lsu.Load(inst.Op, r.Value)
	case inst.IsStore():
		e.lsu.Store(inst.Op, r.Value, b)
	case inst.IsSyscall():
		if e.syscallHandler.Handle(a).Exited {
			return StepResult{Exited: true}
		}
	}

	if inst.Dest != insts.RegNone {
		regs.WriteReg(uint8(inst.Dest), ResultFor(&inst, inst.Dest, r, loaded))
	}
	if inst.WritesHI {
		regs.HI = ResultFor(&inst, insts.RegHI, r, loaded)
	}
	if inst.WritesLO {
		regs.LO = ResultFor(&inst, insts.RegLO, r, loaded)
	}

	regs.PC = pc + 4
	if r.Taken {
		regs.PC = r.Value
	}

	e.instructionCount++
	return StepResult{}
}

// Run executes instructions until the program exits or an error occurs and
// returns the number of instructions retired.
func (e *Emulator) Run() (uint64, error) {
	for {
		result := e.Step()
		if result.Exited {
			return e.instructionCount, nil
		}
		if result.Err != nil {
			return e.instructionCount, fmt.Errorf("emulation stopped at pc 0x%08x: %w",
				e.regFile.PC, result.Err)
		}
	}
}
