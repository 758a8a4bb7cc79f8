// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// syscallUnresolved tags a fetched SYSCALL whose code has not been read yet.
const syscallUnresolved uint32 = 0xFFFFFFFF

// Latch holds the state handed from one pipeline stage to the next. The same
// bundle is used at every boundary; each stage fills the fields its consumer
// needs.
type Latch struct {
	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the instruction decoded once at fetch.
	Inst insts.Instruction

	// Operand values read in decode (and forwarded in execute).
	OperandA uint32
	OperandB uint32

	// Immediate is the extended immediate.
	Immediate uint32

	// ALUResult is the primary result: ALU value, effective address, branch
	// target, or HI/quotient for multiply/divide.
	ALUResult uint32

	// ALUResultSecondary holds LO/remainder for multiply/divide and the link
	// address for JAL/JALR.
	ALUResultSecondary uint32

	// LoadedData is the value read by a load.
	LoadedData uint32

	// SyscallCode is the $v0 value of a SYSCALL.
	SyscallCode uint32

	// Forwarding selectors set by decode and consumed by execute.
	ForwardA ForwardSource
	ForwardB ForwardSource

	// BranchTaken is set by execute when the instruction redirects the PC.
	BranchTaken bool
}

// Bubble returns an empty latch.
func Bubble() Latch {
	return Latch{}
}

// IsBubble reports whether the latch carries no instruction.
func (l *Latch) IsBubble() bool {
	return l.InstructionWord == 0 && l.PC == 0 && l.SyscallCode == 0
}

// ResultFor returns the value this instruction produces for operand r.
func (l *Latch) ResultFor(r insts.Reg) uint32 {
	result := emu.ALUResult{Value: l.ALUResult, Secondary: l.ALUResultSecondary}
	return emu.ResultFor(&l.Inst, r, result, l.LoadedData)
}

// Latches holds the four inter-stage registers.
type Latches struct {
	IFID  Latch
	IDEX  Latch
	EXMEM Latch
	MEMWB Latch
}

// FlushYounger turns the count youngest latches into bubbles, starting at
// IF/ID. It returns the number of instructions discarded.
func (l *Latches) FlushYounger(count int) uint64 {
	var flushed uint64
	ordered := []*Latch{&l.IFID, &l.IDEX, &l.EXMEM, &l.MEMWB}
	for i := 0; i < count && i < len(ordered); i++ {
		if !ordered[i].IsBubble() {
			flushed++
		}
		*ordered[i] = Bubble()
	}
	return flushed
}

// Clear resets all latches to bubbles.
func (l *Latches) Clear() {
	l.FlushYounger(4)
}
