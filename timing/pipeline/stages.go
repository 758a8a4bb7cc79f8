package pipeline

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// FetchStage handles instruction fetch from memory.
type FetchStage struct {
	memory  *emu.Memory
	decoder *insts.Decoder
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory *emu.Memory) *FetchStage {
	return &FetchStage{
		memory:  memory,
		decoder: insts.NewDecoder(),
	}
}

// Fetch reads and decodes the instruction at the given PC.
func (s *FetchStage) Fetch(pc uint32) Latch {
	word := s.memory.Read32(pc)
	out := Latch{
		InstructionWord: word,
		PC:              pc,
		Inst:            s.decoder.Decode(word),
	}
	if out.Inst.IsSyscall() {
		out.SyscallCode = syscallUnresolved
	}
	return out
}

// RegisterReader returns the value of an operand register.
type RegisterReader func(r insts.Reg) uint32

// DecodeStage handles register read.
type DecodeStage struct{}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage() *DecodeStage {
	return &DecodeStage{}
}

// Decode reads the operands of the instruction in IF/ID.
func (s *DecodeStage) Decode(in *Latch, read RegisterReader) Latch {
	out := *in
	out.OperandA = read(in.Inst.SrcA)
	out.OperandB = read(in.Inst.SrcB)
	out.Immediate = in.Inst.Imm
	if in.Inst.IsSyscall() {
		out.SyscallCode = out.OperandA
	}
	return out
}

// ExecuteStage handles ALU operations, multiply/divide and branch resolution.
type ExecuteStage struct {
	alu *emu.ALU
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{alu: emu.NewALU()}
}

// Execute computes the result of the instruction in ID/EX using the
// (possibly forwarded) operands a and b. Branch and jump targets are stored
// in ALUResult and link addresses in ALUResultSecondary.
func (s *ExecuteStage) Execute(in *Latch, a, b uint32) Latch {
	out := *in
	out.OperandA = a
	out.OperandB = b

	r := s.alu.Execute(&in.Inst, in.PC, a, b)
	out.ALUResult = r.Value
	out.ALUResultSecondary = r.Secondary
	out.BranchTaken = r.Taken

	if in.Inst.IsSyscall() {
		out.SyscallCode = a
	}

	return out
}

// MemoryStage handles memory reads and writes, and hands syscalls to the
// syscall handler.
type MemoryStage struct {
	lsu     *emu.LoadStoreUnit
	handler emu.SyscallHandler
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.Memory, handler emu.SyscallHandler) *MemoryStage {
	return &MemoryStage{
		lsu:     emu.NewLoadStoreUnit(memory),
		handler: handler,
	}
}

// MemoryResult reports side effects of the memory stage.
type MemoryResult struct {
	Exited bool
}

// Access performs the memory operation of the instruction in EX/MEM.
func (s *MemoryStage) Access(in *Latch) (Latch, MemoryResult) {
	out := *in
	result := MemoryResult{}

	if in.IsBubble() {
		return out, result
	}

	addr := in.ALUResult
	switch {
	case in.Inst.IsLoad():
		out.LoadedData = s.lsu.Load(in.Inst.Op, addr)
		out.ALUResult = out.LoadedData
	case in.Inst.IsStore():
		s.lsu.Store(in.Inst.Op, addr, in.OperandB)
	case in.Inst.IsSyscall():
		result.Exited = s.handler.Handle(in.SyscallCode).Exited
	}

	return out, result
}

// WritebackStage handles register writeback.
type WritebackStage struct{}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage() *WritebackStage {
	return &WritebackStage{}
}

// WriteSet is a bitmask of operand registers, including HI and LO.
type WriteSet uint64

// Has reports whether r is in the set.
func (w WriteSet) Has(r insts.Reg) bool {
	if r >= 64 {
		return false
	}
	return w&(1<<uint(r)) != 0
}

func (w *WriteSet) add(r insts.Reg) {
	*w |= 1 << uint(r)
}

// Writeback writes the results of the instruction in MEM/WB to next and
// returns the registers written.
func (s *WritebackStage) Writeback(in *Latch, next *emu.RegFile) WriteSet {
	var written WriteSet
	if in.IsBubble() {
		return written
	}

	inst := &in.Inst
	if inst.Dest != insts.RegNone {
		next.WriteReg(uint8(inst.Dest), in.ResultFor(inst.Dest))
		written.add(inst.Dest)
	}
	if inst.WritesHI {
		next.HI = in.ResultFor(insts.RegHI)
		written.add(insts.RegHI)
	}
	if inst.WritesLO {
		next.LO = in.ResultFor(insts.RegLO)
		written.add(insts.RegLO)
	}

	return written
}
