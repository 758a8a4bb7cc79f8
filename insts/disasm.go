package insts

import "fmt"

var regNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// RegName returns the conventional assembler name of a register, e.g. "$t0".
func RegName(r uint8) string {
	if r >= 32 {
		return fmt.Sprintf("$%d", r)
	}
	return "$" + regNames[r]
}

var defaultDecoder = NewDecoder()

// Disassemble renders one instruction word, fetched from pc, as assembler
// text. Unknown words render as a .word directive.
func Disassemble(word, pc uint32) string {
	if word == 0 {
		return "nop"
	}
	inst := defaultDecoder.Decode(word)
	return inst.Disassemble(pc)
}

// Disassemble renders the decoded instruction as assembler text.
func (i *Instruction) Disassemble(pc uint32) string {
	name := i.Op.String()
	rs, rt, rd := RegName(i.Rs), RegName(i.Rt), RegName(i.Rd)

	switch i.Op {
	case OpUnknown:
		return fmt.Sprintf(".word 0x%08x", i.Word)
	case OpSLL, OpSRL, OpSRA:
		return fmt.Sprintf("%s %s, %s, %d", name, rd, rt, i.Shamt)
	case OpSLLV, OpSRLV, OpSRAV:
		return fmt.Sprintf("%s %s, %s, %s", name, rd, rt, rs)
	case OpJR, OpMTHI, OpMTLO:
		return fmt.Sprintf("%s %s", name, rs)
	case OpJALR:
		return fmt.Sprintf("%s %s, %s", name, rd, rs)
	case OpSYSCALL:
		return name
	case OpMFHI, OpMFLO:
		return fmt.Sprintf("%s %s", name, rd)
	case OpMULT, OpMULTU, OpDIV, OpDIVU:
		return fmt.Sprintf("%s %s, %s", name, rs, rt)
	case OpADD, OpADDU, OpSUB, OpSUBU, OpAND, OpOR, OpXOR, OpNOR, OpSLT, OpSLTU:
		return fmt.Sprintf("%s %s, %s, %s", name, rd, rs, rt)
	case OpBEQ, OpBNE:
		return fmt.Sprintf("%s %s, %s, 0x%08x", name, rs, rt, i.BranchTarget(pc))
	case OpBLEZ, OpBGTZ, OpBLTZ, OpBGEZ:
		return fmt.Sprintf("%s %s, 0x%08x", name, rs, i.BranchTarget(pc))
	case OpJ, OpJAL:
		return fmt.Sprintf("%s 0x%08x", name, i.JumpTarget(pc))
	case OpADDI, OpADDIU, OpSLTI, OpSLTIU:
		return fmt.Sprintf("%s %s, %s, %d", name, rt, rs, int32(i.Imm))
	case OpANDI, OpORI, OpXORI:
		return fmt.Sprintf("%s %s, %s, 0x%x", name, rt, rs, i.Imm)
	case OpLUI:
		return fmt.Sprintf("%s %s, 0x%x", name, rt, i.Imm)
	case OpLB, OpLH, OpLW, OpSB, OpSH, OpSW:
		return fmt.Sprintf("%s %s, %d(%s)", name, rt, int32(i.Imm), rs)
	}

	return fmt.Sprintf(".word 0x%08x", i.Word)
}

// BranchTarget returns the target of a conditional branch fetched from pc.
func (i *Instruction) BranchTarget(pc uint32) uint32 {
	return pc + 4 + i.Imm<<2
}

// JumpTarget returns the target of J/JAL fetched from pc.
func (i *Instruction) JumpTarget(pc uint32) uint32 {
	return (pc+4)&0xF0000000 | i.Index<<2
}
