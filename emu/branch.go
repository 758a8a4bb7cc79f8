package emu

import "github.com/sarchlab/mipsim/insts"

// BranchTaken evaluates the condition of a conditional branch.
// Jumps are always taken; other operations never are.
func BranchTaken(op insts.Op, a, b uint32) bool {
	switch op {
	case insts.OpBEQ:
		return a == b
	case insts.OpBNE:
		return a != b
	case insts.OpBLEZ:
		return int32(a) <= 0
	case insts.OpBGTZ:
		return int32(a) > 0
	case insts.OpBLTZ:
		return int32(a) < 0
	case insts.OpBGEZ:
		return int32(a) >= 0
	case insts.OpJ, insts.OpJAL, insts.OpJR, insts.OpJALR:
		return true
	}
	return false
}

// resolveBranch computes target, link address and outcome of a branch or
// jump. There is no delay slot: the link address is pc+4.
func resolveBranch(inst *insts.Instruction, pc, a, b uint32) ALUResult {
	r := ALUResult{Taken: BranchTaken(inst.Op, a, b)}

	switch inst.Op {
	case insts.OpJ:
		r.Value = inst.JumpTarget(pc)
	case insts.OpJAL:
		r.Value = inst.JumpTarget(pc)
		r.Secondary = pc + 4
	case insts.OpJR:
		r.Value = a
	case insts.OpJALR:
		r.Value = a
		r.Secondary = pc + 4
	default:
		r.Value = inst.BranchTarget(pc)
	}

	return r
}
