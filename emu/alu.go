package emu

import (
	"math"

	"github.com/sarchlab/mipsim/insts"
)

// ALUResult is the combinational result of one instruction.
//
// For multiply Value is HI and Secondary is LO; for divide Value is the
// quotient and Secondary the remainder. For branches and jumps Value is the
// target and Secondary the link address.
type ALUResult struct {
	Value     uint32
	Secondary uint32
	Taken     bool
}

// ALU implements MIPS arithmetic, logic, multiply/divide and control-flow
// evaluation. It holds no state and is shared by the pipeline and the
// functional emulator.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Execute evaluates inst fetched from pc with operands a and b.
// Loads and stores return the effective address.
func (u *ALU) Execute(inst *insts.Instruction, pc, a, b uint32) ALUResult {
	var r ALUResult
	imm := inst.Imm
	shamt := uint32(inst.Shamt)

	switch inst.Op {
	case insts.OpSLL:
		r.Value = b << shamt
	case insts.OpSRL:
		r.Value = b >> shamt
	case insts.OpSRA:
		r.Value = uint32(int32(b) >> shamt)
	case insts.OpSLLV:
		r.Value = b << (a & 0x1F)
	case insts.OpSRLV:
		r.Value = b >> (a & 0x1F)
	case insts.OpSRAV:
		r.Value = uint32(int32(b) >> (a & 0x1F))

	case insts.OpMFHI, insts.OpMFLO, insts.OpMTHI, insts.OpMTLO:
		r.Value = a

	case insts.OpMULT:
		product := int64(int32(a)) * int64(int32(b))
		r.Value = uint32(uint64(product) >> 32)
		r.Secondary = uint32(product)
	case insts.OpMULTU:
		product := uint64(a) * uint64(b)
		r.Value = uint32(product >> 32)
		r.Secondary = uint32(product)
	case insts.OpDIV:
		r.Value, r.Secondary = divideSigned(a, b)
	case insts.OpDIVU:
		r.Value, r.Secondary = divideUnsigned(a, b)

	case insts.OpADD, insts.OpADDU:
		r.Value = a + b
	case insts.OpSUB, insts.OpSUBU:
		r.Value = a - b
	case insts.OpAND:
		r.Value = a & b
	case insts.OpOR:
		r.Value = a | b
	case insts.OpXOR:
		r.Value = a ^ b
	case insts.OpNOR:
		r.Value = ^(a | b)
	case insts.OpSLT:
		r.Value = boolToWord(int32(a) < int32(b))
	case insts.OpSLTU:
		r.Value = boolToWord(a < b)

	case insts.OpADDI, insts.OpADDIU:
		r.Value = a + imm
	case insts.OpSLTI:
		r.Value = boolToWord(int32(a) < int32(imm))
	case insts.OpSLTIU:
		r.Value = boolToWord(a < imm)
	case insts.OpANDI:
		r.Value = a & imm
	case insts.OpORI:
		r.Value = a | imm
	case insts.OpXORI:
		r.Value = a ^ imm
	case insts.OpLUI:
		r.Value = imm << 16

	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpSB, insts.OpSH, insts.OpSW:
		r.Value = a + imm

	default:
		if inst.IsBranch() {
			r = resolveBranch(inst, pc, a, b)
		}
	}

	return r
}

// ResultFor selects the value an instruction writes to operand register reg
// from its ALU result and, for loads, the loaded data.
func ResultFor(inst *insts.Instruction, reg insts.Reg, r ALUResult, loaded uint32) uint32 {
	op := inst.Op
	switch reg {
	case insts.RegHI:
		if op == insts.OpDIV || op == insts.OpDIVU {
			return r.Secondary
		}
		return r.Value
	case insts.RegLO:
		if op == insts.OpMULT || op == insts.OpMULTU {
			return r.Secondary
		}
		return r.Value
	}

	switch {
	case inst.IsLoad():
		return loaded
	case op == insts.OpJAL || op == insts.OpJALR:
		return r.Secondary
	}
	return r.Value
}

// divideSigned returns quotient and remainder. Division by zero yields an
// all-ones quotient and the dividend as remainder.
func divideSigned(a, b uint32) (quotient, remainder uint32) {
	if b == 0 {
		return 0xFFFFFFFF, a
	}
	if int32(a) == math.MinInt32 && int32(b) == -1 {
		return a, 0
	}
	return uint32(int32(a) / int32(b)), uint32(int32(a) % int32(b))
}

func divideUnsigned(a, b uint32) (quotient, remainder uint32) {
	if b == 0 {
		return 0xFFFFFFFF, a
	}
	return a / b, a % b
}

func boolToWord(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
