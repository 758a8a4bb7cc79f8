package insts

// Encoders for building programs in tests and fixtures. They are the inverse
// of Decoder.Decode for the supported operations.

// EncodeR encodes a SPECIAL (R-type) instruction.
func EncodeR(op Op, rd, rs, rt, shamt uint8) uint32 {
	var funct uint32
	for f, o := range specialOps {
		if o == op {
			funct = f
			break
		}
	}
	return uint32(rs&0x1F)<<21 | uint32(rt&0x1F)<<16 | uint32(rd&0x1F)<<11 |
		uint32(shamt&0x1F)<<6 | funct
}

// EncodeI encodes an I-type instruction. imm is truncated to 16 bits.
// For BLTZ/BGEZ rt is ignored.
func EncodeI(op Op, rt, rs uint8, imm int32) uint32 {
	var opcode uint32
	switch op {
	case OpBLTZ:
		opcode, rt = opcodeRegImm, regimmBLTZ
	case OpBGEZ:
		opcode, rt = opcodeRegImm, regimmBGEZ
	default:
		for c, o := range immOps {
			if o == op {
				opcode = c
				break
			}
		}
	}
	return opcode<<26 | uint32(rs&0x1F)<<21 | uint32(rt&0x1F)<<16 |
		uint32(imm)&0xFFFF
}

// EncodeJ encodes J or JAL with an absolute byte target.
func EncodeJ(op Op, target uint32) uint32 {
	opcode := uint32(opcodeJ)
	if op == OpJAL {
		opcode = opcodeJAL
	}
	return opcode<<26 | (target>>2)&0x03FFFFFF
}

// Syscall is the SYSCALL instruction word.
const Syscall uint32 = functSYSCALL
