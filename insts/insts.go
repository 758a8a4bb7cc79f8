// Package insts provides MIPS instruction definitions and decoding.
//
// This package implements decoding of MIPS32 machine code into structured
// instruction representations. It supports:
//   - R-type ALU, shift, multiply/divide and HI/LO move instructions
//   - I-type ALU instructions with sign- or zero-extended immediates
//   - Loads and stores: LB, LH, LW, SB, SH, SW
//   - Branches and jumps: BEQ, BNE, BLEZ, BGTZ, BLTZ, BGEZ, J, JAL, JR, JALR
//   - SYSCALL
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x24080005) // addiu $t0, $zero, 5
//	fmt.Printf("Op: %v, Rt: %d, Imm: %d\n", inst.Op, inst.Rt, inst.Imm)
//	fmt.Println(insts.Disassemble(0x24080005, 0x00400000))
package insts
