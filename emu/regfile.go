// Package emu provides the architectural state of the simulated MIPS
// machine: register file, memory and syscall handling.
package emu

import "github.com/sarchlab/mipsim/insts"

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// Register numbers with a conventional role.
const (
	RegZero uint8 = 0
	RegV0   uint8 = 2
	RegSP   uint8 = 29
	RegRA   uint8 = 31
)

// RegFile represents the MIPS architectural state.
// It contains 32 general-purpose registers, the HI/LO multiply/divide
// accumulators and the program counter.
type RegFile struct {
	// R holds general-purpose registers R0-R31.
	// R[0] is writable storage but always reads as 0.
	R [NumRegs]uint32

	// HI and LO hold multiply/divide results.
	HI uint32
	LO uint32

	// PC is the program counter.
	PC uint32
}

// ReadReg reads a register value. Register 0 and out-of-range numbers
// return 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == RegZero || reg >= NumRegs {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to out-of-range numbers are
// ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg >= NumRegs {
		return
	}
	r.R[reg] = value
}

// Operand reads an operand register, which may be a GPR, HI or LO.
// insts.RegNone reads as 0.
func (r *RegFile) Operand(reg insts.Reg) uint32 {
	switch reg {
	case insts.RegNone:
		return 0
	case insts.RegHI:
		return r.HI
	case insts.RegLO:
		return r.LO
	}
	return r.ReadReg(uint8(reg))
}

// StateBuffer double-buffers the register file. Stages read Current and
// Writeback writes Next; Commit publishes Next at the end of a tick.
type StateBuffer struct {
	Current RegFile
	Next    RegFile
}

// Commit makes the next state current.
func (s *StateBuffer) Commit() {
	s.Current = s.Next
}

// Reset zeroes both copies and sets the PC.
func (s *StateBuffer) Reset(pc uint32) {
	s.Current = RegFile{PC: pc}
	s.Next = s.Current
}

// SetReg writes a register in both copies, bypassing the pipeline.
func (s *StateBuffer) SetReg(reg uint8, value uint32) {
	s.Current.WriteReg(reg, value)
	s.Next.WriteReg(reg, value)
}

// SetHI writes HI in both copies.
func (s *StateBuffer) SetHI(value uint32) {
	s.Current.HI = value
	s.Next.HI = value
}

// SetLO writes LO in both copies.
func (s *StateBuffer) SetLO(value uint32) {
	s.Current.LO = value
	s.Next.LO = value
}

// SetPC writes the PC in both copies.
func (s *StateBuffer) SetPC(pc uint32) {
	s.Current.PC = pc
	s.Next.PC = pc
}
