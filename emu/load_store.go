package emu

import "github.com/sarchlab/mipsim/insts"

// LoadStoreUnit performs the data memory accesses of loads and stores.
type LoadStoreUnit struct {
	memory *Memory
}

// NewLoadStoreUnit creates a LoadStoreUnit over memory.
func NewLoadStoreUnit(memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{memory: memory}
}

// Load reads the value of a load at addr. Byte and halfword loads are
// sign-extended.
func (u *LoadStoreUnit) Load(op insts.Op, addr uint32) uint32 {
	switch op {
	case insts.OpLB:
		return insts.SignExtend8(uint32(u.memory.Read8(addr)))
	case insts.OpLH:
		return insts.SignExtend16(uint32(u.memory.Read16(addr)))
	case insts.OpLW:
		return u.memory.Read32(addr)
	}
	return 0
}

// Store writes the low byte, halfword or the full word of value to addr.
func (u *LoadStoreUnit) Store(op insts.Op, addr, value uint32) {
	switch op {
	case insts.OpSB:
		u.memory.Write8(addr, uint8(value))
	case insts.OpSH:
		u.memory.Write16(addr, uint16(value))
	case insts.OpSW:
		u.memory.Write32(addr, value)
	}
}
