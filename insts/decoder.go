// Package insts provides MIPS instruction definitions and decoding.
package insts

// Op represents a MIPS operation.
type Op uint8

// MIPS operations.
const (
	OpUnknown Op = iota

	// R-type shifts.
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV

	// R-type jumps and syscall.
	OpJR
	OpJALR
	OpSYSCALL

	// HI/LO moves.
	OpMFHI
	OpMTHI
	OpMFLO
	OpMTLO

	// Multiply/divide.
	OpMULT
	OpMULTU
	OpDIV
	OpDIVU

	// R-type ALU.
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU

	// Branches and jumps.
	OpBLTZ
	OpBGEZ
	OpJ
	OpJAL
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ

	// I-type ALU.
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI

	// Loads and stores.
	OpLB
	OpLH
	OpLW
	OpSB
	OpSH
	OpSW
)

var opNames = [...]string{
	OpUnknown: "unknown",
	OpSLL:     "sll", OpSRL: "srl", OpSRA: "sra",
	OpSLLV: "sllv", OpSRLV: "srlv", OpSRAV: "srav",
	OpJR: "jr", OpJALR: "jalr", OpSYSCALL: "syscall",
	OpMFHI: "mfhi", OpMTHI: "mthi", OpMFLO: "mflo", OpMTLO: "mtlo",
	OpMULT: "mult", OpMULTU: "multu", OpDIV: "div", OpDIVU: "divu",
	OpADD: "add", OpADDU: "addu", OpSUB: "sub", OpSUBU: "subu",
	OpAND: "and", OpOR: "or", OpXOR: "xor", OpNOR: "nor",
	OpSLT: "slt", OpSLTU: "sltu",
	OpBLTZ: "bltz", OpBGEZ: "bgez", OpJ: "j", OpJAL: "jal",
	OpBEQ: "beq", OpBNE: "bne", OpBLEZ: "blez", OpBGTZ: "bgtz",
	OpADDI: "addi", OpADDIU: "addiu", OpSLTI: "slti", OpSLTIU: "sltiu",
	OpANDI: "andi", OpORI: "ori", OpXORI: "xori", OpLUI: "lui",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpSB: "sb", OpSH: "sh", OpSW: "sw",
}

// String returns the assembler mnemonic.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // Register
	FormatI              // Immediate
	FormatJ              // Jump
)

// Reg names an operand in the hazard space: 0-31 are the general-purpose
// registers, RegHI and RegLO the multiply/divide accumulators.
type Reg uint8

// Special operand names.
const (
	RegHI   Reg = 32
	RegLO   Reg = 33
	RegNone Reg = 0xFF
)

// Primary opcodes (bits 31:26).
const (
	opcodeSpecial = 0x00
	opcodeRegImm  = 0x01
	opcodeJ       = 0x02
	opcodeJAL     = 0x03
	opcodeBEQ     = 0x04
	opcodeBNE     = 0x05
	opcodeBLEZ    = 0x06
	opcodeBGTZ    = 0x07
	opcodeADDI    = 0x08
	opcodeADDIU   = 0x09
	opcodeSLTI    = 0x0A
	opcodeSLTIU   = 0x0B
	opcodeANDI    = 0x0C
	opcodeORI     = 0x0D
	opcodeXORI    = 0x0E
	opcodeLUI     = 0x0F
	opcodeLB      = 0x20
	opcodeLH      = 0x21
	opcodeLW      = 0x23
	opcodeSB      = 0x28
	opcodeSH      = 0x29
	opcodeSW      = 0x2B
)

// Function codes (bits 5:0) of SPECIAL instructions.
const (
	functSLL     = 0x00
	functSRL     = 0x02
	functSRA     = 0x03
	functSLLV    = 0x04
	functSRLV    = 0x06
	functSRAV    = 0x07
	functJR      = 0x08
	functJALR    = 0x09
	functSYSCALL = 0x0C
	functMFHI    = 0x10
	functMTHI    = 0x11
	functMFLO    = 0x12
	functMTLO    = 0x13
	functMULT    = 0x18
	functMULTU   = 0x19
	functDIV     = 0x1A
	functDIVU    = 0x1B
	functADD     = 0x20
	functADDU    = 0x21
	functSUB     = 0x22
	functSUBU    = 0x23
	functAND     = 0x24
	functOR      = 0x25
	functXOR     = 0x26
	functNOR     = 0x27
	functSLT     = 0x2A
	functSLTU    = 0x2B
)

// REGIMM rt codes.
const (
	regimmBLTZ = 0x00
	regimmBGEZ = 0x01
)

var specialOps = map[uint32]Op{
	functSLL: OpSLL, functSRL: OpSRL, functSRA: OpSRA,
	functSLLV: OpSLLV, functSRLV: OpSRLV, functSRAV: OpSRAV,
	functJR: OpJR, functJALR: OpJALR, functSYSCALL: OpSYSCALL,
	functMFHI: OpMFHI, functMTHI: OpMTHI, functMFLO: OpMFLO, functMTLO: OpMTLO,
	functMULT: OpMULT, functMULTU: OpMULTU, functDIV: OpDIV, functDIVU: OpDIVU,
	functADD: OpADD, functADDU: OpADDU, functSUB: OpSUB, functSUBU: OpSUBU,
	functAND: OpAND, functOR: OpOR, functXOR: OpXOR, functNOR: OpNOR,
	functSLT: OpSLT, functSLTU: OpSLTU,
}

var immOps = map[uint32]Op{
	opcodeJ: OpJ, opcodeJAL: OpJAL,
	opcodeBEQ: OpBEQ, opcodeBNE: OpBNE, opcodeBLEZ: OpBLEZ, opcodeBGTZ: OpBGTZ,
	opcodeADDI: OpADDI, opcodeADDIU: OpADDIU, opcodeSLTI: OpSLTI,
	opcodeSLTIU: OpSLTIU, opcodeANDI: OpANDI, opcodeORI: OpORI,
	opcodeXORI: OpXORI, opcodeLUI: OpLUI,
	opcodeLB: OpLB, opcodeLH: OpLH, opcodeLW: OpLW,
	opcodeSB: OpSB, opcodeSH: OpSH, opcodeSW: OpSW,
}

// Instruction represents a decoded MIPS instruction.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding format
	Word   uint32 // Raw instruction word

	// Register fields as encoded.
	Rs    uint8
	Rt    uint8
	Rd    uint8
	Shamt uint8

	// Imm is the immediate, already sign- or zero-extended as the operation
	// requires. For branches it is the signed word offset.
	Imm uint32

	// Index is the 26-bit J/JAL target field.
	Index uint32

	// Operand roles used by hazard detection. SrcA feeds operand A, SrcB
	// feeds operand B, Dest is the general-purpose destination.
	SrcA Reg
	SrcB Reg
	Dest Reg

	// WritesHI and WritesLO mark multiply/divide and MTHI/MTLO.
	WritesHI bool
	WritesLO bool
}

// Decoder decodes MIPS machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new MIPS instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Words that match no entry of
// the opcode table decode to OpUnknown with no operands.
func (d *Decoder) Decode(word uint32) Instruction {
	inst := Instruction{
		Word:  word,
		Rs:    uint8((word >> 21) & 0x1F),
		Rt:    uint8((word >> 16) & 0x1F),
		Rd:    uint8((word >> 11) & 0x1F),
		Shamt: uint8((word >> 6) & 0x1F),
		Index: word & 0x03FFFFFF,
		SrcA:  RegNone,
		SrcB:  RegNone,
		Dest:  RegNone,
	}

	opcode := word >> 26
	switch opcode {
	case opcodeSpecial:
		inst.Format = FormatR
		inst.Op = specialOps[word&0x3F]
	case opcodeRegImm:
		inst.Format = FormatI
		switch inst.Rt {
		case regimmBLTZ:
			inst.Op = OpBLTZ
		case regimmBGEZ:
			inst.Op = OpBGEZ
		}
	case opcodeJ, opcodeJAL:
		inst.Format = FormatJ
		inst.Op = immOps[opcode]
	default:
		if op, ok := immOps[opcode]; ok {
			inst.Format = FormatI
			inst.Op = op
		}
	}

	if inst.Op == OpUnknown {
		inst.Format = FormatUnknown
		return inst
	}

	d.setImmediate(&inst)
	d.setOperands(&inst)

	return inst
}

func (d *Decoder) setImmediate(inst *Instruction) {
	imm16 := inst.Word & 0xFFFF
	switch inst.Op {
	case OpANDI, OpORI, OpXORI, OpLUI:
		inst.Imm = imm16
	default:
		if inst.Format == FormatI {
			inst.Imm = SignExtend16(imm16)
		}
	}
}

func (d *Decoder) setOperands(inst *Instruction) {
	rs, rt, rd := Reg(inst.Rs), Reg(inst.Rt), Reg(inst.Rd)

	switch inst.Op {
	case OpSLL, OpSRL, OpSRA:
		inst.SrcB, inst.Dest = rt, rd
	case OpSLLV, OpSRLV, OpSRAV,
		OpADD, OpADDU, OpSUB, OpSUBU, OpAND, OpOR, OpXOR, OpNOR, OpSLT, OpSLTU:
		inst.SrcA, inst.SrcB, inst.Dest = rs, rt, rd
	case OpJR:
		inst.SrcA = rs
	case OpJALR:
		inst.SrcA, inst.Dest = rs, rd
	case OpSYSCALL:
		inst.SrcA = Reg(2)
	case OpMFHI:
		inst.SrcA, inst.Dest = RegHI, rd
	case OpMFLO:
		inst.SrcA, inst.Dest = RegLO, rd
	case OpMTHI:
		inst.SrcA, inst.WritesHI = rs, true
	case OpMTLO:
		inst.SrcA, inst.WritesLO = rs, true
	case OpMULT, OpMULTU, OpDIV, OpDIVU:
		inst.SrcA, inst.SrcB = rs, rt
		inst.WritesHI, inst.WritesLO = true, true
	case OpBEQ, OpBNE:
		inst.SrcA, inst.SrcB = rs, rt
	case OpBLEZ, OpBGTZ, OpBLTZ, OpBGEZ:
		inst.SrcA = rs
	case OpJAL:
		inst.Dest = Reg(31)
	case OpADDI, OpADDIU, OpSLTI, OpSLTIU, OpANDI, OpORI, OpXORI,
		OpLB, OpLH, OpLW:
		inst.SrcA, inst.Dest = rs, rt
	case OpLUI:
		inst.Dest = rt
	case OpSB, OpSH, OpSW:
		inst.SrcA, inst.SrcB = rs, rt
	}
}

// SignExtend16 sign-extends the low 16 bits of v to 32 bits.
func SignExtend16(v uint32) uint32 {
	return uint32(int32(int16(uint16(v))))
}

// SignExtend8 sign-extends the low 8 bits of v to 32 bits.
func SignExtend8(v uint32) uint32 {
	return uint32(int32(int8(uint8(v))))
}

// IsBranch reports whether the instruction may change the PC.
func (i *Instruction) IsBranch() bool {
	switch i.Op {
	case OpBEQ, OpBNE, OpBLEZ, OpBGTZ, OpBLTZ, OpBGEZ,
		OpJ, OpJAL, OpJR, OpJALR:
		return true
	}
	return false
}

// IsLoad reports whether the instruction reads data memory.
func (i *Instruction) IsLoad() bool {
	return i.Op == OpLB || i.Op == OpLH || i.Op == OpLW
}

// IsStore reports whether the instruction writes data memory.
func (i *Instruction) IsStore() bool {
	return i.Op == OpSB || i.Op == OpSH || i.Op == OpSW
}

// IsSyscall reports whether the instruction is SYSCALL.
func (i *Instruction) IsSyscall() bool {
	return i.Op == OpSYSCALL
}

// Writes reports whether the instruction produces a value for operand r.
// Register 0 is never reported as written.
func (i *Instruction) Writes(r Reg) bool {
	switch r {
	case RegNone, Reg(0):
		return false
	case RegHI:
		return i.WritesHI
	case RegLO:
		return i.WritesLO
	}
	return i.Dest == r
}
