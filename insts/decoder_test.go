package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("R-type instructions", func() {
		It("should decode ADD $t2, $t0, $t1", func() {
			// 000000 01000 01001 01010 00000 100000
			inst := decoder.Decode(0x01095020)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rs).To(Equal(uint8(8)))
			Expect(inst.Rt).To(Equal(uint8(9)))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.SrcA).To(Equal(insts.Reg(8)))
			Expect(inst.SrcB).To(Equal(insts.Reg(9)))
			Expect(inst.Dest).To(Equal(insts.Reg(10)))
		})

		It("should decode SLL with a shift amount and no rs operand", func() {
			word := insts.EncodeR(insts.OpSLL, 3, 0, 4, 7)
			inst := decoder.Decode(word)

			Expect(inst.Op).To(Equal(insts.OpSLL))
			Expect(inst.Shamt).To(Equal(uint8(7)))
			Expect(inst.SrcA).To(Equal(insts.RegNone))
			Expect(inst.SrcB).To(Equal(insts.Reg(4)))
			Expect(inst.Dest).To(Equal(insts.Reg(3)))
		})

		It("should mark MULT as writing HI and LO", func() {
			inst := decoder.Decode(insts.EncodeR(insts.OpMULT, 0, 4, 5, 0))

			Expect(inst.Op).To(Equal(insts.OpMULT))
			Expect(inst.WritesHI).To(BeTrue())
			Expect(inst.WritesLO).To(BeTrue())
			Expect(inst.Dest).To(Equal(insts.RegNone))
			Expect(inst.Writes(insts.RegHI)).To(BeTrue())
			Expect(inst.Writes(insts.RegLO)).To(BeTrue())
		})

		It("should read HI for MFHI", func() {
			inst := decoder.Decode(insts.EncodeR(insts.OpMFHI, 6, 0, 0, 0))

			Expect(inst.SrcA).To(Equal(insts.RegHI))
			Expect(inst.Dest).To(Equal(insts.Reg(6)))
		})

		It("should decode SYSCALL reading $v0", func() {
			inst := decoder.Decode(insts.Syscall)

			Expect(inst.Op).To(Equal(insts.OpSYSCALL))
			Expect(inst.IsSyscall()).To(BeTrue())
			Expect(inst.SrcA).To(Equal(insts.Reg(2)))
		})

		It("should decode JALR as a branch writing rd", func() {
			inst := decoder.Decode(insts.EncodeR(insts.OpJALR, 31, 9, 0, 0))

			Expect(inst.IsBranch()).To(BeTrue())
			Expect(inst.SrcA).To(Equal(insts.Reg(9)))
			Expect(inst.Dest).To(Equal(insts.Reg(31)))
		})
	})

	Describe("I-type instructions", func() {
		It("should decode ADDIU with a sign-extended immediate", func() {
			inst := decoder.Decode(insts.EncodeI(insts.OpADDIU, 8, 0, -1))

			Expect(inst.Op).To(Equal(insts.OpADDIU))
			Expect(inst.Imm).To(Equal(uint32(0xFFFFFFFF)))
			Expect(inst.Dest).To(Equal(insts.Reg(8)))
			Expect(inst.SrcA).To(Equal(insts.Reg(0)))
		})

		It("should zero-extend logical immediates", func() {
			inst := decoder.Decode(insts.EncodeI(insts.OpORI, 8, 8, 0x8001))

			Expect(inst.Op).To(Equal(insts.OpORI))
			Expect(inst.Imm).To(Equal(uint32(0x8001)))
		})

		It("should keep the raw LUI immediate", func() {
			inst := decoder.Decode(insts.EncodeI(insts.OpLUI, 1, 0, 0x1001))

			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Imm).To(Equal(uint32(0x1001)))
			Expect(inst.SrcA).To(Equal(insts.RegNone))
		})

		It("should decode LW as a load", func() {
			// lw $t1, 4($sp)
			inst := decoder.Decode(0x8FA90004)

			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.IsLoad()).To(BeTrue())
			Expect(inst.Rs).To(Equal(uint8(29)))
			Expect(inst.Dest).To(Equal(insts.Reg(9)))
			Expect(inst.Imm).To(Equal(uint32(4)))
		})

		It("should decode SB as a store with two sources", func() {
			inst := decoder.Decode(insts.EncodeI(insts.OpSB, 5, 4, -2))

			Expect(inst.IsStore()).To(BeTrue())
			Expect(inst.SrcA).To(Equal(insts.Reg(4)))
			Expect(inst.SrcB).To(Equal(insts.Reg(5)))
			Expect(inst.Dest).To(Equal(insts.RegNone))
			Expect(inst.Imm).To(Equal(uint32(0xFFFFFFFE)))
		})

		It("should decode REGIMM branches", func() {
			Expect(decoder.Decode(insts.EncodeI(insts.OpBLTZ, 0, 4, 3)).Op).
				To(Equal(insts.OpBLTZ))
			Expect(decoder.Decode(insts.EncodeI(insts.OpBGEZ, 0, 4, 3)).Op).
				To(Equal(insts.OpBGEZ))
		})
	})

	Describe("J-type instructions", func() {
		It("should decode JAL writing $ra", func() {
			inst := decoder.Decode(insts.EncodeJ(insts.OpJAL, 0x00400020))

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Format).To(Equal(insts.FormatJ))
			Expect(inst.Dest).To(Equal(insts.Reg(31)))
			Expect(inst.JumpTarget(0x00400000)).To(Equal(uint32(0x00400020)))
		})
	})

	Describe("targets", func() {
		It("should compute backward branch targets", func() {
			inst := decoder.Decode(insts.EncodeI(insts.OpBNE, 9, 8, -2))

			Expect(inst.BranchTarget(0x00400010)).To(Equal(uint32(0x0040000C)))
		})
	})

	Describe("unknown words", func() {
		It("should decode an unused opcode as unknown without operands", func() {
			inst := decoder.Decode(0xFC000000)

			Expect(inst.Op).To(Equal(insts.OpUnknown))
			Expect(inst.Format).To(Equal(insts.FormatUnknown))
			Expect(inst.SrcA).To(Equal(insts.RegNone))
			Expect(inst.Dest).To(Equal(insts.RegNone))
			Expect(inst.IsBranch()).To(BeFalse())
		})

		It("should decode an unused SPECIAL function as unknown", func() {
			inst := decoder.Decode(0x0000003F)

			Expect(inst.Op).To(Equal(insts.OpUnknown))
		})
	})

	Describe("Writes", func() {
		It("should never report register 0 as written", func() {
			inst := decoder.Decode(insts.EncodeI(insts.OpADDIU, 0, 0, 5))

			Expect(inst.Dest).To(Equal(insts.Reg(0)))
			Expect(inst.Writes(insts.Reg(0))).To(BeFalse())
		})
	})
})

var _ = Describe("Disassemble", func() {
	DescribeTable("renders assembler text",
		func(word, pc uint32, text string) {
			Expect(insts.Disassemble(word, pc)).To(Equal(text))
		},
		Entry("nop", uint32(0), uint32(0x00400000), "nop"),
		Entry("addiu", insts.EncodeI(insts.OpADDIU, 8, 0, 5), uint32(0x00400000),
			"addiu $t0, $zero, 5"),
		Entry("add", uint32(0x01095020), uint32(0x00400000), "add $t2, $t0, $t1"),
		Entry("lw", uint32(0x8FA90004), uint32(0x00400000), "lw $t1, 4($sp)"),
		Entry("beq", insts.EncodeI(insts.OpBEQ, 9, 8, 3), uint32(0x00400000),
			"beq $t0, $t1, 0x00400010"),
		Entry("j", insts.EncodeJ(insts.OpJ, 0x00400040), uint32(0x00400000),
			"j 0x00400040"),
		Entry("syscall", insts.Syscall, uint32(0x00400000), "syscall"),
		Entry("unknown", uint32(0xFC000000), uint32(0x00400000), ".word 0xfc000000"),
	)
})
