package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

type recordingHandler struct {
	codes []uint32
}

func (h *recordingHandler) Handle(code uint32) emu.SyscallResult {
	h.codes = append(h.codes, code)
	return emu.SyscallResult{Exited: code == emu.SyscallExit}
}

var _ = Describe("Stages", func() {
	const pc = emu.TextBase

	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewDefaultMemory()
	})

	Describe("FetchStage", func() {
		It("should fetch and decode the word at pc", func() {
			word := insts.EncodeI(insts.OpADDIU, 8, 0, 5)
			memory.Write32(pc, word)

			out := pipeline.NewFetchStage(memory).Fetch(pc)

			Expect(out.InstructionWord).To(Equal(word))
			Expect(out.PC).To(Equal(pc))
			Expect(out.Inst.Op).To(Equal(insts.OpADDIU))
		})

		It("should tag a SYSCALL so it is never a bubble", func() {
			memory.Write32(pc, insts.Syscall)

			out := pipeline.NewFetchStage(memory).Fetch(pc)

			Expect(out.SyscallCode).NotTo(BeZero())
			Expect(out.IsBubble()).To(BeFalse())
		})
	})

	Describe("DecodeStage", func() {
		It("should read operands through the reader", func() {
			in := latchOf(insts.EncodeR(insts.OpADDU, 3, 1, 2, 0), pc)
			regs := map[insts.Reg]uint32{1: 10, 2: 20}

			out := pipeline.NewDecodeStage().Decode(&in, func(r insts.Reg) uint32 {
				return regs[r]
			})

			Expect(out.OperandA).To(Equal(uint32(10)))
			Expect(out.OperandB).To(Equal(uint32(20)))
		})

		It("should capture $v0 as the syscall code", func() {
			in := latchOf(insts.Syscall, pc)

			out := pipeline.NewDecodeStage().Decode(&in, func(r insts.Reg) uint32 {
				if r == 2 {
					return emu.SyscallExit
				}
				return 0
			})

			Expect(out.SyscallCode).To(Equal(emu.SyscallExit))
		})
	})

	Describe("ExecuteStage", func() {
		var stage *pipeline.ExecuteStage

		BeforeEach(func() {
			stage = pipeline.NewExecuteStage()
		})

		execute := func(word, a, b uint32) pipeline.Latch {
			in := latchOf(word, pc)
			in.Immediate = in.Inst.Imm
			return stage.Execute(&in, a, b)
		}

		DescribeTable("ALU results",
			func(word, a, b, expected uint32) {
				Expect(execute(word, a, b).ALUResult).To(Equal(expected))
			},
			Entry("ADDU", insts.EncodeR(insts.OpADDU, 3, 1, 2, 0),
				uint32(7), uint32(5), uint32(12)),
			Entry("ADD wraps", insts.EncodeR(insts.OpADD, 3, 1, 2, 0),
				uint32(0x7FFFFFFF), uint32(1), uint32(0x80000000)),
			Entry("SUBU", insts.EncodeR(insts.OpSUBU, 3, 1, 2, 0),
				uint32(5), uint32(7), uint32(0xFFFFFFFE)),
			Entry("NOR", insts.EncodeR(insts.OpNOR, 3, 1, 2, 0),
				uint32(0xF0F0F0F0), uint32(0x0F0F0F00), uint32(0x0000000F)),
			Entry("SLT signed", insts.EncodeR(insts.OpSLT, 3, 1, 2, 0),
				uint32(0xFFFFFFFF), uint32(1), uint32(1)),
			Entry("SLTU unsigned", insts.EncodeR(insts.OpSLTU, 3, 1, 2, 0),
				uint32(0xFFFFFFFF), uint32(1), uint32(0)),
			Entry("SLL", insts.EncodeR(insts.OpSLL, 3, 0, 2, 4),
				uint32(0), uint32(0x1), uint32(0x10)),
			Entry("SRA keeps the sign", insts.EncodeR(insts.OpSRA, 3, 0, 2, 4),
				uint32(0), uint32(0x80000000), uint32(0xF8000000)),
			Entry("SRLV masks the amount", insts.EncodeR(insts.OpSRLV, 3, 1, 2, 0),
				uint32(33), uint32(0x80000000), uint32(0x40000000)),
			Entry("ADDIU negative", insts.EncodeI(insts.OpADDIU, 3, 1, -1),
				uint32(5), uint32(0), uint32(4)),
			Entry("SLTIU compares the extended immediate unsigned",
				insts.EncodeI(insts.OpSLTIU, 3, 1, -1),
				uint32(5), uint32(0), uint32(1)),
			Entry("ORI zero extends", insts.EncodeI(insts.OpORI, 3, 1, 0x8000),
				uint32(1), uint32(0), uint32(0x8001)),
			Entry("LUI", insts.EncodeI(insts.OpLUI, 3, 0, 0x1001),
				uint32(0), uint32(0), uint32(0x10010000)),
			Entry("LW address", insts.EncodeI(insts.OpLW, 3, 1, -4),
				uint32(0x10010008), uint32(0), uint32(0x10010004)),
		)

		It("should split a signed product into HI and LO", func() {
			out := execute(insts.EncodeR(insts.OpMULT, 0, 1, 2, 0), 0xFFFFFFFE, 3)

			Expect(out.ResultFor(insts.RegHI)).To(Equal(uint32(0xFFFFFFFF)))
			Expect(out.ResultFor(insts.RegLO)).To(Equal(uint32(0xFFFFFFFA)))
		})

		It("should multiply unsigned", func() {
			out := execute(insts.EncodeR(insts.OpMULTU, 0, 1, 2, 0), 0xFFFFFFFF, 2)

			Expect(out.ResultFor(insts.RegHI)).To(Equal(uint32(1)))
			Expect(out.ResultFor(insts.RegLO)).To(Equal(uint32(0xFFFFFFFE)))
		})

		It("should divide signed with a truncated quotient", func() {
			out := execute(insts.EncodeR(insts.OpDIV, 0, 1, 2, 0), uint32(0xFFFFFFF9), 2)

			Expect(int32(out.ResultFor(insts.RegLO))).To(Equal(int32(-3)))
			Expect(int32(out.ResultFor(insts.RegHI))).To(Equal(int32(-1)))
		})

		It("should not trap on division by zero", func() {
			out := execute(insts.EncodeR(insts.OpDIVU, 0, 1, 2, 0), 17, 0)

			Expect(out.ResultFor(insts.RegLO)).To(Equal(uint32(0xFFFFFFFF)))
			Expect(out.ResultFor(insts.RegHI)).To(Equal(uint32(17)))
		})

		It("should not trap on the most negative dividend over -1", func() {
			out := execute(insts.EncodeR(insts.OpDIV, 0, 1, 2, 0), 0x80000000, 0xFFFFFFFF)

			Expect(out.ResultFor(insts.RegLO)).To(Equal(uint32(0x80000000)))
			Expect(out.ResultFor(insts.RegHI)).To(Equal(uint32(0)))
		})

		It("should resolve a taken BEQ to its target", func() {
			out := execute(insts.EncodeI(insts.OpBEQ, 2, 1, 3), 4, 4)

			Expect(out.BranchTaken).To(BeTrue())
			Expect(out.ALUResult).To(Equal(pc + 16))
		})

		It("should resolve a BNE with equal operands as not taken", func() {
			out := execute(insts.EncodeI(insts.OpBNE, 2, 1, 3), 4, 4)

			Expect(out.BranchTaken).To(BeFalse())
		})

		DescribeTable("sign tests",
			func(op insts.Op, a uint32, taken bool) {
				Expect(execute(insts.EncodeI(op, 0, 1, 2), a, 0).BranchTaken).
					To(Equal(taken))
			},
			Entry("BLEZ zero", insts.OpBLEZ, uint32(0), true),
			Entry("BGTZ negative", insts.OpBGTZ, uint32(0xFFFFFFFF), false),
			Entry("BLTZ negative", insts.OpBLTZ, uint32(0xFFFFFFFF), true),
			Entry("BGEZ zero", insts.OpBGEZ, uint32(0), true),
		)

		It("should link JAL to the next instruction", func() {
			out := execute(insts.EncodeJ(insts.OpJAL, 0x00400100), 0, 0)

			Expect(out.BranchTaken).To(BeTrue())
			Expect(out.ALUResult).To(Equal(uint32(0x00400100)))
			Expect(out.ResultFor(31)).To(Equal(pc + 4))
		})

		It("should jump to the register for JR", func() {
			out := execute(insts.EncodeR(insts.OpJR, 0, 31, 0, 0), 0x00400040, 0)

			Expect(out.BranchTaken).To(BeTrue())
			Expect(out.ALUResult).To(Equal(uint32(0x00400040)))
		})

		It("should finalize the syscall code from the forwarded operand", func() {
			out := execute(insts.Syscall, emu.SyscallExit, 0)

			Expect(out.SyscallCode).To(Equal(emu.SyscallExit))
		})
	})

	Describe("MemoryStage", func() {
		var (
			stage   *pipeline.MemoryStage
			handler *recordingHandler
		)

		BeforeEach(func() {
			handler = &recordingHandler{}
			stage = pipeline.NewMemoryStage(memory, handler)
		})

		access := func(word, addr, data uint32) (pipeline.Latch, pipeline.MemoryResult) {
			in := latchOf(word, pc)
			in.ALUResult = addr
			in.OperandB = data
			return stage.Access(&in)
		}

		It("should store and load a word", func() {
			access(insts.EncodeI(insts.OpSW, 5, 4, 0), emu.DataBase, 0xDEADBEEF)
			out, _ := access(insts.EncodeI(insts.OpLW, 5, 4, 0), emu.DataBase, 0)

			Expect(out.LoadedData).To(Equal(uint32(0xDEADBEEF)))
		})

		It("should sign-extend a loaded byte", func() {
			access(insts.EncodeI(insts.OpSB, 5, 4, 0), emu.DataBase+1, 0x1AB)
			out, _ := access(insts.EncodeI(insts.OpLB, 5, 4, 0), emu.DataBase+1, 0)

			Expect(out.LoadedData).To(Equal(uint32(0xFFFFFFAB)))
			Expect(memory.Read8(emu.DataBase + 2)).To(BeZero())
		})

		It("should sign-extend a loaded halfword", func() {
			access(insts.EncodeI(insts.OpSH, 5, 4, 0), emu.DataBase+2, 0x8001)
			out, _ := access(insts.EncodeI(insts.OpLH, 5, 4, 0), emu.DataBase+2, 0)

			Expect(out.LoadedData).To(Equal(uint32(0xFFFF8001)))
		})

		It("should hand syscalls to the handler", func() {
			in := latchOf(insts.Syscall, pc)
			in.SyscallCode = 4

			_, result := stage.Access(&in)
			Expect(result.Exited).To(BeFalse())

			in.SyscallCode = emu.SyscallExit
			_, result = stage.Access(&in)
			Expect(result.Exited).To(BeTrue())
			Expect(handler.codes).To(Equal([]uint32{4, emu.SyscallExit}))
		})

		It("should pass bubbles through untouched", func() {
			bubble := pipeline.Bubble()

			out, result := stage.Access(&bubble)

			Expect(out.IsBubble()).To(BeTrue())
			Expect(result.Exited).To(BeFalse())
			Expect(handler.codes).To(BeEmpty())
		})
	})

	Describe("WritebackStage", func() {
		var (
			stage *pipeline.WritebackStage
			next  emu.RegFile
		)

		BeforeEach(func() {
			stage = pipeline.NewWritebackStage()
			next = emu.RegFile{}
		})

		It("should write the destination register", func() {
			in := latchOf(insts.EncodeI(insts.OpADDIU, 8, 0, 5), pc)
			in.ALUResult = 5

			written := stage.Writeback(&in, &next)

			Expect(next.ReadReg(8)).To(Equal(uint32(5)))
			Expect(written.Has(8)).To(BeTrue())
			Expect(written.Has(9)).To(BeFalse())
		})

		It("should write loaded data for loads", func() {
			in := latchOf(insts.EncodeI(insts.OpLW, 8, 4, 0), pc)
			in.ALUResult = emu.DataBase
			in.LoadedData = 77

			stage.Writeback(&in, &next)

			Expect(next.ReadReg(8)).To(Equal(uint32(77)))
		})

		It("should write HI and LO for DIV", func() {
			in := latchOf(insts.EncodeR(insts.OpDIV, 0, 4, 5, 0), pc)
			in.ALUResult = 3
			in.ALUResultSecondary = 1

			written := stage.Writeback(&in, &next)

			Expect(next.LO).To(Equal(uint32(3)))
			Expect(next.HI).To(Equal(uint32(1)))
			Expect(written.Has(insts.RegHI)).To(BeTrue())
			Expect(written.Has(insts.RegLO)).To(BeTrue())
		})

		It("should write only HI for MTHI", func() {
			in := latchOf(insts.EncodeR(insts.OpMTHI, 0, 4, 0, 0), pc)
			in.ALUResult = 9
			next.LO = 1

			stage.Writeback(&in, &next)

			Expect(next.HI).To(Equal(uint32(9)))
			Expect(next.LO).To(Equal(uint32(1)))
		})

		It("should ignore bubbles", func() {
			bubble := pipeline.Bubble()

			Expect(stage.Writeback(&bubble, &next)).To(BeZero())
		})
	})
})
