package console_test

import (
	"bytes"
	"context"
	"io"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/console"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/shell"
	"github.com/sarchlab/mipsim/timing/core"
)

var _ = Describe("WriteRegisters", func() {
	var c *core.Core

	BeforeEach(func() {
		prog := loader.FromWords(emu.TextBase, []uint32{
			insts.EncodeI(insts.OpADDIU, 2, 0, int32(emu.SyscallExit)),
			insts.Syscall,
		})
		c = core.NewCore(emu.NewDefaultMemory(), prog)
	})

	It("should list the PC and every register by name", func() {
		var buf bytes.Buffer
		c.WriteRegister(8, 0xDEADBEEF)

		console.WriteRegisters(&buf, c)

		Expect(buf.String()).To(ContainSubstring("PC    0x00400000  running"))
		Expect(buf.String()).To(ContainSubstring("$t0   0xdeadbeef"))
		Expect(buf.String()).To(ContainSubstring("$hi   0x00000000"))
		Expect(bytes.Count(buf.Bytes(), []byte("\n"))).To(Equal(36))
	})

	It("should mark a halted core", func() {
		var buf bytes.Buffer
		c.RunToCompletion()

		console.WriteRegisters(&buf, c)

		Expect(buf.String()).To(ContainSubstring("halted"))
		Expect(buf.String()).To(ContainSubstring("$v0   0x0000000a"))
	})
})

type commandResult struct {
	output string
	err    error
}

var _ = Describe("Runner", func() {
	var (
		c      *core.Core
		runner *console.Runner
		done   chan commandResult
	)

	record := func(output string, err error) {
		done <- commandResult{output: output, err: err}
	}

	BeforeEach(func() {
		// No exit syscall: execution runs on through the zeroed text
		// region and never halts.
		prog := loader.FromWords(emu.TextBase, []uint32{
			insts.EncodeI(insts.OpADDIU, 8, 0, 1),
		})
		c = core.NewCore(emu.NewDefaultMemory(), prog)
		runner = console.NewRunner(shell.New(c, io.Discard))
		done = make(chan commandResult, 1)
	})

	It("should return command output when the command finishes", func() {
		Expect(runner.Start(context.Background(), "rdump", record)).To(BeTrue())

		var result commandResult
		Eventually(done).Should(Receive(&result))
		Expect(result.err).NotTo(HaveOccurred())
		Expect(result.output).To(ContainSubstring("Dumping Register Content"))
		Expect(runner.Busy()).To(BeFalse())
	})

	It("should interrupt a simulation that never halts", func() {
		Expect(runner.Start(context.Background(), "sim", record)).To(BeTrue())
		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
		Expect(runner.Busy()).To(BeTrue())
		Expect(runner.Start(context.Background(), "rdump", record)).To(BeFalse())

		Expect(runner.Interrupt()).To(BeTrue())

		var result commandResult
		Eventually(done).Should(Receive(&result))
		Expect(result.err).To(MatchError(context.Canceled))
		Expect(result.output).To(ContainSubstring("Simulation Started..."))
		Expect(runner.Busy()).To(BeFalse())
		Expect(runner.Interrupt()).To(BeFalse())
		Expect(c.Running()).To(BeTrue())
	})

	It("should stop when the parent context is done", func() {
		ctx, cancel := context.WithCancel(context.Background())
		Expect(runner.Start(ctx, "sim", record)).To(BeTrue())

		cancel()

		var result commandResult
		Eventually(done).Should(Receive(&result))
		Expect(result.err).To(MatchError(context.Canceled))
	})

	It("should pass quit through", func() {
		Expect(runner.Start(context.Background(), "quit", record)).To(BeTrue())

		var result commandResult
		Eventually(done).Should(Receive(&result))
		Expect(result.err).To(MatchError(shell.ErrQuit))
	})
})
