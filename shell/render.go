package shell

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

const rule = "-------------------------------------\n"

// WriteHelp prints the command menu.
func WriteHelp(w io.Writer) {
	fmt.Fprint(w, "------------------------------------------------------------------\n\n")
	fmt.Fprint(w, "\t**********MIPSIM Help MENU**********\n\n")
	tw := tabwriter.NewWriter(w, 0, 8, 1, '\t', 0)
	for _, cmd := range commands {
		fmt.Fprintf(tw, "%s\t-- %s\n", cmd.usage, cmd.help)
	}
	_ = tw.Flush()
	fmt.Fprint(w, "\n------------------------------------------------------------------\n\n")
}

// WriteRegisters prints the register file with the retirement counters.
func WriteRegisters(w io.Writer, c *core.Core) {
	fmt.Fprint(w, rule)
	fmt.Fprint(w, "Dumping Register Content\n")
	fmt.Fprint(w, rule)
	fmt.Fprintf(w, "# Instructions Executed\t: %d\n", c.Instructions())
	fmt.Fprintf(w, "# Cycles Executed\t: %d\n", c.Cycles())
	fmt.Fprintf(w, "PC\t: 0x%08x\n", c.PC())
	fmt.Fprint(w, rule)
	fmt.Fprint(w, "[Register]\t[Value]\n")
	fmt.Fprint(w, rule)
	for i := uint8(0); i < emu.NumRegs; i++ {
		fmt.Fprintf(w, "[R%d]\t: 0x%08x\n", i, c.ReadRegister(i))
	}
	fmt.Fprint(w, rule)
	fmt.Fprintf(w, "[HI]\t: 0x%08x\n", c.ReadHI())
	fmt.Fprintf(w, "[LO]\t: 0x%08x\n", c.ReadLO())
	fmt.Fprint(w, rule)
}

// dumpCheckInterval is how many words WriteMemory prints between context
// checks.
const dumpCheckInterval = 4096

// WriteMemory prints the words of c between start and stop as it reads them.
// It stops early with ctx's error when ctx is done.
func WriteMemory(ctx context.Context, w io.Writer, c *core.Core, start, stop uint32) error {
	fmt.Fprint(w, "-------------------------------------------------------------\n")
	fmt.Fprintf(w, "Memory content [0x%08x..0x%08x] :\n", start, stop)
	fmt.Fprint(w, "-------------------------------------------------------------\n")
	fmt.Fprint(w, "\t[Address in Hex (Dec) ]\t[Value]\n")

	var n int
	var err error
	c.DumpMemory(start, stop, func(e emu.WordEntry) bool {
		if n++; n%dumpCheckInterval == 0 {
			if err = ctx.Err(); err != nil {
				return false
			}
		}
		fmt.Fprintf(w, "\t0x%08x (%d) :\t0x%08x\n", e.Addr, e.Addr, e.Value)
		return true
	})
	if err != nil {
		return fmt.Errorf("memory dump interrupted: %w", err)
	}

	fmt.Fprint(w, "\n")
	return nil
}

// WriteProgram prints the program text disassembled.
func WriteProgram(w io.Writer, prog *loader.Program) {
	if prog == nil {
		fmt.Fprint(w, "No program loaded.\n")
		return
	}
	for _, word := range prog.Text() {
		fmt.Fprintf(w, "[0x%08x]\t0x%08x\t%s\n",
			word.Addr, word.Value, insts.Disassemble(word.Value, word.Addr))
	}
}

// WritePipeline prints the four latches and the branch resolver state.
func WritePipeline(w io.Writer, c *core.Core) {
	p := c.Pipeline()
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	writeLatch(tw, "IF/ID", p.GetIFID(), "")
	writeLatch(tw, "ID/EX", p.GetIDEX(), fmt.Sprintf("A=0x%08x B=0x%08x imm=0x%08x fwd=%s/%s",
		p.GetIDEX().OperandA, p.GetIDEX().OperandB, p.GetIDEX().Immediate,
		p.GetIDEX().ForwardA, p.GetIDEX().ForwardB))
	writeLatch(tw, "EX/MEM", p.GetEXMEM(), fmt.Sprintf("ALU=0x%08x ALU2=0x%08x B=0x%08x taken=%t",
		p.GetEXMEM().ALUResult, p.GetEXMEM().ALUResultSecondary, p.GetEXMEM().OperandB,
		p.GetEXMEM().BranchTaken))
	writeLatch(tw, "MEM/WB", p.GetMEMWB(), fmt.Sprintf("ALU=0x%08x LMD=0x%08x",
		p.GetMEMWB().ALUResult, p.GetMEMWB().LoadedData))
	_ = tw.Flush()

	fmt.Fprintf(w, "Control: %s  Forwarding: %s\n", p.ControlState(), onOff(c.Forwarding()))
}

func writeLatch(w io.Writer, name string, l *pipeline.Latch, detail string) {
	if l.IsBubble() {
		fmt.Fprintf(w, "%s\t-\tbubble\t\n", name)
		return
	}
	fmt.Fprintf(w, "%s\t0x%08x\t%s\t%s\n", name, l.PC, l.Inst.Disassemble(l.PC), detail)
}

// WriteStats prints the performance counters.
func WriteStats(w io.Writer, c *core.Core) {
	s := c.Stats()
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "Cycles:\t%d\n", s.Cycles)
	fmt.Fprintf(tw, "Instructions:\t%d\n", s.Instructions)
	fmt.Fprintf(tw, "CPI:\t%.3f\n", s.CPI)
	fmt.Fprintf(tw, "Stalls:\t%d (load-use %d)\n", s.Stalls, s.LoadUseStalls)
	fmt.Fprintf(tw, "Fetch bubbles:\t%d\n", s.FetchBubbles)
	fmt.Fprintf(tw, "Flushed:\t%d\n", s.Flushes)
	fmt.Fprintf(tw, "Forwards:\t%d\n", s.Forwards)
	fmt.Fprintf(tw, "Branches:\t%d (taken %d)\n", s.Branches, s.BranchesTaken)
	fmt.Fprintf(tw, "Simulated time:\t%.9fs at %.0f MHz\n",
		s.SimulatedSeconds, float64(c.Frequency()/sim.MHz))
	_ = tw.Flush()
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
