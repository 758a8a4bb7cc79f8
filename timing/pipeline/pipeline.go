package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// flushDepth is the number of latches a taken branch squashes.
const flushDepth = 2

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Stalls is the number of bubbles inserted by decode.
	Stalls uint64
	// LoadUseStalls is the part of Stalls caused by a load feeding the next
	// instruction.
	LoadUseStalls uint64
	// FetchBubbles is the number of fetch slots lost while a branch resolves.
	FetchBubbles uint64
	// Flushes is the number of instructions squashed by taken branches.
	Flushes uint64
	// Forwards is the number of instructions that used a bypass path.
	Forwards uint64
	// Branches is the number of branches and jumps resolved.
	Branches uint64
	// BranchesTaken is the number of resolved branches that were taken.
	BranchesTaken uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler emu.SyscallHandler) PipelineOption {
	return func(p *Pipeline) {
		p.syscallHandler = handler
	}
}

// WithForwarding enables or disables operand forwarding.
func WithForwarding(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.hazardUnit.SetForwarding(enabled)
	}
}

// WithLogger sets the logger used for stage tracing and pipeline events.
func WithLogger(logger *logrus.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = logger.WithField("component", "pipeline")
	}
}

// Pipeline implements a 5-stage pipelined MIPS CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	latches Latches

	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	hazardUnit *HazardUnit
	control    *ControlResolver

	state          *emu.StateBuffer
	memory         *emu.Memory
	syscallHandler emu.SyscallHandler
	log            *logrus.Entry

	// writtenThisTick lists the registers writeback updated in the current
	// tick. Decode reads those from the next state.
	writtenThisTick WriteSet

	stats  Statistics
	halted bool
}

// NewPipeline creates a new pipeline over the given architectural state and
// memory.
func NewPipeline(
	state *emu.StateBuffer,
	memory *emu.Memory,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		fetchStage:     NewFetchStage(memory),
		decodeStage:    NewDecodeStage(),
		executeStage:   NewExecuteStage(),
		writebackStage: NewWritebackStage(),
		hazardUnit:     NewHazardUnit(false),
		control:        NewControlResolver(),
		state:          state,
		memory:         memory,
		log:            logrus.StandardLogger().WithField("component", "pipeline"),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.syscallHandler == nil {
		p.syscallHandler = emu.NewDefaultSyscallHandler(p.log)
	}
	p.memoryStage = NewMemoryStage(memory, p.syscallHandler)

	return p
}

// Latches returns the inter-stage registers.
func (p *Pipeline) Latches() *Latches {
	return &p.latches
}

// GetIFID returns the IF/ID pipeline register.
func (p *Pipeline) GetIFID() *Latch {
	return &p.latches.IFID
}

// GetIDEX returns the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() *Latch {
	return &p.latches.IDEX
}

// GetEXMEM returns the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() *Latch {
	return &p.latches.EXMEM
}

// GetMEMWB returns the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() *Latch {
	return &p.latches.MEMWB
}

// ControlState returns the state of the branch resolver.
func (p *Pipeline) ControlState() ControlState {
	return p.control.State()
}

// Forwarding reports whether operand forwarding is enabled.
func (p *Pipeline) Forwarding() bool {
	return p.hazardUnit.Forwarding()
}

// SetForwarding enables or disables operand forwarding.
func (p *Pipeline) SetForwarding(enabled bool) {
	p.hazardUnit.SetForwarding(enabled)
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Run executes the pipeline until it halts. Returns the cycles executed.
func (p *Pipeline) Run() uint64 {
	start := p.stats.Cycles
	for !p.halted {
		p.Tick()
	}
	return p.stats.Cycles - start
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// RunContext ticks until the pipeline halts, limit cycles have run (0 means
// no limit), or ctx is done. It returns the cycles executed.
func (p *Pipeline) RunContext(ctx context.Context, limit uint64) (uint64, error) {
	var n uint64
	for !p.halted {
		if limit != 0 && n >= limit {
			return n, nil
		}
		if err := ctx.Err(); err != nil {
			return n, fmt.Errorf("pipeline stopped after %d cycles: %w", n, err)
		}
		p.Tick()
		n++
	}
	return n, nil
}

// Tick executes one pipeline cycle.
//
// Stages are evaluated in reverse order (WB→MEM→EX→ID→IF). Each stage reads
// the latches as they were at the start of the cycle and its output is
// latched at the end, so an instruction advances exactly one stage per tick.
//
// Hazard handling:
//   - Decode compares its sources against the instructions in EX and MEM.
//     Without forwarding it stalls until the producer reaches writeback;
//     with forwarding only a load feeding the next instruction stalls.
//   - Writeback updates the next register state before decode runs, and
//     decode reads those registers from the next state.
//   - A branch stops fetch while it executes. A taken branch squashes the
//     two younger latches and fetch restarts at the target.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.stats.Cycles++

	redirect := p.control.Advance(&p.latches.EXMEM)
	if redirect.Resolved {
		p.stats.Branches++
	}
	if redirect.Flush {
		p.stats.BranchesTaken++
		p.stats.Flushes += p.latches.FlushYounger(flushDepth)
		p.log.WithFields(logrus.Fields{
			"cycle":  p.stats.Cycles,
			"target": fmt.Sprintf("0x%08x", redirect.Target),
		}).Debug("branch taken, flushing younger stages")
	}
	fetchSuppressed := p.control.SuppressesFetch()

	// Stage 5: Writeback
	p.trace("WB", &p.latches.MEMWB)
	p.writtenThisTick = p.writebackStage.Writeback(&p.latches.MEMWB, &p.state.Next)
	if !p.latches.MEMWB.IsBubble() {
		p.stats.Instructions++
	}

	// Stage 4: Memory
	p.trace("MEM", &p.latches.EXMEM)
	nextMEMWB, memResult := p.memoryStage.Access(&p.latches.EXMEM)
	if memResult.Exited {
		p.halted = true
		p.log.WithField("cycle", p.stats.Cycles).Debug("exit syscall, halting")
	}

	// Stage 3: Execute
	p.trace("EX", &p.latches.IDEX)
	nextEXMEM := p.tickExecute()

	// Stage 2: Decode
	p.trace("ID", &p.latches.IFID)
	nextIDEX, stall := p.tickDecode()

	// Stage 1: Fetch
	nextIFID := p.latches.IFID
	switch {
	case stall:
		// Hold IF/ID and the PC.
	case fetchSuppressed:
		nextIFID = Bubble()
		p.stats.FetchBubbles++
	default:
		pc := p.state.Current.PC
		if redirect.Flush {
			pc = redirect.Target
		}
		nextIFID = p.fetchStage.Fetch(pc)
		p.state.Next.PC = pc + 4
		p.trace("IF", &nextIFID)
	}

	p.latches.IFID = nextIFID
	p.latches.IDEX = nextIDEX
	p.latches.EXMEM = nextEXMEM
	p.latches.MEMWB = nextMEMWB
	p.state.Commit()
}

// tickExecute applies the forwarding selectors recorded in ID/EX and runs
// the execute stage.
func (p *Pipeline) tickExecute() Latch {
	idex := &p.latches.IDEX
	if idex.IsBubble() {
		return Bubble()
	}

	a := p.hazardUnit.GetForwardedValue(idex.ForwardA, idex.Inst.SrcA,
		idex.OperandA, &p.latches.EXMEM, &p.latches.MEMWB)
	b := p.hazardUnit.GetForwardedValue(idex.ForwardB, idex.Inst.SrcB,
		idex.OperandB, &p.latches.EXMEM, &p.latches.MEMWB)

	return p.executeStage.Execute(idex, a, b)
}

// tickDecode runs hazard detection and the decode stage. It returns the new
// ID/EX latch and whether IF/ID must be held.
func (p *Pipeline) tickDecode() (Latch, bool) {
	ifid := &p.latches.IFID
	if ifid.IsBubble() {
		return Bubble(), false
	}

	inst := &ifid.Inst
	if inst.IsBranch() && p.control.Busy() {
		p.stats.Stalls++
		return Bubble(), true
	}

	hazard := p.hazardUnit.Detect(inst, &p.latches.IDEX, &p.latches.EXMEM)
	if hazard.Stall {
		p.stats.Stalls++
		if hazard.LoadUse {
			p.stats.LoadUseStalls++
		}
		return Bubble(), true
	}

	out := p.decodeStage.Decode(ifid, p.readOperand)
	out.ForwardA = hazard.ForwardA
	out.ForwardB = hazard.ForwardB
	if hazard.Forwards() {
		p.stats.Forwards++
	}

	if inst.IsBranch() {
		p.control.Detect()
	}

	return out, false
}

// readOperand reads a source register, seeing values written back in the
// current tick.
func (p *Pipeline) readOperand(r insts.Reg) uint32 {
	regs := &p.state.Current
	if p.writtenThisTick.Has(r) {
		regs = &p.state.Next
	}

	return regs.Operand(r)
}

func (p *Pipeline) trace(stage string, l *Latch) {
	if !p.log.Logger.IsLevelEnabled(logrus.TraceLevel) || l.IsBubble() {
		return
	}
	p.log.WithFields(logrus.Fields{
		"cycle": p.stats.Cycles,
		"stage": stage,
		"pc":    fmt.Sprintf("0x%08x", l.PC),
		"inst":  l.Inst.Disassemble(l.PC),
	}).Trace("stage")
}

// Reset clears the latches, statistics and branch state. Architectural
// state and memory are owned by the caller.
func (p *Pipeline) Reset() {
	p.latches.Clear()
	p.control.Reset()
	p.stats = Statistics{}
	p.writtenThisTick = 0
	p.halted = false
	p.log.Debug("pipeline reset")
}
