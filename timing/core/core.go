// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"context"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// DefaultFrequency is the clock used to convert cycles into simulated time.
const DefaultFrequency = 1 * sim.GHz

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of bubbles inserted by decode.
	Stalls uint64
	// LoadUseStalls is the part of Stalls caused by load-use dependencies.
	LoadUseStalls uint64
	// FetchBubbles is the number of fetch slots lost to branch resolution.
	FetchBubbles uint64
	// Flushes is the number of instructions squashed by taken branches.
	Flushes uint64
	// Forwards is the number of instructions that used a bypass path.
	Forwards uint64
	// Branches is the number of branches and jumps resolved.
	Branches uint64
	// BranchesTaken is the number of taken branches and jumps.
	BranchesTaken uint64
	// CPI is cycles per retired instruction.
	CPI float64
	// SimulatedSeconds is Cycles at the configured clock frequency.
	SimulatedSeconds float64
}

// Option configures a Core.
type Option func(*Core)

// WithForwarding enables or disables operand forwarding.
func WithForwarding(enabled bool) Option {
	return func(c *Core) {
		c.forwarding = enabled
	}
}

// WithLogger sets the logger shared by the core and its pipeline.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithSyscallHandler replaces the default exit-only syscall handler.
func WithSyscallHandler(handler emu.SyscallHandler) Option {
	return func(c *Core) {
		c.syscallHandler = handler
	}
}

// WithFrequency sets the clock frequency used for simulated time.
func WithFrequency(freq sim.Freq) Option {
	return func(c *Core) {
		c.freq = freq
	}
}

// Core represents a cycle-accurate MIPS core model.
// It owns the architectural state, memory and the loaded program, and drives
// a 5-stage pipeline over them.
type Core struct {
	pipe    *pipeline.Pipeline
	state   *emu.StateBuffer
	memory  *emu.Memory
	program *loader.Program

	forwarding     bool
	freq           sim.Freq
	logger         *logrus.Logger
	syscallHandler emu.SyscallHandler
	log            *logrus.Entry
}

// NewCore creates a Core over memory, loads prog (which may be nil) and
// resets the machine.
func NewCore(memory *emu.Memory, prog *loader.Program, opts ...Option) *Core {
	c := &Core{
		state:   &emu.StateBuffer{},
		memory:  memory,
		program: prog,
		freq:    DefaultFrequency,
		logger:  logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log = c.logger.WithField("component", "core")

	pipeOpts := []pipeline.PipelineOption{
		pipeline.WithForwarding(c.forwarding),
		pipeline.WithLogger(c.logger),
	}
	if c.syscallHandler != nil {
		pipeOpts = append(pipeOpts, pipeline.WithSyscallHandler(c.syscallHandler))
	}
	c.pipe = pipeline.NewPipeline(c.state, memory, pipeOpts...)

	c.Reset()

	return c
}

// Reset zeroes registers and memory, reloads the program, sets the PC to the
// program entry and clears the counters.
func (c *Core) Reset() {
	entry := emu.TextBase
	if c.program != nil {
		c.program.LoadInto(c.memory)
		entry = c.program.EntryPoint
	} else {
		c.memory.Reset()
	}

	c.state.Reset(entry)
	c.pipe.Reset()

	c.log.WithField("pc", entry).Debug("core reset")
}

// LoadProgram replaces the program and resets the core.
func (c *Core) LoadProgram(prog *loader.Program) {
	c.program = prog
	c.Reset()
}

// Program returns the loaded program, or nil.
func (c *Core) Program() *loader.Program {
	return c.program
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.pipe.Tick()
}

// Step executes up to n cycles, stopping early on halt. It returns the number
// of cycles executed.
func (c *Core) Step(n uint32) uint32 {
	var i uint32
	for ; i < n && c.Running(); i++ {
		c.pipe.Tick()
	}
	return i
}

// RunToCompletion ticks until the program halts. Returns the cycles executed.
func (c *Core) RunToCompletion() uint64 {
	return c.pipe.Run()
}

// RunContext ticks until the program halts, limit cycles have run (0 means
// no limit) or ctx is done.
func (c *Core) RunContext(ctx context.Context, limit uint64) (uint64, error) {
	return c.pipe.RunContext(ctx, limit)
}

// Running reports whether the program has not halted.
func (c *Core) Running() bool {
	return !c.pipe.Halted()
}

// Halted returns true if the core has halted (e.g., due to exit syscall).
func (c *Core) Halted() bool {
	return c.pipe.Halted()
}

// PC returns the address of the next fetch.
func (c *Core) PC() uint32 {
	return c.state.Current.PC
}

// ReadRegister returns general-purpose register i.
func (c *Core) ReadRegister(i uint8) uint32 {
	return c.state.Current.ReadReg(i)
}

// WriteRegister sets general-purpose register i outside the pipeline.
func (c *Core) WriteRegister(i uint8, v uint32) {
	c.state.SetReg(i, v)
}

// ReadHI returns the HI register.
func (c *Core) ReadHI() uint32 {
	return c.state.Current.HI
}

// WriteHI sets the HI register.
func (c *Core) WriteHI(v uint32) {
	c.state.SetHI(v)
}

// ReadLO returns the LO register.
func (c *Core) ReadLO() uint32 {
	return c.state.Current.LO
}

// WriteLO sets the LO register.
func (c *Core) WriteLO(v uint32) {
	c.state.SetLO(v)
}

// ReadMemoryWord reads the word at addr.
func (c *Core) ReadMemoryWord(addr uint32) uint32 {
	return c.memory.Read32(addr)
}

// WriteMemoryWord writes the word at addr.
func (c *Core) WriteMemoryWord(addr, v uint32) {
	c.memory.Write32(addr, v)
}

// DumpMemory visits the words from start to stop inclusive until visit
// returns false.
func (c *Core) DumpMemory(start, stop uint32, visit func(emu.WordEntry) bool) {
	c.memory.Dump(start, stop, visit)
}

// Memory returns the memory the core runs on.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Pipeline returns the underlying pipeline for latch inspection.
func (c *Core) Pipeline() *pipeline.Pipeline {
	return c.pipe
}

// Forwarding reports whether operand forwarding is enabled.
func (c *Core) Forwarding() bool {
	return c.pipe.Forwarding()
}

// SetForwarding enables or disables operand forwarding. It takes effect from
// the next decode.
func (c *Core) SetForwarding(enabled bool) {
	c.forwarding = enabled
	c.pipe.SetForwarding(enabled)
	c.log.WithField("forwarding", enabled).Debug("forwarding changed")
}

// Instructions returns the number of retired instructions.
func (c *Core) Instructions() uint64 {
	return c.pipe.Stats().Instructions
}

// Cycles returns the number of cycles simulated since reset.
func (c *Core) Cycles() uint64 {
	return c.pipe.Stats().Cycles
}

// Frequency returns the clock frequency used for simulated time.
func (c *Core) Frequency() sim.Freq {
	return c.freq
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.pipe.Stats()
	stats := Stats{
		Cycles:        pipeStats.Cycles,
		Instructions:  pipeStats.Instructions,
		Stalls:        pipeStats.Stalls,
		LoadUseStalls: pipeStats.LoadUseStalls,
		FetchBubbles:  pipeStats.FetchBubbles,
		Flushes:       pipeStats.Flushes,
		Forwards:      pipeStats.Forwards,
		Branches:      pipeStats.Branches,
		BranchesTaken: pipeStats.BranchesTaken,
		CPI:           pipeStats.CPI(),
	}
	if c.freq > 0 {
		stats.SimulatedSeconds = float64(pipeStats.Cycles) / float64(c.freq)
	}
	return stats
}
