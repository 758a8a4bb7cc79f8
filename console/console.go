// Package console provides a full-screen terminal front end for the
// simulator. It shows the register file and the pipeline latches next to the
// command output, and feeds the command line into the shell.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jroimartin/gocui"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/shell"
	"github.com/sarchlab/mipsim/timing/core"
)

const (
	viewRegisters = "registers"
	viewPipeline  = "pipeline"
	viewOutput    = "output"
	viewCommand   = "cmd"

	registerWidth  = 36
	pipelineHeight = 9
)

// Console drives a core through the shell inside a gocui screen.
type Console struct {
	core   *core.Core
	runner *Runner
	log    *logrus.Entry
	ctx    context.Context
}

// New creates a console for c. Commands are executed by sh in the background
// and their output is appended to the output view when they finish.
func New(c *core.Core, sh *shell.Shell, logger *logrus.Logger) *Console {
	return &Console{
		core:   c,
		runner: NewRunner(sh),
		log:    logger.WithField("component", "console"),
	}
}

// Run shows the console until the user quits or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return fmt.Errorf("failed to create console: %w", err)
	}
	defer g.Close()

	c.ctx = ctx
	g.Cursor = true
	g.SetManagerFunc(c.layout)

	if err := c.bindKeys(g); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		g.Update(func(*gocui.Gui) error {
			return gocui.ErrQuit
		})
	}()

	c.log.Debug("console started")
	if err := g.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

func (c *Console) bindKeys(g *gocui.Gui) error {
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, c.interrupt); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewCommand, gocui.KeyEnter, gocui.ModNone, c.submit); err != nil {
		return err
	}
	return g.SetKeybinding("", gocui.KeyF5, gocui.ModNone, c.step)
}

func (c *Console) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView(viewRegisters, 0, 0, registerWidth, maxY-4); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Registers"
		c.refreshRegisters(v)
	}

	if v, err := g.SetView(viewPipeline, registerWidth+1, 0, maxX-1, pipelineHeight); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Pipeline"
		c.refreshPipeline(v)
	}

	if v, err := g.SetView(viewOutput, registerWidth+1, pipelineHeight+1, maxX-1, maxY-4); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Output"
		v.Autoscroll = true
		v.Wrap = true
		fmt.Fprint(v, "Enter a command. ? lists commands, F5 steps one cycle, "+
			"Ctrl-C interrupts a running command.\n")
	}

	if v, err := g.SetView(viewCommand, 0, maxY-3, maxX-1, maxY-1); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = strings.TrimSpace(shell.Prompt)
		v.Editable = true
		if _, err := g.SetCurrentView(viewCommand); err != nil {
			return err
		}
	}

	return nil
}

// submit starts the typed command and clears the command line.
func (c *Console) submit(g *gocui.Gui, v *gocui.View) error {
	line := commandLine(v.Buffer())
	v.Clear()
	if err := v.SetCursor(0, 0); err != nil {
		return err
	}

	out, err := g.View(viewOutput)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s%s\n", shell.Prompt, line)
	if !c.runner.Start(c.ctx, line, func(output string, err error) {
		g.Update(func(g *gocui.Gui) error {
			return c.finish(g, output, err)
		})
	}) {
		fmt.Fprint(out, "Busy. Press Ctrl-C to interrupt the running command.\n")
	}

	return nil
}

// finish shows the result of a background command.
func (c *Console) finish(g *gocui.Gui, output string, err error) error {
	out, viewErr := g.View(viewOutput)
	if viewErr != nil {
		return viewErr
	}

	fmt.Fprint(out, output)
	switch {
	case errors.Is(err, shell.ErrQuit):
		return gocui.ErrQuit
	case errors.Is(err, context.Canceled) && c.ctx.Err() == nil:
		fmt.Fprint(out, "Interrupted.\n")
	case err != nil:
		fmt.Fprintf(out, "Error: %v\n", err)
	}

	return c.refresh(g)
}

// interrupt cancels the running command, or quits when nothing runs.
func (c *Console) interrupt(*gocui.Gui, *gocui.View) error {
	if c.runner.Interrupt() {
		c.log.Debug("command interrupted")
		return nil
	}
	return gocui.ErrQuit
}

// step advances the core by one cycle unless a command is running.
func (c *Console) step(g *gocui.Gui, _ *gocui.View) error {
	if c.runner.Busy() {
		return nil
	}
	c.core.Step(1)
	return c.refresh(g)
}

func (c *Console) refresh(g *gocui.Gui) error {
	regs, err := g.View(viewRegisters)
	if err != nil {
		return err
	}
	c.refreshRegisters(regs)

	pipe, err := g.View(viewPipeline)
	if err != nil {
		return err
	}
	c.refreshPipeline(pipe)

	return nil
}

func (c *Console) refreshRegisters(v *gocui.View) {
	v.Clear()
	WriteRegisters(v, c.core)
}

func (c *Console) refreshPipeline(v *gocui.View) {
	v.Clear()
	shell.WritePipeline(v, c.core)
}

// commandLine extracts the command from an editable view buffer.
func commandLine(buffer string) string {
	return strings.TrimSpace(strings.ReplaceAll(buffer, "\n", " "))
}

// WriteRegisters prints a compact register table, one register per line,
// using ABI names.
func WriteRegisters(w io.Writer, c *core.Core) {
	state := "running"
	if c.Halted() {
		state = "halted"
	}
	fmt.Fprintf(w, "PC    0x%08x  %s\n", c.PC(), state)
	fmt.Fprintf(w, "cycle %-10d inst %d\n", c.Cycles(), c.Instructions())
	for i := uint8(0); i < emu.NumRegs; i++ {
		fmt.Fprintf(w, "%-5s 0x%08x\n", insts.RegName(i), c.ReadRegister(i))
	}
	fmt.Fprintf(w, "%-5s 0x%08x\n", "$hi", c.ReadHI())
	fmt.Fprintf(w, "%-5s 0x%08x\n", "$lo", c.ReadLO())
}
