// Package shell implements the line-oriented command language used to drive
// the simulator interactively.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/core"
)

// Prompt is printed before every command read by Run.
const Prompt = "MIPSIM:> "

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

// ErrUsage is wrapped by errors about malformed command arguments.
var ErrUsage = errors.New("usage")

type command struct {
	names []string
	usage string
	help  string
	run   func(s *Shell, ctx context.Context, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{[]string{"sim"}, "sim", "simulate program to completion", (*Shell).sim},
		{[]string{"run"}, "run <n>", "simulate program for <n> cycles", (*Shell).run},
		{[]string{"rdump"}, "rdump", "dump register values", (*Shell).rdump},
		{[]string{"reset"}, "reset", "clears all registers/memory and re-loads the program",
			(*Shell).reset},
		{[]string{"input"}, "input <reg> <val>", "set GPR <reg> to <val>", (*Shell).input},
		{[]string{"mdump"}, "mdump <start> <stop>", "dump memory from <start> to <stop> address",
			(*Shell).mdump},
		{[]string{"high"}, "high <val>", "set the HI register to <val>", (*Shell).high},
		{[]string{"low"}, "low <val>", "set the LO register to <val>", (*Shell).low},
		{[]string{"print"}, "print", "print the program loaded into memory", (*Shell).print},
		{[]string{"show"}, "show", "print the current content of the pipeline registers",
			(*Shell).show},
		{[]string{"stats"}, "stats", "print performance counters", (*Shell).stats},
		{[]string{"forwarding", "f"}, "forwarding <0|1>", "disable or enable forwarding",
			(*Shell).forwarding},
		{[]string{"?", "help"}, "?", "display help menu", (*Shell).help},
		{[]string{"quit", "q", "exit"}, "quit", "exit the simulator", (*Shell).quit},
	}
}

// Option configures a Shell.
type Option func(*Shell)

// WithMaxCycles bounds the sim command. 0 means unlimited.
func WithMaxCycles(n uint64) Option {
	return func(s *Shell) {
		s.maxCycles = n
	}
}

// WithLogger sets the logger for command events.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Shell) {
		s.log = logger.WithField("component", "shell")
	}
}

// Shell executes simulator commands against a core.
type Shell struct {
	core      *core.Core
	out       io.Writer
	maxCycles uint64
	log       *logrus.Entry
}

// New creates a shell writing its output to out.
func New(c *core.Core, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		core: c,
		out:  out,
		log:  logrus.StandardLogger().WithField("component", "shell"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOutput redirects command output.
func (s *Shell) SetOutput(out io.Writer) {
	s.out = out
}

// Run reads commands from in until it is exhausted, quit is entered or ctx
// is done. Command errors are printed and do not stop the loop.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		err := s.Execute(ctx, scanner.Text())
		switch {
		case errors.Is(err, ErrQuit):
			return nil
		case err != nil:
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Execute runs one command line. Empty lines do nothing.
func (s *Shell) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name := strings.ToLower(fields[0])
	for i := range commands {
		for _, n := range commands[i].names {
			if n == name {
				s.log.WithField("command", line).Debug("execute")
				return commands[i].run(s, ctx, fields[1:])
			}
		}
	}

	fmt.Fprint(s.out, "Invalid Command.\n")
	return nil
}

func (s *Shell) sim(ctx context.Context, _ []string) error {
	if !s.core.Running() {
		fmt.Fprint(s.out, "Simulation Stopped.\n\n")
		return nil
	}

	fmt.Fprint(s.out, "Simulation Started...\n\n")
	n, err := s.core.RunContext(ctx, s.maxCycles)
	if err != nil {
		return err
	}

	if s.core.Running() {
		fmt.Fprintf(s.out, "Simulation paused after %d cycles (cycle limit).\n\n", n)
		return nil
	}
	fmt.Fprint(s.out, "Simulation Finished.\n\n")
	return nil
}

func (s *Shell) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: run <n>", ErrUsage)
	}
	n, err := parseWord(args[0])
	if err != nil {
		return err
	}

	if !s.core.Running() {
		fmt.Fprint(s.out, "Simulation Stopped\n\n")
		return nil
	}

	fmt.Fprintf(s.out, "Running simulator for %d cycles...\n\n", n)
	if n == 0 {
		return nil
	}
	ran, err := s.core.RunContext(ctx, uint64(n))
	if err != nil {
		return err
	}
	if ran < uint64(n) {
		fmt.Fprint(s.out, "Simulation Stopped.\n\n")
	}
	return nil
}

func (s *Shell) rdump(_ context.Context, _ []string) error {
	WriteRegisters(s.out, s.core)
	return nil
}

func (s *Shell) reset(_ context.Context, _ []string) error {
	s.core.Reset()
	return nil
}

func (s *Shell) input(_ context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: input <reg> <val>", ErrUsage)
	}
	reg, err := parseWord(args[0])
	if err != nil {
		return err
	}
	if reg >= emu.NumRegs {
		return fmt.Errorf("invalid register %d", reg)
	}
	value, err := parseValue(args[1])
	if err != nil {
		return err
	}

	s.core.WriteRegister(uint8(reg), value)
	return nil
}

func (s *Shell) mdump(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: mdump <start> <stop>", ErrUsage)
	}
	start, err := parseWord(args[0])
	if err != nil {
		return err
	}
	stop, err := parseWord(args[1])
	if err != nil {
		return err
	}

	return WriteMemory(ctx, s.out, s.core, start, stop)
}

func (s *Shell) high(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: high <val>", ErrUsage)
	}
	value, err := parseValue(args[0])
	if err != nil {
		return err
	}
	s.core.WriteHI(value)
	return nil
}

func (s *Shell) low(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: low <val>", ErrUsage)
	}
	value, err := parseValue(args[0])
	if err != nil {
		return err
	}
	s.core.WriteLO(value)
	return nil
}

func (s *Shell) print(_ context.Context, _ []string) error {
	WriteProgram(s.out, s.core.Program())
	return nil
}

func (s *Shell) show(_ context.Context, _ []string) error {
	WritePipeline(s.out, s.core)
	return nil
}

func (s *Shell) stats(_ context.Context, _ []string) error {
	WriteStats(s.out, s.core)
	return nil
}

func (s *Shell) forwarding(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: forwarding <0|1>", ErrUsage)
	}
	v, err := parseWord(args[0])
	if err != nil {
		return err
	}

	s.core.SetForwarding(v != 0)
	fmt.Fprintf(s.out, "Forwarding %s\n", onOff(v != 0))
	return nil
}

func (s *Shell) help(_ context.Context, _ []string) error {
	WriteHelp(s.out)
	return nil
}

func (s *Shell) quit(_ context.Context, _ []string) error {
	fmt.Fprint(s.out, "**************************\n")
	fmt.Fprint(s.out, "Exiting MIPSIM! Good Bye...\n")
	fmt.Fprint(s.out, "**************************\n")
	return ErrQuit
}

// parseWord parses an unsigned 32-bit number in hex (0x) or decimal.
func parseWord(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return uint32(v), nil
}

// parseValue parses a register value, allowing negative decimals.
func parseValue(s string) (uint32, error) {
	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q: %w", s, err)
		}
		return uint32(int32(v)), nil
	}
	return parseWord(s)
}
