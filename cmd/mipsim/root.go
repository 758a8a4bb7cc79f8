package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/mipsim/config"
	"github.com/sarchlab/mipsim/console"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/shell"
	"github.com/sarchlab/mipsim/timing/core"
)

var (
	configPath string
	forwarding bool
	useTUI     bool
	batch      bool
	maxCycles  uint64
	frequency  float64
	verbose    bool
)

// errNoHalt is returned in batch mode when the cycle limit is reached first.
var errNoHalt = errors.New("program did not halt")

var rootCmd = &cobra.Command{
	Use:   "mipsim [program]",
	Short: "Cycle-accurate 5-stage MIPS pipeline simulator",
	Long: `mipsim simulates a classic IF/ID/EX/MEM/WB MIPS pipeline cycle by cycle.
The program is either a MIPS32 little-endian ELF executable or a text file
with one hexadecimal instruction word per line.

Without --run or --tui, commands are read from standard input.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&configPath, "config", "", "path to a YAML configuration file")
	persistent.Uint64Var(&maxCycles, "max-cycles", 0, "stop simulating after this many cycles (0 = unlimited)")
	persistent.Float64Var(&frequency, "frequency", 0, "clock frequency in MHz for simulated time")
	persistent.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	flags := rootCmd.Flags()
	flags.BoolVar(&forwarding, "forwarding", false, "enable operand forwarding")
	flags.BoolVar(&useTUI, "tui", false, "start the full-screen console")
	flags.BoolVar(&batch, "run", false, "run the program to completion and print the registers")
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())

	memory, err := cfg.NewMemory()
	if err != nil {
		return err
	}

	var prog *loader.Program
	if len(args) == 1 {
		prog, err = loader.Load(args[0], cfg.TextBase())
		if err != nil {
			return fmt.Errorf("failed to load program: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"path":     prog.Path,
			"entry":    fmt.Sprintf("0x%08x", prog.EntryPoint),
			"segments": len(prog.Segments),
		}).Info("program loaded")
	}

	c := core.NewCore(memory, prog,
		core.WithForwarding(cfg.Forwarding),
		core.WithFrequency(cfg.ClockFreq()),
		core.WithLogger(logger),
		core.WithSyscallHandler(emu.NewDefaultSyscallHandler(logger)),
	)
	sh := shell.New(c, cmd.OutOrStdout(),
		shell.WithMaxCycles(cfg.MaxCycles),
		shell.WithLogger(logger),
	)

	switch {
	case batch:
		if prog == nil {
			return errors.New("--run requires a program")
		}
		return runBatch(cmd, c, cfg.MaxCycles)
	case useTUI:
		logger.SetOutput(io.Discard)
		return console.New(c, sh, logger).Run(cmd.Context())
	default:
		return sh.Run(cmd.Context(), cmd.InOrStdin())
	}
}

func runBatch(cmd *cobra.Command, c *core.Core, limit uint64) error {
	if _, err := c.RunContext(cmd.Context(), limit); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	shell.WriteRegisters(out, c)
	shell.WriteStats(out, c)

	if c.Running() {
		return fmt.Errorf("%w within %d cycles", errNoHalt, limit)
	}
	return nil
}

// loadConfig reads the configuration file and applies explicitly set flags
// on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("forwarding") {
		cfg.Forwarding = forwarding
	}
	if flags.Changed("max-cycles") {
		cfg.MaxCycles = maxCycles
	}
	if flags.Changed("frequency") {
		cfg.ClockFrequencyMHz = frequency
	}
	if verbose {
		cfg.LogLevel = logrus.DebugLevel.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(cfg.Level())
	return logger
}
