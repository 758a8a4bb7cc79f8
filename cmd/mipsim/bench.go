package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mipsim/benchmarks"
)

var (
	benchFormat string
	benchModes  string
	benchCore   bool
)

// errBenchmarkFailed is returned when a benchmark run is invalid.
var errBenchmarkFailed = errors.New("benchmark validation failed")

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the built-in microbenchmarks",
	Long: `Bench runs the built-in MIPS microbenchmarks on the pipeline, checks every
result against the functional emulator and reports cycles, CPI and hazard
counters.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	flags := benchCmd.Flags()
	flags.StringVar(&benchFormat, "format", "table", "output format: table, csv or json")
	flags.StringVar(&benchModes, "modes", "both", "forwarding modes to run: off, on or both")
	flags.BoolVar(&benchCore, "core", false, "run only the core subset")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, _ []string) error {
	var modes []bool
	switch benchModes {
	case "off":
		modes = []bool{false}
	case "on":
		modes = []bool{true}
	case "both":
		modes = []bool{false, true}
	default:
		return fmt.Errorf("unsupported forwarding mode %q", benchModes)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	set := benchmarks.GetMicrobenchmarks()
	if benchCore {
		set = benchmarks.GetCoreBenchmarks()
	}

	config := benchmarks.HarnessConfig{
		MaxCycles: cfg.MaxCycles,
		Frequency: cfg.ClockFreq(),
		Output:    cmd.OutOrStdout(),
		Logger:    logger,
	}
	if config.MaxCycles == 0 {
		config.MaxCycles = benchmarks.DefaultConfig().MaxCycles
	}

	var (
		results []benchmarks.BenchmarkResult
		harness *benchmarks.Harness
	)
	for _, forwarding := range modes {
		config.Forwarding = forwarding
		harness = benchmarks.NewHarness(config)
		harness.AddBenchmarks(set)

		r, err := harness.RunAll(cmd.Context())
		if err != nil {
			return err
		}
		results = append(results, r...)
	}

	switch benchFormat {
	case "table":
		harness.PrintResults(results)
	case "csv":
		err = harness.PrintCSV(results)
	case "json":
		err = harness.PrintJSON(results)
	default:
		return fmt.Errorf("unsupported format %q", benchFormat)
	}
	if err != nil {
		return err
	}

	if failed := benchmarks.Summarize(results).Failed; failed > 0 {
		return fmt.Errorf("%w: %d runs", errBenchmarkFailed, failed)
	}
	return nil
}
