package benchmarks

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/core"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Forwarding tells whether operand forwarding was enabled
	Forwarding bool `json:"forwarding"`

	// SimulatedCycles is the total cycle count from the pipeline
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	StallCycles     uint64 `json:"stall_cycles"`
	LoadUseStalls   uint64 `json:"load_use_stalls"`
	FetchBubbles    uint64 `json:"fetch_bubbles"`
	PipelineFlushes uint64 `json:"pipeline_flushes"`
	Forwards        uint64 `json:"forwards"`
	BranchesTaken   uint64 `json:"branches_taken"`

	// SimulatedSeconds is SimulatedCycles at the harness clock frequency
	SimulatedSeconds float64 `json:"simulated_seconds"`

	// Result is the value of the benchmark's result register
	Result uint32 `json:"result"`

	// Error describes why the run is not valid; empty when it is
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Valid reports whether the run halted with the expected result and matched
// the functional emulator.
func (r *BenchmarkResult) Valid() bool {
	return r.Error == ""
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Program is the MIPS machine code, loaded at the text base
	Program []uint32

	// ResultReg holds the result checked against Expected
	ResultReg uint8

	// Expected is the value of ResultReg after the program exits
	Expected uint32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Forwarding enables operand forwarding in the pipeline
	Forwarding bool

	// MaxCycles bounds each run; 0 means no limit
	MaxCycles uint64

	// Frequency converts cycles into simulated time
	Frequency sim.Freq

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives per-benchmark debug entries (default: standard logger)
	Logger *logrus.Logger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Forwarding: true,
		MaxCycles:  100000,
		Frequency:  core.DefaultFrequency,
		Output:     os.Stdout,
		Logger:     logrus.StandardLogger(),
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
	log        *logrus.Entry
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.Frequency == 0 {
		config.Frequency = core.DefaultFrequency
	}
	return &Harness{
		config: config,
		log:    config.Logger.WithField("component", "benchmarks"),
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results. It stops early, with
// the results gathered so far, when ctx is done.
func (h *Harness) RunAll(ctx context.Context) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result, err := h.runBenchmark(ctx, bench)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

// runBenchmark executes a single benchmark on a fresh core and validates it
// against the functional emulator.
func (h *Harness) runBenchmark(ctx context.Context, bench Benchmark) (BenchmarkResult, error) {
	prog := loader.FromWords(emu.TextBase, bench.Program)
	handler := emu.NewDefaultSyscallHandler(h.log)

	c := core.NewCore(emu.NewDefaultMemory(), prog,
		core.WithForwarding(h.config.Forwarding),
		core.WithFrequency(h.config.Frequency),
		core.WithLogger(h.config.Logger),
		core.WithSyscallHandler(handler),
	)

	start := time.Now()
	if _, err := c.RunContext(ctx, h.config.MaxCycles); err != nil {
		return BenchmarkResult{}, fmt.Errorf("%s: %w", bench.Name, err)
	}
	wall := time.Since(start)

	stats := c.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		Forwarding:          h.config.Forwarding,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI,
		StallCycles:         stats.Stalls,
		LoadUseStalls:       stats.LoadUseStalls,
		FetchBubbles:        stats.FetchBubbles,
		PipelineFlushes:     stats.Flushes,
		Forwards:            stats.Forwards,
		BranchesTaken:       stats.BranchesTaken,
		SimulatedSeconds:    stats.SimulatedSeconds,
		Result:              c.ReadRegister(bench.ResultReg),
		WallTime:            wall,
	}

	switch {
	case c.Running():
		result.Error = fmt.Sprintf("did not halt within %d cycles", h.config.MaxCycles)
	case result.Result != bench.Expected:
		result.Error = fmt.Sprintf("result 0x%08x, expected 0x%08x", result.Result, bench.Expected)
	default:
		if err := h.crossCheck(prog, c, handler); err != nil {
			result.Error = err.Error()
		}
	}

	h.log.WithFields(logrus.Fields{
		"benchmark":  bench.Name,
		"forwarding": h.config.Forwarding,
		"cycles":     result.SimulatedCycles,
		"cpi":        result.CPI,
		"valid":      result.Valid(),
	}).Debug("benchmark finished")

	return result, nil
}

// crossCheck runs prog on the functional emulator and compares the
// architectural state and the retired instruction count with the core.
func (h *Harness) crossCheck(prog *loader.Program, c *core.Core, handler emu.SyscallHandler) error {
	memory := emu.NewDefaultMemory()
	prog.LoadInto(memory)

	limit := h.config.MaxCycles
	ref := emu.NewEmulator(memory,
		emu.WithSyscallHandler(handler),
		emu.WithMaxInstructions(limit),
	)
	ref.Reset(prog.EntryPoint)

	n, err := ref.Run()
	if err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if n != c.Instructions() {
		return fmt.Errorf("retired %d instructions, reference retired %d", c.Instructions(), n)
	}

	regs := ref.RegFile()
	for i := uint8(1); i < emu.NumRegs; i++ {
		if got, want := c.ReadRegister(i), regs.ReadReg(i); got != want {
			return fmt.Errorf("register %d is 0x%08x, reference has 0x%08x", i, got, want)
		}
	}
	if c.ReadHI() != regs.HI || c.ReadLO() != regs.LO {
		return fmt.Errorf("HI/LO are 0x%08x/0x%08x, reference has 0x%08x/0x%08x",
			c.ReadHI(), c.ReadLO(), regs.HI, regs.LO)
	}

	return nil
}

// PrintResults outputs benchmark results as an aligned table.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	tw := tabwriter.NewWriter(h.config.Output, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BENCHMARK\tFWD\tCYCLES\tINSTS\tCPI\tSTALLS\tLOAD-USE\tFLUSHED\tFORWARDS\tSTATUS")

	for _, r := range results {
		status := "ok"
		if !r.Valid() {
			status = "FAIL: " + r.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.3f\t%d\t%d\t%d\t%d\t%s\n",
			r.Name, onOff(r.Forwarding), r.SimulatedCycles, r.InstructionsRetired,
			r.CPI, r.StallCycles, r.LoadUseStalls, r.PipelineFlushes, r.Forwards, status)
	}

	_ = tw.Flush()
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) error {
	w := csv.NewWriter(h.config.Output)
	_ = w.Write([]string{"name", "forwarding", "cycles", "instructions", "cpi",
		"stalls", "load_use_stalls", "fetch_bubbles", "flushes", "forwards", "error"})

	for _, r := range results {
		_ = w.Write([]string{
			r.Name,
			strconv.FormatBool(r.Forwarding),
			strconv.FormatUint(r.SimulatedCycles, 10),
			strconv.FormatUint(r.InstructionsRetired, 10),
			strconv.FormatFloat(r.CPI, 'f', 3, 64),
			strconv.FormatUint(r.StallCycles, 10),
			strconv.FormatUint(r.LoadUseStalls, 10),
			strconv.FormatUint(r.FetchBubbles, 10),
			strconv.FormatUint(r.PipelineFlushes, 10),
			strconv.FormatUint(r.Forwards, 10),
			r.Error,
		})
	}

	w.Flush()
	return w.Error()
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	Timestamp    string  `json:"timestamp"`
	FrequencyMHz float64 `json:"frequency_mhz"`
	MaxCycles    uint64  `json:"max_cycles"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks   int           `json:"total_benchmarks"`
	Failed            int           `json:"failed"`
	TotalCycles       uint64        `json:"total_cycles"`
	TotalInstructions uint64        `json:"total_instructions"`
	AverageCPI        float64       `json:"average_cpi"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	s := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		s.TotalCycles += r.SimulatedCycles
		s.TotalInstructions += r.InstructionsRetired
		s.TotalWallTime += r.WallTime
		if !r.Valid() {
			s.Failed++
		}
	}
	if s.TotalInstructions > 0 {
		s.AverageCPI = float64(s.TotalCycles) / float64(s.TotalInstructions)
	}
	return s
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			FrequencyMHz: float64(h.config.Frequency / sim.MHz),
			MaxCycles:    h.config.MaxCycles,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
