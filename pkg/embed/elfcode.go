// Package embed provides the Go embedding API for elfcode.
//
// Pass a program, get the final registers.
//
// Basic usage:
//
//	result, err := embed.Run(`
//	    #ip 0
//	    seti 5 0 1
//	    seti 6 0 2
//	    addi 0 1 0
//	    addr 1 2 3
//	`)
//
// With options:
//
//	result, err := embed.Run(source,
//	    embed.WithRegisters(1),
//	    embed.WithMaxSteps(10_000_000),
//	    embed.WithWatch(28, 4, vm.WatchLastUnique),
//	)
//
// Resolving a calibration input (samples followed by a numeric program):
//
//	cal, err := embed.Calibrate(input)
//	fmt.Println(cal.Ambiguous, cal.Result.Registers[0])
package embed

import (
	"errors"
	"fmt"

	"github.com/akhildatla/elfcode/pkg/compiler"
	"github.com/akhildatla/elfcode/pkg/config"
	"github.com/akhildatla/elfcode/pkg/loader"
	"github.com/akhildatla/elfcode/pkg/resolver"
	"github.com/akhildatla/elfcode/pkg/vm"
)

// Common errors
var (
	ErrStepLimit = vm.ErrStepLimitExceeded
)

// AmbiguityThreshold is the number of matching opcodes from which
// Calibrate counts a sample as ambiguous.
const AmbiguityThreshold = 3

// Result is the outcome of running a program.
type Result struct {
	Registers    []int64
	Steps        int64
	Reason       vm.HaltReason
	Value        int64 // watch observation
	Observations int
	Trace        *vm.Trace
	Stats        *vm.ExecutionStats
}

// Options configures execution behavior.
type Options struct {
	// RegisterCount is the size of the register file. Zero selects
	// vm.DeviceRegs for Run and vm.CalibrationRegs for Calibrate.
	RegisterCount int

	// Registers overwrites the leading registers before the run.
	Registers []int64

	// MaxSteps limits the number of statements executed.
	// Zero means unlimited.
	MaxSteps int64

	// Watch is an optional observation point.
	Watch *vm.Watch

	// Trace records executed steps; TraceLimit caps the rows kept.
	Trace      bool
	TraceLimit int

	// CollectStats enables per-opcode counts.
	CollectStats bool

	// Workers bounds concurrent sample matching.
	Workers int

	// Progress is called every ProgressInterval steps.
	Progress         func(steps int64)
	ProgressInterval int64

	err error
}

// Option is a functional option for configuring execution.
type Option func(*Options)

// WithRegisterCount sets the size of the register file.
func WithRegisterCount(n int) Option {
	return func(o *Options) {
		o.RegisterCount = n
	}
}

// WithRegisters sets the initial values of the leading registers.
func WithRegisters(values ...int64) Option {
	return func(o *Options) {
		o.Registers = values
	}
}

// WithMaxSteps sets the step limit.
func WithMaxSteps(n int64) Option {
	return func(o *Options) {
		o.MaxSteps = n
	}
}

// WithWatch captures register reg whenever the instruction pointer reaches
// instruction.
func WithWatch(instruction int64, reg int, mode vm.WatchMode) Option {
	return func(o *Options) {
		o.Watch = &vm.Watch{Instruction: instruction, Register: reg, Mode: mode}
	}
}

// WithTrace records up to limit executed steps (zero keeps all).
func WithTrace(limit int) Option {
	return func(o *Options) {
		o.Trace = true
		o.TraceLimit = limit
	}
}

// WithStats enables execution statistics.
func WithStats() Option {
	return func(o *Options) {
		o.CollectStats = true
	}
}

// WithWorkers bounds concurrent sample matching.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

// WithProgress calls fn every interval executed steps.
func WithProgress(interval int64, fn func(steps int64)) Option {
	return func(o *Options) {
		o.ProgressInterval = interval
		o.Progress = fn
	}
}

// WithProfile applies a run profile. Options given after it override the
// profile's values.
func WithProfile(p *config.Profile) Option {
	return func(o *Options) {
		vmOpts, trace, err := p.Options()
		if err != nil {
			o.err = err
			return
		}
		o.RegisterCount = p.RegisterCount
		o.Registers = p.Registers
		o.MaxSteps = vmOpts.MaxSteps
		o.Watch = vmOpts.Watch
		o.Workers = p.Workers
		if trace != nil {
			o.Trace = true
			o.TraceLimit = p.Trace.Limit
		}
	}
}

func newOptions(defaultRegs int, opts []Option) (*Options, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.err != nil {
		return nil, options.err
	}
	if options.RegisterCount == 0 {
		options.RegisterCount = defaultRegs
	}
	return options, nil
}

// Run compiles and runs a program, returning the final registers.
func Run(source string, opts ...Option) (*Result, error) {
	options, err := newOptions(vm.DeviceRegs, opts)
	if err != nil {
		return nil, err
	}

	program, err := compiler.Compile(source, options.RegisterCount)
	if err != nil {
		return nil, err
	}
	return run(program, options)
}

// RunFile loads a text or bytecode program and runs it.
func RunFile(path string, opts ...Option) (*Result, error) {
	program, err := loader.LoadProgram(path)
	if err != nil {
		return nil, err
	}
	return RunProgram(program, opts...)
}

// RunProgram runs an already parsed program.
func RunProgram(program *vm.Program, opts ...Option) (*Result, error) {
	options, err := newOptions(vm.DeviceRegs, opts)
	if err != nil {
		return nil, err
	}
	return run(program, options)
}

func run(program *vm.Program, options *Options) (*Result, error) {
	machine := vm.NewMachine(options.RegisterCount)
	if err := machine.SetRegisters(options.Registers); err != nil {
		return nil, err
	}

	vmOpts := vm.Options{
		MaxSteps:         options.MaxSteps,
		Watch:            options.Watch,
		CollectStats:     options.CollectStats,
		Progress:         options.Progress,
		ProgressInterval: options.ProgressInterval,
	}
	if options.Trace {
		vmOpts.Trace = vm.NewTrace(options.TraceLimit)
	}

	res, err := machine.Execute(program, vmOpts)
	result := &Result{
		Registers:    machine.Registers(),
		Steps:        res.Steps,
		Reason:       res.Reason,
		Value:        res.Value,
		Observations: res.Observations,
		Trace:        vmOpts.Trace,
		Stats:        res.Stats,
	}
	if err != nil {
		// The partial result is still useful after a step limit.
		if errors.Is(err, vm.ErrStepLimitExceeded) {
			return result, err
		}
		return nil, err
	}
	return result, nil
}

// Resolve deduces the opcode assignment from samples.
func Resolve(samples []vm.Sample, opts ...Option) (resolver.Assignment, error) {
	options, err := newOptions(vm.CalibrationRegs, opts)
	if err != nil {
		return nil, err
	}

	var ropts []resolver.Option
	if options.Workers > 0 {
		ropts = append(ropts, resolver.WithWorkers(options.Workers))
	}
	return resolver.ResolveSamples(samples, ropts...)
}

// Calibration is the outcome of Calibrate.
type Calibration struct {
	// Ambiguous counts samples matching AmbiguityThreshold or more opcodes.
	Ambiguous  int
	Assignment resolver.Assignment
	Program    *vm.Program
	// Result is nil when the input has no numeric program.
	Result *Result
}

// Calibrate parses samples and a numeric program, resolves the opcode
// assignment and runs the translated program.
func Calibrate(input string, opts ...Option) (*Calibration, error) {
	samples, raw, err := compiler.ParseCalibration(input)
	if err != nil {
		return nil, err
	}
	return CalibrateSamples(samples, raw, opts...)
}

// CalibrateSamples is Calibrate for already parsed input.
func CalibrateSamples(samples []vm.Sample, raw []vm.RawInstruction, opts ...Option) (*Calibration, error) {
	options, err := newOptions(vm.CalibrationRegs, opts)
	if err != nil {
		return nil, err
	}

	ambiguous, err := resolver.CountAmbiguous(samples, AmbiguityThreshold)
	if err != nil {
		return nil, err
	}
	assignment, err := Resolve(samples, opts...)
	if err != nil {
		return nil, err
	}
	cal := &Calibration{Ambiguous: ambiguous, Assignment: assignment}
	if len(raw) == 0 {
		return cal, nil
	}

	cal.Program, err = assignment.Translate(raw)
	if err != nil {
		return nil, err
	}
	cal.Result, err = run(cal.Program, options)
	if err != nil {
		return nil, fmt.Errorf("running translated program: %w", err)
	}
	return cal, nil
}
