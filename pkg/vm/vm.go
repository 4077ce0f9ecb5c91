// Package vm implements the device register machine.
//
// The machine is a register-based interpreter with:
//   - N 64-bit signed registers (4 for calibration, 6 for device programs)
//   - sixteen opcodes (addr ... eqrr), dispatched by a single switch
//   - an instruction pointer optionally bound to one of the registers
//
// Basic usage:
//
//	m := vm.NewMachine(6)
//	result, err := m.Execute(program, vm.Options{})
//
// With a step budget and a watch point:
//
//	result, err := m.Execute(program, vm.Options{
//		MaxSteps: 1_000_000,
//		Watch:    &vm.Watch{Instruction: 28, Register: 4, Mode: vm.WatchFirst},
//	})
package vm

import (
	"errors"
	"fmt"
	"time"
)

// Error definitions
var (
	ErrStepLimitExceeded = errors.New("step limit exceeded")
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrInvalidRegister   = errors.New("invalid register")
	ErrMalformedSample   = errors.New("malformed sample")
)

// HaltReason describes why Execute stopped.
type HaltReason uint8

const (
	HaltOutOfRange HaltReason = iota // instruction pointer left the program
	HaltWatch                        // watch point produced its observation
	HaltStepLimit                    // MaxSteps reached without halting
	HaltError                        // a statement failed; Execute returned its error
)

// String returns the string representation of a halt reason.
func (h HaltReason) String() string {
	switch h {
	case HaltOutOfRange:
		return "out-of-range"
	case HaltWatch:
		return "watch"
	case HaltStepLimit:
		return "step-limit"
	case HaltError:
		return "error"
	default:
		return "unknown"
	}
}

// WatchMode selects which observation a watch point reports.
type WatchMode uint8

const (
	// WatchFirst halts on the first captured value.
	WatchFirst WatchMode = iota
	// WatchLastUnique halts the first time a captured value repeats and
	// reports the value captured just before it.
	WatchLastUnique
)

// String returns the string representation of a watch mode.
func (w WatchMode) String() string {
	switch w {
	case WatchFirst:
		return "first"
	case WatchLastUnique:
		return "last-unique"
	default:
		return "unknown"
	}
}

// ParseWatchMode converts a mode name to a WatchMode.
func ParseWatchMode(s string) (WatchMode, error) {
	switch s {
	case "", "first":
		return WatchFirst, nil
	case "last-unique", "last":
		return WatchLastUnique, nil
	default:
		return 0, fmt.Errorf("unknown watch mode: %s", s)
	}
}

// Watch captures a register whenever the instruction pointer reaches a
// given statement index (checked after the pointer has been incremented).
type Watch struct {
	Instruction int64
	Register    int
	Mode        WatchMode
}

// Options configures a single Execute call.
type Options struct {
	// MaxSteps caps the number of executed statements. Zero means unbounded.
	MaxSteps int64

	// Watch is an optional observation point.
	Watch *Watch

	// Trace, when non-nil, records every executed step.
	Trace *Trace

	// Progress is invoked every ProgressInterval steps.
	Progress         func(steps int64)
	ProgressInterval int64

	// CollectStats enables ExecutionStats in the result.
	CollectStats bool
}

// ExecutionStats contains metrics about an execution.
type ExecutionStats struct {
	StepsExecuted   int64
	ExecutionTimeNs int64
	OpCounts        map[Opcode]int64
}

// Result describes how an execution ended.
type Result struct {
	Reason       HaltReason
	Steps        int64
	Value        int64 // watch observation, valid when Reason == HaltWatch
	Observations int   // number of values captured by the watch point
	Stats        *ExecutionStats
}

// Machine executes programs over a register file it exclusively owns.
type Machine struct {
	registers RegisterFile
	ipReg     int   // register bound to the instruction pointer, or NoInstructionPointer
	pc        int64 // private program counter when no register is bound
}

// NewMachine creates a machine with n zeroed registers and no instruction
// pointer binding.
func NewMachine(n int) *Machine {
	return &Machine{
		registers: NewRegisterFile(n),
		ipReg:     NoInstructionPointer,
	}
}

// NumRegisters returns the size of the register file.
func (m *Machine) NumRegisters() int {
	return len(m.registers)
}

// SetRegisters overwrites the leading registers with values.
func (m *Machine) SetRegisters(values []int64) error {
	if err := m.registers.Load(values); err != nil {
		return fmt.Errorf("%w: %d values for %d registers", err, len(values), len(m.registers))
	}
	return nil
}

// ClearRegisters sets all registers to zero.
func (m *Machine) ClearRegisters() {
	m.registers.Reset()
	m.pc = 0
}

// Registers returns a snapshot of the register file.
func (m *Machine) Registers() []int64 {
	return m.registers.Snapshot()
}

// BindInstructionPointer designates the register holding the instruction
// pointer. NoInstructionPointer selects the private program counter.
func (m *Machine) BindInstructionPointer(reg int) error {
	if reg != NoInstructionPointer && (reg < 0 || reg >= len(m.registers)) {
		return fmt.Errorf("%w: instruction pointer r%d with %d registers",
			ErrInvalidRegister, reg, len(m.registers))
	}
	m.ipReg = reg
	return nil
}

// InstructionPointerRegister returns the bound register, or
// NoInstructionPointer.
func (m *Machine) InstructionPointerRegister() int {
	return m.ipReg
}

// InstructionPointer returns the index of the next statement to execute.
func (m *Machine) InstructionPointer() int64 {
	if m.ipReg == NoInstructionPointer {
		return m.pc
	}
	return m.registers[m.ipReg]
}

func (m *Machine) setInstructionPointer(v int64) {
	if m.ipReg == NoInstructionPointer {
		m.pc = v
		return
	}
	m.registers[m.ipReg] = v
}

// Apply executes one statement against the register file without touching
// the instruction pointer.
func (m *Machine) Apply(s Statement) error {
	if !s.Op.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownOpcode, s.Op)
	}
	return s.Apply(m.registers)
}

// Step executes the statement under the instruction pointer and increments
// the pointer. It returns false, without error, when the pointer is outside
// the program.
func (m *Machine) Step(p *Program) (bool, error) {
	ip := m.InstructionPointer()
	if ip < 0 || ip >= int64(len(p.Statements)) {
		return false, nil
	}

	s := p.Statements[ip]
	if err := m.Apply(s); err != nil {
		return false, fmt.Errorf("statement %d (%s): %w", ip, s, err)
	}

	// The increment is unconditional: a statement writing the IP register
	// jumps to the written value + 1.
	m.setInstructionPointer(m.InstructionPointer() + 1)
	return true, nil
}

// Load binds the program's instruction pointer register when it declares
// one. Programs without #ip keep the machine's current binding; an unbound
// machine rewinds its private counter.
func (m *Machine) Load(p *Program) error {
	if p.InstructionPointer != NoInstructionPointer {
		if err := m.BindInstructionPointer(p.InstructionPointer); err != nil {
			return err
		}
	}
	if m.ipReg == NoInstructionPointer {
		m.pc = 0
	}
	return nil
}

// Execute runs the program until the instruction pointer leaves it, the
// watch point reports, or MaxSteps statements have executed.
func (m *Machine) Execute(p *Program, opts Options) (Result, error) {
	var (
		result    = Result{Reason: HaltError}
		startTime time.Time
		seen      map[int64]struct{}
		last      int64
	)

	if err := m.Load(p); err != nil {
		return result, err
	}
	if w := opts.Watch; w != nil {
		if w.Register < 0 || w.Register >= len(m.registers) {
			return result, fmt.Errorf("%w: watch r%d", ErrInvalidRegister, w.Register)
		}
		if w.Mode == WatchLastUnique {
			seen = make(map[int64]struct{})
		}
	}
	if opts.CollectStats {
		startTime = time.Now()
		result.Stats = &ExecutionStats{OpCounts: make(map[Opcode]int64)}
	}

	finish := func(reason HaltReason) Result {
		result.Reason = reason
		if result.Stats != nil {
			result.Stats.StepsExecuted = result.Steps
			result.Stats.ExecutionTimeNs = time.Since(startTime).Nanoseconds()
		}
		return result
	}

	for {
		ip := m.InstructionPointer()
		if ip < 0 || ip >= int64(len(p.Statements)) {
			return finish(HaltOutOfRange), nil
		}
		if opts.MaxSteps > 0 && result.Steps >= opts.MaxSteps {
			return finish(HaltStepLimit), ErrStepLimitExceeded
		}

		if _, err := m.Step(p); err != nil {
			return finish(HaltError), err
		}
		result.Steps++

		if result.Stats != nil {
			result.Stats.OpCounts[p.Statements[ip].Op]++
		}

		if opts.Trace != nil {
			opts.Trace.record(result.Steps, ip, p.Statements[ip], m.registers)
		}
		if opts.Progress != nil && opts.ProgressInterval > 0 && result.Steps%opts.ProgressInterval == 0 {
			opts.Progress(result.Steps)
		}

		w := opts.Watch
		if w == nil || m.InstructionPointer() != w.Instruction {
			continue
		}
		value := m.registers[w.Register]
		switch w.Mode {
		case WatchFirst:
			result.Value = value
			result.Observations = 1
			return finish(HaltWatch), nil
		case WatchLastUnique:
			if _, dup := seen[value]; dup {
				result.Value = last
				return finish(HaltWatch), nil
			}
			seen[value] = struct{}{}
			last = value
			result.Observations++
		}
	}
}
