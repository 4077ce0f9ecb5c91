package vm

import (
	"fmt"
	"strings"
)

// NoInstructionPointer marks a program (or machine) without a register bound
// to the instruction pointer.
const NoInstructionPointer = -1

// Statement is an opcode with its three arguments. A and B are register
// indices or immediates depending on the opcode; C is always a register.
type Statement struct {
	Op Opcode
	A  int64
	B  int64
	C  int64
}

// Apply executes the statement against rf.
func (s Statement) Apply(rf RegisterFile) error {
	return s.Op.Apply(rf, s.A, s.B, s.C)
}

// String returns the statement in source form, e.g. "seti 5 0 1".
func (s Statement) String() string {
	return fmt.Sprintf("%s %d %d %d", s.Op, s.A, s.B, s.C)
}

// RawInstruction is a numeric instruction [opcode id, a, b, c] whose opcode
// has not been identified yet.
type RawInstruction [4]int64

// ID returns the numeric opcode identifier.
func (r RawInstruction) ID() int {
	return int(r[0])
}

// Args returns the three arguments.
func (r RawInstruction) Args() (a, b, c int64) {
	return r[1], r[2], r[3]
}

// Program is an ordered list of statements plus the register bound to the
// instruction pointer.
type Program struct {
	Statements         []Statement
	InstructionPointer int
}

// NewProgram creates a program bound to the given instruction pointer
// register (or NoInstructionPointer).
func NewProgram(ip int, statements ...Statement) *Program {
	return &Program{
		Statements:         statements,
		InstructionPointer: ip,
	}
}

// Len returns the number of statements.
func (p *Program) Len() int {
	return len(p.Statements)
}

// Source renders the program in the textual "#ip N" format.
func (p *Program) Source() string {
	var sb strings.Builder
	if p.InstructionPointer != NoInstructionPointer {
		fmt.Fprintf(&sb, "#ip %d\n", p.InstructionPointer)
	}
	for _, s := range p.Statements {
		sb.WriteString(s.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Sample is an observed execution of a single numeric instruction.
type Sample struct {
	Before      []int64
	Instruction RawInstruction
	After       []int64
}

// Validate checks the shape of a sample.
func (s Sample) Validate() error {
	if len(s.Before) == 0 || len(s.Before) != len(s.After) {
		return fmt.Errorf("%w: before has %d registers, after has %d",
			ErrMalformedSample, len(s.Before), len(s.After))
	}
	return nil
}

// Satisfies reports whether applying op to the sample's before state yields
// exactly its after state. An opcode touching a register outside the sample
// does not satisfy it.
func (s Sample) Satisfies(op Opcode) bool {
	rf := RegisterFile(append([]int64(nil), s.Before...))
	a, b, c := s.Instruction.Args()
	if err := op.Apply(rf, a, b, c); err != nil {
		return false
	}
	return rf.Equal(s.After)
}
