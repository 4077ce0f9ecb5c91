package compiler

import (
	"fmt"

	"github.com/akhildatla/elfcode/pkg/vm"
)

// Compile parses source and checks it against a machine with numRegs
// registers.
func Compile(source string, numRegs int) (*vm.Program, error) {
	program, err := ParseProgram(source)
	if err != nil {
		return nil, err
	}
	if err := Check(program, numRegs); err != nil {
		return nil, err
	}
	return program, nil
}

// Assemble compiles source to ELFB bytecode.
func Assemble(source string, numRegs int) ([]byte, error) {
	program, err := Compile(source, numRegs)
	if err != nil {
		return nil, err
	}
	return vm.SerializeProgram(program)
}

// Check verifies every register operand, and the #ip register, fits in
// numRegs registers. Immediates are not checked.
func Check(p *vm.Program, numRegs int) error {
	if p.InstructionPointer != vm.NoInstructionPointer &&
		(p.InstructionPointer < 0 || p.InstructionPointer >= numRegs) {
		return fmt.Errorf("%w: #ip %d with %d registers", vm.ErrInvalidRegister, p.InstructionPointer, numRegs)
	}

	inRange := func(r int64) bool {
		return r >= 0 && r < int64(numRegs)
	}

	for i, s := range p.Statements {
		if !s.Op.Valid() {
			return fmt.Errorf("statement %d: %w: %d", i, vm.ErrUnknownOpcode, s.Op)
		}
		aReg, bReg := s.Op.Operands()
		switch {
		case aReg && !inRange(s.A):
			return fmt.Errorf("statement %d (%s): %w: r%d", i, s, vm.ErrInvalidRegister, s.A)
		case bReg && !inRange(s.B):
			return fmt.Errorf("statement %d (%s): %w: r%d", i, s, vm.ErrInvalidRegister, s.B)
		case !inRange(s.C):
			return fmt.Errorf("statement %d (%s): %w: r%d", i, s, vm.ErrInvalidRegister, s.C)
		}
	}
	return nil
}
