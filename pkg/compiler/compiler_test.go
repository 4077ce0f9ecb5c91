package compiler

import (
	"errors"
	"testing"

	"github.com/akhildatla/elfcode/internal/testutil"
	"github.com/akhildatla/elfcode/pkg/vm"
)

func TestCompile_Device(t *testing.T) {
	program, err := Compile(testutil.DeviceProgram(), vm.DeviceRegs)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if program.Len() != 7 {
		t.Errorf("expected 7 statements, got %d", program.Len())
	}
}

func TestCompile_RegisterOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"ip register", "#ip 6\nseti 0 0 0"},
		{"target", "seti 0 0 6"},
		{"register a", "addr 6 0 0"},
		{"register b", "gtir 0 9 0"},
		{"negative register", "setr -1 0 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src, vm.DeviceRegs)
			if !errors.Is(err, vm.ErrInvalidRegister) {
				t.Errorf("expected ErrInvalidRegister, got %v", err)
			}
		})
	}
}

func TestCompile_ImmediatesUnchecked(t *testing.T) {
	// b is an immediate for addi and a is an immediate for seti.
	if _, err := Compile("addi 0 1000 1\nseti 123456 77 2\ngtir 99 1 3", vm.CalibrationRegs); err != nil {
		t.Errorf("expected immediates to be accepted, got %v", err)
	}
}

func TestCompile_ParseError(t *testing.T) {
	if _, err := Compile("nope 1 2 3", vm.DeviceRegs); !errors.Is(err, vm.ErrUnknownOpcode) {
		t.Errorf("expected ErrUnknownOpcode, got %v", err)
	}
}

func TestAssemble_RoundTrip(t *testing.T) {
	data, err := Assemble(testutil.CountdownProgram(), vm.DeviceRegs)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	program, err := vm.DeserializeProgram(data)
	if err != nil {
		t.Fatalf("DeserializeProgram failed: %v", err)
	}

	m := vm.NewMachine(vm.DeviceRegs)
	if err := m.SetRegisters([]int64{5}); err != nil {
		t.Fatalf("SetRegisters failed: %v", err)
	}
	result, err := m.Execute(program, vm.Options{MaxSteps: 1000})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Steps != 21 {
		t.Errorf("expected 21 steps, got %d", result.Steps)
	}
	if m.Registers()[1] != 0 {
		t.Errorf("expected r1 = 0, got %d", m.Registers()[1])
	}
}

func TestCheck_UnknownOpcode(t *testing.T) {
	p := vm.NewProgram(vm.NoInstructionPointer, vm.Statement{Op: vm.Opcode(30)})
	if err := Check(p, vm.CalibrationRegs); !errors.Is(err, vm.ErrUnknownOpcode) {
		t.Errorf("expected ErrUnknownOpcode, got %v", err)
	}
}
