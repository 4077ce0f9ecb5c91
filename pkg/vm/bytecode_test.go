package vm

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func sampleDeviceProgram() *Program {
	return NewProgram(0,
		Statement{Op: OpSeti, A: 5, B: 0, C: 1},
		Statement{Op: OpSeti, A: 6, B: 0, C: 2},
		Statement{Op: OpAddi, A: 0, B: 1, C: 0},
		Statement{Op: OpAddr, A: 1, B: 2, C: 3},
		Statement{Op: OpSetr, A: 1, B: 0, C: 0},
		Statement{Op: OpSeti, A: 8, B: 0, C: 4},
		Statement{Op: OpSeti, A: 9, B: 0, C: 5},
	)
}

func TestSerializeDeserialize_Simple(t *testing.T) {
	program := sampleDeviceProgram()

	data, err := SerializeProgram(program)
	if err != nil {
		t.Fatalf("SerializeProgram failed: %v", err)
	}

	// Verify magic header
	if string(data[:4]) != BytecodeMagic {
		t.Errorf("expected magic %q, got %q", BytecodeMagic, string(data[:4]))
	}

	restored, err := DeserializeProgram(data)
	if err != nil {
		t.Fatalf("DeserializeProgram failed: %v", err)
	}

	if restored.InstructionPointer != program.InstructionPointer {
		t.Errorf("expected #ip %d, got %d", program.InstructionPointer, restored.InstructionPointer)
	}
	if restored.Len() != program.Len() {
		t.Fatalf("expected %d statements, got %d", program.Len(), restored.Len())
	}
	for i := range program.Statements {
		if restored.Statements[i] != program.Statements[i] {
			t.Errorf("statement %d: expected %s, got %s", i, program.Statements[i], restored.Statements[i])
		}
	}
}

func TestSerializeDeserialize_Unbound(t *testing.T) {
	program := NewProgram(NoInstructionPointer, Statement{Op: OpMuli, A: 0, B: -3, C: 1})

	data, err := SerializeProgram(program)
	if err != nil {
		t.Fatalf("SerializeProgram failed: %v", err)
	}
	restored, err := DeserializeProgram(data)
	if err != nil {
		t.Fatalf("DeserializeProgram failed: %v", err)
	}

	if restored.InstructionPointer != NoInstructionPointer {
		t.Errorf("expected unbound program, got #ip %d", restored.InstructionPointer)
	}
	if restored.Statements[0].B != -3 {
		t.Errorf("expected negative immediate to survive, got %d", restored.Statements[0].B)
	}
}

func TestSerializeDeserialize_Empty(t *testing.T) {
	data, err := SerializeProgram(NewProgram(2))
	if err != nil {
		t.Fatalf("SerializeProgram failed: %v", err)
	}
	restored, err := DeserializeProgram(data)
	if err != nil {
		t.Fatalf("DeserializeProgram failed: %v", err)
	}
	if restored.Len() != 0 {
		t.Errorf("expected empty program, got %d statements", restored.Len())
	}
}

func TestSerializeProgram_UnknownOpcode(t *testing.T) {
	_, err := SerializeProgram(NewProgram(0, Statement{Op: Opcode(77)}))
	if !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("expected ErrUnknownOpcode, got %v", err)
	}
}

func TestDeserializeProgram_InvalidMagic(t *testing.T) {
	_, err := DeserializeProgram([]byte("ELFX\x01\x00"))
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestDeserializeProgram_InvalidVersion(t *testing.T) {
	data, _ := SerializeProgram(NewProgram(0))
	data[4] = 9

	_, err := DeserializeProgram(data)
	if !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("expected ErrInvalidVersion, got %v", err)
	}
}

func TestDeserializeProgram_Truncated(t *testing.T) {
	data, _ := SerializeProgram(sampleDeviceProgram())

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"magic only", data[:4]},
		{"header only", data[:10]},
		{"partial statements", data[:len(data)-5]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DeserializeProgram(tt.data); err == nil {
				t.Error("expected error for truncated bytecode")
			}
		})
	}

	_, err := DeserializeProgram(data[:len(data)-5])
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestDeserializeProgram_UnknownOpcode(t *testing.T) {
	data, _ := SerializeProgram(NewProgram(0, Statement{Op: OpSeti}))
	// header: magic(4) + version(2) + ip(4) + count(4)
	data[14] = 200

	_, err := DeserializeProgram(data)
	if !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("expected ErrUnknownOpcode, got %v", err)
	}
}

func TestDisassemble(t *testing.T) {
	program := NewProgram(0,
		Statement{Op: OpAddi, A: 0, B: 16, C: 0},
		Statement{Op: OpGtrr, A: 1, B: 2, C: 3},
		Statement{Op: OpSeti, A: 1, B: 0, C: 4},
	)

	out := Disassemble(program)

	for _, want := range []string{
		"; 3 statements",
		"#ip 0",
		"addi 0 16 0",
		"; 0000 ip = ip + 16",
		"; 0001 r3 = r1 > r2",
		"; 0002 r4 = 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected disassembly to contain %q, got:\n%s", want, out)
		}
	}
}

func TestDisassemble_Unbound(t *testing.T) {
	out := Disassemble(NewProgram(NoInstructionPointer, Statement{Op: OpEqri, A: 0, B: 7, C: 1}))

	if strings.Contains(out, "#ip") {
		t.Errorf("expected no #ip directive, got:\n%s", out)
	}
	if !strings.Contains(out, "r1 = r0 == 7") {
		t.Errorf("expected comparison description, got:\n%s", out)
	}
}
