package vm

import (
	"errors"
	"testing"
)

func TestStatement_String(t *testing.T) {
	s := Statement{Op: OpSeti, A: 5, B: 0, C: 1}
	if s.String() != "seti 5 0 1" {
		t.Errorf("expected %q, got %q", "seti 5 0 1", s.String())
	}
}

func TestRawInstruction_Accessors(t *testing.T) {
	raw := RawInstruction{9, 2, 1, 2}

	if raw.ID() != 9 {
		t.Errorf("expected id 9, got %d", raw.ID())
	}
	a, b, c := raw.Args()
	if a != 2 || b != 1 || c != 2 {
		t.Errorf("expected args (2, 1, 2), got (%d, %d, %d)", a, b, c)
	}
}

func TestProgram_Source(t *testing.T) {
	p := NewProgram(0,
		Statement{Op: OpSeti, A: 5, B: 0, C: 1},
		Statement{Op: OpAddi, A: 0, B: 1, C: 0},
	)

	expected := "#ip 0\nseti 5 0 1\naddi 0 1 0\n"
	if p.Source() != expected {
		t.Errorf("expected %q, got %q", expected, p.Source())
	}

	p.InstructionPointer = NoInstructionPointer
	if p.Source() != "seti 5 0 1\naddi 0 1 0\n" {
		t.Errorf("expected no #ip line, got %q", p.Source())
	}
}

func TestSample_Validate(t *testing.T) {
	ok := Sample{Before: []int64{3, 2, 1, 1}, Instruction: RawInstruction{9, 2, 1, 2}, After: []int64{3, 2, 2, 1}}
	if err := ok.Validate(); err != nil {
		t.Errorf("expected valid sample, got %v", err)
	}

	tests := []Sample{
		{Before: nil, After: nil},
		{Before: []int64{1, 2, 3, 4}, After: []int64{1, 2, 3}},
	}
	for i, s := range tests {
		if err := s.Validate(); !errors.Is(err, ErrMalformedSample) {
			t.Errorf("case %d: expected ErrMalformedSample, got %v", i, err)
		}
	}
}

func TestSample_Satisfies(t *testing.T) {
	s := Sample{Before: []int64{3, 2, 1, 1}, Instruction: RawInstruction{9, 2, 1, 2}, After: []int64{3, 2, 2, 1}}

	var matched []Opcode
	for _, op := range Opcodes() {
		if s.Satisfies(op) {
			matched = append(matched, op)
		}
	}

	expected := []Opcode{OpAddi, OpMulr, OpSeti}
	if len(matched) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, matched)
	}
	for i := range expected {
		if matched[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, matched)
		}
	}

	if s.Before[2] != 1 {
		t.Errorf("Satisfies must not modify the sample, before[2] = %d", s.Before[2])
	}
}

func TestSample_SatisfiesInvalidRegister(t *testing.T) {
	// c = 7 is outside a four-register sample: nothing can match.
	s := Sample{Before: []int64{0, 0, 0, 0}, Instruction: RawInstruction{1, 0, 0, 7}, After: []int64{0, 0, 0, 0}}
	for _, op := range Opcodes() {
		if s.Satisfies(op) {
			t.Errorf("expected %s not to satisfy a sample writing r7", op)
		}
	}
}
