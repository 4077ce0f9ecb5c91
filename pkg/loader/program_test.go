package loader

import (
	"errors"
	"testing"

	"github.com/akhildatla/elfcode/internal/testutil"
	"github.com/akhildatla/elfcode/pkg/compiler"
	"github.com/akhildatla/elfcode/pkg/vm"
)

func TestLoadProgram_Text(t *testing.T) {
	path := testutil.TempFile(t, testutil.DeviceProgram(), ".txt")

	p, err := LoadProgram(path)
	if err != nil {
		t.Fatalf("LoadProgram failed: %v", err)
	}
	if p.InstructionPointer != 0 || p.Len() != 7 {
		t.Errorf("expected #ip 0 with 7 statements, got #ip %d with %d", p.InstructionPointer, p.Len())
	}
}

func TestLoadProgram_Bytecode(t *testing.T) {
	data, err := compiler.Assemble(testutil.DeviceProgram(), vm.DeviceRegs)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	// Detected by magic regardless of extension.
	for _, ext := range []string{".elfb", ".bin"} {
		path := testutil.TempFile(t, string(data), ext)
		p, err := LoadProgram(path)
		if err != nil {
			t.Fatalf("LoadProgram(%s) failed: %v", ext, err)
		}
		if p.Len() != 7 {
			t.Errorf("%s: expected 7 statements, got %d", ext, p.Len())
		}
	}
}

func TestLoadProgram_CorruptBytecode(t *testing.T) {
	path := testutil.TempFile(t, "garbage", ".elfb")

	_, err := LoadProgram(path)
	if !errors.Is(err, vm.ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestLoadProgram_ParseError(t *testing.T) {
	path := testutil.TempFile(t, "jump 1 2 3", ".txt")

	_, err := LoadProgram(path)
	if !errors.Is(err, vm.ErrUnknownOpcode) {
		t.Errorf("expected ErrUnknownOpcode, got %v", err)
	}
}

func TestLoadCalibration(t *testing.T) {
	path := testutil.TempFile(t, testutil.CalibrationInput(), ".txt")

	samples, raw, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration failed: %v", err)
	}
	if len(samples) != 4 || len(raw) != 4 {
		t.Errorf("expected 4 samples and 4 instructions, got %d and %d", len(samples), len(raw))
	}
}
