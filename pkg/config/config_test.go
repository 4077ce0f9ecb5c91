package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/akhildatla/elfcode/internal/testutil"
	"github.com/akhildatla/elfcode/pkg/compiler"
	"github.com/akhildatla/elfcode/pkg/vm"
)

func TestParse_Full(t *testing.T) {
	src := `
register_count: 6
registers: [1, 0, 3]
max_steps: 1000
workers: 4
watch:
  instruction: 28
  register: 4
  mode: last-unique
trace:
  path: out.json
  format: json
  limit: 50
`
	p, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := &Profile{
		RegisterCount: 6,
		Registers:     []int64{1, 0, 3},
		MaxSteps:      1000,
		Workers:       4,
		Watch:         &WatchConfig{Instruction: 28, Register: 4, Mode: "last-unique"},
		Trace:         &TraceConfig{Path: "out.json", Format: "json", Limit: 50},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Defaults(t *testing.T) {
	p, err := Parse([]byte("max_steps: 25\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.RegisterCount != vm.DeviceRegs {
		t.Errorf("expected %d registers, got %d", vm.DeviceRegs, p.RegisterCount)
	}

	empty, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse of empty profile failed: %v", err)
	}
	if diff := cmp.Diff(Default(), empty); diff != "" {
		t.Errorf("expected default profile (-want +got):\n%s", diff)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown key", "max_step: 10"},
		{"bad yaml", "registers: [1, 2"},
		{"zero registers", "register_count: 0"},
		{"too many initial registers", "register_count: 2\nregisters: [1, 2, 3]"},
		{"negative steps", "max_steps: -1"},
		{"watch register", "watch:\n  instruction: 1\n  register: 6"},
		{"watch mode", "watch:\n  instruction: 1\n  register: 0\n  mode: sometimes"},
		{"trace path", "trace:\n  format: csv"},
		{"trace format", "trace:\n  path: x\n  format: xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			if !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("expected ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := testutil.TempFile(t, "register_count: 4\nregisters: [9]\n", ".yaml")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.RegisterCount != 4 || p.Registers[0] != 9 {
		t.Errorf("unexpected profile %+v", p)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestProfile_Options(t *testing.T) {
	p := &Profile{
		RegisterCount: 6,
		MaxSteps:      99,
		Watch:         &WatchConfig{Instruction: 3, Register: 2, Mode: "first"},
		Trace:         &TraceConfig{Path: "t.csv", Limit: 10},
	}

	opts, trace, err := p.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if opts.MaxSteps != 99 {
		t.Errorf("expected 99 steps, got %d", opts.MaxSteps)
	}
	if opts.Watch == nil || opts.Watch.Instruction != 3 || opts.Watch.Register != 2 || opts.Watch.Mode != vm.WatchFirst {
		t.Errorf("unexpected watch %+v", opts.Watch)
	}
	if trace == nil || opts.Trace != trace || trace.Limit != 10 {
		t.Errorf("expected trace with limit 10, got %+v", trace)
	}
}

func TestProfile_OptionsWithoutExtras(t *testing.T) {
	opts, trace, err := Default().Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if opts.Watch != nil || opts.Trace != nil || trace != nil {
		t.Error("expected no watch or trace")
	}
}

func TestProfile_WriteTrace(t *testing.T) {
	for _, format := range []string{"csv", "json"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "trace."+format)
			p := &Profile{RegisterCount: 6, Trace: &TraceConfig{Path: path, Format: format}}

			opts, trace, err := p.Options()
			if err != nil {
				t.Fatalf("Options failed: %v", err)
			}
			program, err := compiler.ParseProgram(testutil.DeviceProgram())
			if err != nil {
				t.Fatalf("ParseProgram failed: %v", err)
			}
			if _, err := vm.NewMachine(p.RegisterCount).Execute(program, opts); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}

			if err := p.WriteTrace(trace); err != nil {
				t.Fatalf("WriteTrace failed: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading trace: %v", err)
			}
			if !strings.Contains(string(data), "setr") {
				t.Errorf("expected trace to mention setr, got:\n%s", data)
			}
		})
	}
}

func TestProfile_MarshalRoundTrip(t *testing.T) {
	p := &Profile{
		RegisterCount: 6,
		Registers:     []int64{1},
		Watch:         &WatchConfig{Instruction: 28, Register: 4, Mode: "first"},
	}

	data, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := cmp.Diff(p, back); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}
