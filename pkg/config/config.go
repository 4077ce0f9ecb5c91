// Package config loads YAML run profiles.
//
// A profile collects the settings of a run so they need not be repeated on
// the command line:
//
//	register_count: 6
//	registers: [1]
//	max_steps: 10000000
//	watch:
//	  instruction: 28
//	  register: 4
//	  mode: last-unique
//	trace:
//	  path: trace.csv
//	  format: csv
//	  limit: 1000
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/akhildatla/elfcode/pkg/vm"
)

// Error definitions
var (
	ErrInvalidProfile = errors.New("invalid profile")
)

// Profile configures a program run.
type Profile struct {
	RegisterCount int          `yaml:"register_count"`
	Registers     []int64      `yaml:"registers,omitempty"`
	MaxSteps      int64        `yaml:"max_steps,omitempty"`
	Workers       int          `yaml:"workers,omitempty"`
	Watch         *WatchConfig `yaml:"watch,omitempty"`
	Trace         *TraceConfig `yaml:"trace,omitempty"`
}

// WatchConfig describes a watch point.
type WatchConfig struct {
	Instruction int64  `yaml:"instruction"`
	Register    int    `yaml:"register"`
	Mode        string `yaml:"mode,omitempty"`
}

// TraceConfig describes where an execution trace is written.
type TraceConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format,omitempty"` // csv (default) or json
	Limit  int    `yaml:"limit,omitempty"`
}

// Default returns the profile used when none is given.
func Default() *Profile {
	return &Profile{RegisterCount: vm.DeviceRegs}
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a profile. Unknown keys are rejected and missing values take
// their defaults.
func Parse(data []byte) (*Profile, error) {
	p := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the profile for consistency.
func (p *Profile) Validate() error {
	if p.RegisterCount <= 0 {
		return fmt.Errorf("%w: register_count must be positive, got %d", ErrInvalidProfile, p.RegisterCount)
	}
	if len(p.Registers) > p.RegisterCount {
		return fmt.Errorf("%w: %d initial registers for %d registers",
			ErrInvalidProfile, len(p.Registers), p.RegisterCount)
	}
	if p.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must not be negative", ErrInvalidProfile)
	}
	if w := p.Watch; w != nil {
		if w.Register < 0 || w.Register >= p.RegisterCount {
			return fmt.Errorf("%w: watch register r%d", ErrInvalidProfile, w.Register)
		}
		if _, err := vm.ParseWatchMode(w.Mode); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
	}
	if t := p.Trace; t != nil {
		if t.Path == "" {
			return fmt.Errorf("%w: trace path is required", ErrInvalidProfile)
		}
		switch t.Format {
		case "", "csv", "json":
		default:
			return fmt.Errorf("%w: trace format %q", ErrInvalidProfile, t.Format)
		}
	}
	return nil
}

// Options converts the profile into machine options. The trace, if any, is
// returned so the caller can write it out after the run.
func (p *Profile) Options() (vm.Options, *vm.Trace, error) {
	opts := vm.Options{MaxSteps: p.MaxSteps}

	if w := p.Watch; w != nil {
		mode, err := vm.ParseWatchMode(w.Mode)
		if err != nil {
			return vm.Options{}, nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
		opts.Watch = &vm.Watch{Instruction: w.Instruction, Register: w.Register, Mode: mode}
	}

	var trace *vm.Trace
	if p.Trace != nil {
		trace = vm.NewTrace(p.Trace.Limit)
		opts.Trace = trace
	}
	return opts, trace, nil
}

// WriteTrace writes trace to the profile's trace path in its format.
func (p *Profile) WriteTrace(trace *vm.Trace) error {
	if p.Trace == nil || trace == nil {
		return nil
	}

	f, err := os.Create(p.Trace.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if p.Trace.Format == "json" {
		err = trace.WriteJSON(f)
	} else {
		err = trace.WriteCSV(f)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

// Marshal encodes the profile as YAML.
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
