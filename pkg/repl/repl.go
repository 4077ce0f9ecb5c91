// Package repl provides an interactive session over a single machine: load a
// program, step through it, inspect and overwrite registers, and apply
// statements by hand.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/akhildatla/elfcode/pkg/compiler"
	"github.com/akhildatla/elfcode/pkg/loader"
	"github.com/akhildatla/elfcode/pkg/vm"
)

const (
	prompt     = "elf> "
	promptCont = "...> "

	// defaultRunLimit bounds "run" without an explicit step count.
	defaultRunLimit = 10_000_000
)

// REPL provides an interactive Read-Eval-Print Loop.
type REPL struct {
	machine     *vm.Machine
	program     *vm.Program
	source      string
	history     []string
	multiline   strings.Builder
	inMultiline bool
	quiet       bool
}

// New creates a REPL over a machine with n registers.
func New(n int) *REPL {
	return &REPL{machine: vm.NewMachine(n)}
}

// SetQuiet suppresses the banner and prompts, for piped input.
func (r *REPL) SetQuiet(quiet bool) {
	r.quiet = quiet
}

// SetProgram makes p the current program and binds its instruction pointer.
func (r *REPL) SetProgram(p *vm.Program, source string) error {
	if err := r.machine.BindInstructionPointer(p.InstructionPointer); err != nil {
		return err
	}
	if err := r.machine.Load(p); err != nil {
		return err
	}
	r.program = p
	r.source = source
	return nil
}

// Machine returns the machine the REPL operates on.
func (r *REPL) Machine() *vm.Machine {
	return r.machine
}

// Start runs the loop until quit or end of input.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	if !r.quiet {
		fmt.Fprintln(out, "elfcode REPL")
		fmt.Fprintln(out, "Type 'help' for available commands, 'quit' to exit")
		fmt.Fprintln(out)
	}

	for {
		if !r.quiet {
			if r.inMultiline {
				fmt.Fprint(out, promptCont)
			} else {
				fmt.Fprint(out, prompt)
			}
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if r.inMultiline {
			if line == "" {
				r.inMultiline = false
				input := r.multiline.String()
				r.multiline.Reset()
				r.eval(input, out)
			} else {
				r.multiline.WriteString(line)
				r.multiline.WriteString("\n")
			}
			continue
		}

		if quit, handled := r.handleCommand(line, out); quit {
			return
		} else if handled {
			continue
		}

		// Statements ending with \ continue on the next line.
		if strings.HasSuffix(line, "\\") {
			r.inMultiline = true
			r.multiline.WriteString(strings.TrimSuffix(line, "\\"))
			r.multiline.WriteString("\n")
			continue
		}

		r.eval(line, out)
	}
}

// handleCommand runs a REPL command. It reports whether the session should
// end and whether line was a command at all.
func (r *REPL) handleCommand(line string, out io.Writer) (quit, handled bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, true
	}

	switch parts[0] {
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Goodbye!")
		return true, true

	case "help", "h", "?":
		r.printHelp(out)

	case "load":
		if len(parts) != 2 {
			fmt.Fprintln(out, "Usage: load <path>")
			break
		}
		r.load(parts[1], out)

	case "list":
		r.list(out)

	case "step", "s":
		n := int64(1)
		if len(parts) > 1 {
			v, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil || v < 1 {
				fmt.Fprintln(out, "Usage: step [n]")
				break
			}
			n = v
		}
		r.step(n, out)

	case "run":
		limit := int64(defaultRunLimit)
		if len(parts) > 1 {
			v, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil || v < 1 {
				fmt.Fprintln(out, "Usage: run [max-steps]")
				break
			}
			limit = v
		}
		r.run(limit, out)

	case "regs", "r":
		r.printRegisters(out)

	case "set":
		r.set(parts[1:], out)

	case "ip":
		r.printIP(out)

	case "reset":
		r.machine.ClearRegisters()
		if r.program != nil {
			if err := r.machine.Load(r.program); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				break
			}
		}
		fmt.Fprintln(out, "Registers cleared")

	case "history":
		for i, cmd := range r.history {
			fmt.Fprintf(out, "%3d: %s\n", i+1, cmd)
		}

	default:
		return false, false
	}
	return false, true
}

// eval parses input as program text and applies each statement to the
// registers without moving the instruction pointer. A #ip directive rebinds
// the instruction pointer.
func (r *REPL) eval(input string, out io.Writer) {
	if strings.TrimSpace(input) == "" {
		return
	}
	r.history = append(r.history, strings.TrimSpace(input))

	p, err := compiler.Compile(input, r.machine.NumRegisters())
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	if p.InstructionPointer != vm.NoInstructionPointer {
		if err := r.machine.BindInstructionPointer(p.InstructionPointer); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "ip bound to r%d\n", p.InstructionPointer)
	}
	for _, s := range p.Statements {
		if err := r.machine.Apply(s); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
	}
	if len(p.Statements) > 0 {
		fmt.Fprintf(out, "=> %v\n", r.machine.Registers())
	}
}

func (r *REPL) load(path string, out io.Writer) {
	p, err := loader.LoadProgram(path)
	if err != nil {
		fmt.Fprintf(out, "Error loading %s: %v\n", path, err)
		return
	}
	if err := compiler.Check(p, r.machine.NumRegisters()); err != nil {
		fmt.Fprintf(out, "Error loading %s: %v\n", path, err)
		return
	}
	if err := r.SetProgram(p, path); err != nil {
		fmt.Fprintf(out, "Error loading %s: %v\n", path, err)
		return
	}
	fmt.Fprintf(out, "Loaded %s (%d statements, %s)\n", path, p.Len(), ipBinding(p.InstructionPointer))
}

func (r *REPL) list(out io.Writer) {
	if r.program == nil {
		fmt.Fprintln(out, "No program loaded")
		return
	}
	ip := r.machine.InstructionPointer()
	for i, s := range r.program.Statements {
		marker := "  "
		if int64(i) == ip {
			marker = "->"
		}
		fmt.Fprintf(out, "%s %4d  %s\n", marker, i, s)
	}
}

func (r *REPL) step(n int64, out io.Writer) {
	if r.program == nil {
		fmt.Fprintln(out, "No program loaded")
		return
	}
	for i := int64(0); i < n; i++ {
		ip := r.machine.InstructionPointer()
		ok, err := r.machine.Step(r.program)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		if !ok {
			fmt.Fprintf(out, "Halted: ip %d is outside the program\n", ip)
			return
		}
		fmt.Fprintf(out, "%4d  %-16s %v\n", ip, r.program.Statements[ip], r.machine.Registers())
	}
}

// run steps until the program halts or limit statements have executed. It
// continues from the current state rather than restarting.
func (r *REPL) run(limit int64, out io.Writer) {
	if r.program == nil {
		fmt.Fprintln(out, "No program loaded")
		return
	}
	var steps int64
	for ; steps < limit; steps++ {
		ok, err := r.machine.Step(r.program)
		if err != nil {
			fmt.Fprintf(out, "Error after %d steps: %v\n", steps, err)
			return
		}
		if !ok {
			fmt.Fprintf(out, "Halted after %d steps: %v\n", steps, r.machine.Registers())
			return
		}
	}
	fmt.Fprintf(out, "Stopped after %d steps (%v): %v\n", steps, vm.ErrStepLimitExceeded, r.machine.Registers())
}

// set overwrites registers. "set rN v" writes one register; "set v0 v1 ..."
// overwrites the leading registers.
func (r *REPL) set(args []string, out io.Writer) {
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: set rN <value> | set <v0> [v1 ...]")
		return
	}

	regs := r.machine.Registers()
	var err error
	if strings.HasPrefix(args[0], "r") {
		err = setOne(regs, args)
	} else {
		regs, err = parseValues(args)
	}
	if err == nil {
		err = r.machine.SetRegisters(regs)
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "=> %v\n", r.machine.Registers())
}

func setOne(regs []int64, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: set rN <value>")
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(args[0], "r"))
	if err != nil || idx < 0 || idx >= len(regs) {
		return fmt.Errorf("%w: %s", vm.ErrInvalidRegister, args[0])
	}
	v, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", args[1])
	}
	regs[idx] = v
	return nil
}

func parseValues(args []string) ([]int64, error) {
	values := make([]int64, len(args))
	for i, a := range args {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", a)
		}
		values[i] = v
	}
	return values, nil
}

func (r *REPL) printRegisters(out io.Writer) {
	regs := r.machine.Registers()
	ipReg := r.machine.InstructionPointerRegister()

	header := make([]string, len(regs))
	row := make([]string, len(regs))
	for i, v := range regs {
		header[i] = fmt.Sprintf("r%d", i)
		if i == ipReg {
			header[i] += " (ip)"
		}
		row[i] = strconv.FormatInt(v, 10)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append(row)
	table.Render()
}

func (r *REPL) printIP(out io.Writer) {
	fmt.Fprintf(out, "ip = %d (%s)\n", r.machine.InstructionPointer(), ipBinding(r.machine.InstructionPointerRegister()))
}

func ipBinding(reg int) string {
	if reg == vm.NoInstructionPointer {
		return "unbound"
	}
	return fmt.Sprintf("bound to r%d", reg)
}

func (r *REPL) printHelp(out io.Writer) {
	help := `
REPL Commands:
  help, h, ?          Show this help message
  quit, exit, q       Exit the REPL
  load <path>         Load a text or bytecode program
  list                List the program, marking the instruction pointer
  step, s [n]         Execute n statements (default 1)
  run [max-steps]     Run until the program halts
  regs, r             Show the registers
  set rN <value>      Overwrite one register
  set <v0> [v1 ...]   Overwrite the leading registers
  ip                  Show the instruction pointer
  reset               Clear the registers and rewind
  history             Show applied statements

Statements:
  addi 0 1 2          Apply a statement to the registers directly
  #ip 3               Bind the instruction pointer to r3

Tips:
  - End a line with \ for multiline input
  - Press Enter twice to apply multiline input
`
	fmt.Fprint(out, help)
}
