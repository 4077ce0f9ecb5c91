package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/akhildatla/elfcode/pkg/vm"
)

// Error definitions
var (
	ErrArity     = errors.New("wrong number of operands")
	ErrDirective = errors.New("invalid directive")
	ErrSyntax    = errors.New("syntax error")
)

// Parser parses elfcode source line by line.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	lexer := NewLexer(input)
	return &Parser{
		tokens: lexer.Tokenize(),
		pos:    0,
	}
}

// ParseProgram parses "#ip N" and "<op> a b c" lines.
func ParseProgram(src string) (*vm.Program, error) {
	return NewParser(src).ParseProgram()
}

// ParseSamples parses Before/instruction/After sample blocks.
func ParseSamples(src string) ([]vm.Sample, error) {
	return NewParser(src).ParseSamples()
}

// ParseRawProgram parses a numeric program, one "id a b c" per line.
func ParseRawProgram(src string) ([]vm.RawInstruction, error) {
	return NewParser(src).ParseRawProgram()
}

// ParseCalibration parses sample blocks followed by a numeric program.
func ParseCalibration(src string) ([]vm.Sample, []vm.RawInstruction, error) {
	p := NewParser(src)
	samples, err := p.ParseSamples()
	if err != nil {
		return nil, nil, err
	}
	raw, err := p.ParseRawProgram()
	if err != nil {
		return nil, nil, err
	}
	return samples, raw, nil
}

// ParseProgram parses the remaining input as a program. Without an #ip
// directive the program has vm.NoInstructionPointer.
func (p *Parser) ParseProgram() (*vm.Program, error) {
	prog := vm.NewProgram(vm.NoInstructionPointer)
	seenIP := false

	for {
		line, ok := p.nextLine()
		if !ok {
			return prog, nil
		}
		n := line[0].Line

		switch line[0].Type {
		case TokenDirective:
			if line[0].Value != "#ip" {
				return nil, fmt.Errorf("line %d: %w: %s", n, ErrDirective, line[0].Value)
			}
			if seenIP {
				return nil, fmt.Errorf("line %d: %w: duplicate #ip", n, ErrDirective)
			}
			args, err := intOperands(line[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			if len(args) != 1 {
				return nil, fmt.Errorf("line %d: %w: #ip expects 1 operand, got %d", n, ErrArity, len(args))
			}
			if args[0] < 0 {
				return nil, fmt.Errorf("line %d: %w: #ip %d", n, vm.ErrInvalidRegister, args[0])
			}
			prog.InstructionPointer = int(args[0])
			seenIP = true

		case TokenIdent:
			op, ok := vm.OpcodeFromString(strings.ToLower(line[0].Value))
			if !ok {
				return nil, fmt.Errorf("line %d: %w: %s", n, vm.ErrUnknownOpcode, line[0].Value)
			}
			args, err := intOperands(line[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			if len(args) != 3 {
				return nil, fmt.Errorf("line %d: %w: %s expects 3 operands, got %d", n, ErrArity, op, len(args))
			}
			prog.Statements = append(prog.Statements, vm.Statement{Op: op, A: args[0], B: args[1], C: args[2]})

		default:
			return nil, fmt.Errorf("line %d: %w: unexpected %s", n, ErrSyntax, line[0].Value)
		}
	}
}

// ParseSamples parses sample blocks until the input ends or a line does not
// start a new block.
func (p *Parser) ParseSamples() ([]vm.Sample, error) {
	var samples []vm.Sample

	for {
		line, ok := p.peekLine()
		if !ok || line[0].Type != TokenIdent || line[0].Value != "Before" {
			return samples, nil
		}
		p.nextLine()
		n := line[0].Line

		before, err := registerList(line, "Before")
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}

		instLine, ok := p.nextLine()
		if !ok {
			return nil, fmt.Errorf("line %d: %w: sample without instruction", n, ErrSyntax)
		}
		inst, err := rawInstruction(instLine)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", instLine[0].Line, err)
		}

		afterLine, ok := p.nextLine()
		if !ok {
			return nil, fmt.Errorf("line %d: %w: sample without After", instLine[0].Line, ErrSyntax)
		}
		after, err := registerList(afterLine, "After")
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", afterLine[0].Line, err)
		}

		s := vm.Sample{Before: before, Instruction: inst, After: after}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		samples = append(samples, s)
	}
}

// ParseRawProgram parses the remaining input as numeric instructions.
func (p *Parser) ParseRawProgram() ([]vm.RawInstruction, error) {
	var raw []vm.RawInstruction
	for {
		line, ok := p.nextLine()
		if !ok {
			return raw, nil
		}
		inst, err := rawInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line[0].Line, err)
		}
		raw = append(raw, inst)
	}
}

// nextLine returns the tokens of the next non-empty line, without the
// trailing newline.
func (p *Parser) nextLine() ([]Token, bool) {
	for p.pos < len(p.tokens) && p.tokens[p.pos].Type == TokenNewline {
		p.pos++
	}
	if p.pos >= len(p.tokens) || p.tokens[p.pos].Type == TokenEOF {
		return nil, false
	}

	start := p.pos
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos].Type
		if t == TokenNewline || t == TokenEOF {
			break
		}
		p.pos++
	}
	return p.tokens[start:p.pos], true
}

func (p *Parser) peekLine() ([]Token, bool) {
	pos := p.pos
	line, ok := p.nextLine()
	p.pos = pos
	return line, ok
}

// intOperands collects integer operands, allowing optional commas.
func intOperands(tokens []Token) ([]int64, error) {
	var values []int64
	for _, tok := range tokens {
		switch tok.Type {
		case TokenComma:
			continue
		case TokenInt:
			v, err := strconv.ParseInt(tok.Value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid integer: %s", ErrSyntax, tok.Value)
			}
			values = append(values, v)
		default:
			return nil, fmt.Errorf("%w: unexpected token: %s", ErrSyntax, tok.Value)
		}
	}
	return values, nil
}

func rawInstruction(line []Token) (vm.RawInstruction, error) {
	args, err := intOperands(line)
	if err != nil {
		return vm.RawInstruction{}, err
	}
	if len(args) != 4 {
		return vm.RawInstruction{}, fmt.Errorf("%w: numeric instruction expects 4 values, got %d", ErrArity, len(args))
	}
	return vm.RawInstruction{args[0], args[1], args[2], args[3]}, nil
}

// registerList parses `<label>: [v0, v1, ...]`.
func registerList(line []Token, label string) ([]int64, error) {
	if len(line) < 4 ||
		line[0].Type != TokenIdent || line[0].Value != label ||
		line[1].Type != TokenColon ||
		line[2].Type != TokenLBracket ||
		line[len(line)-1].Type != TokenRBracket {
		return nil, fmt.Errorf("%w: expected %s: [...]", ErrSyntax, label)
	}
	return intOperands(line[3 : len(line)-1])
}
