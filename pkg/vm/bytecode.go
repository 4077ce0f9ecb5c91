package vm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Bytecode file format:
// - Magic: "ELFB" (4 bytes)
// - Version: uint16
// - InstructionPointer: int32 (-1 when unbound)
// - NumStatements: uint32
// - Statements: opcode uint8, then a, b, c as int64

const (
	BytecodeMagic   = "ELFB"
	BytecodeVersion = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid bytecode magic")
	ErrInvalidVersion = errors.New("unsupported bytecode version")
)

// SerializeProgram serializes a Program to bytecode format.
func SerializeProgram(p *Program) ([]byte, error) {
	buf := new(bytes.Buffer)

	// Write magic
	buf.WriteString(BytecodeMagic)

	// Write version
	if err := binary.Write(buf, binary.LittleEndian, uint16(BytecodeVersion)); err != nil {
		return nil, fmt.Errorf("writing version: %w", err)
	}

	if err := binary.Write(buf, binary.LittleEndian, int32(p.InstructionPointer)); err != nil {
		return nil, fmt.Errorf("writing instruction pointer: %w", err)
	}

	// Write statements
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(p.Statements))); err != nil {
		return nil, fmt.Errorf("writing statement count: %w", err)
	}
	for i, s := range p.Statements {
		if !s.Op.Valid() {
			return nil, fmt.Errorf("statement %d: %w: %d", i, ErrUnknownOpcode, s.Op)
		}
		if err := binary.Write(buf, binary.LittleEndian, uint8(s.Op)); err != nil {
			return nil, fmt.Errorf("writing statement %d: %w", i, err)
		}
		if err := binary.Write(buf, binary.LittleEndian, [3]int64{s.A, s.B, s.C}); err != nil {
			return nil, fmt.Errorf("writing statement %d: %w", i, err)
		}
	}

	return buf.Bytes(), nil
}

// DeserializeProgram deserializes bytecode to a Program.
func DeserializeProgram(data []byte) (*Program, error) {
	buf := bytes.NewReader(data)

	// Read and verify magic
	magic := make([]byte, 4)
	if _, err := io.ReadFull(buf, magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != BytecodeMagic {
		return nil, ErrInvalidMagic
	}

	// Read and verify version
	var version uint16
	if err := binary.Read(buf, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != BytecodeVersion {
		return nil, ErrInvalidVersion
	}

	var ip int32
	if err := binary.Read(buf, binary.LittleEndian, &ip); err != nil {
		return nil, fmt.Errorf("reading instruction pointer: %w", err)
	}

	var count uint32
	if err := binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading statement count: %w", err)
	}
	// Each statement occupies 25 bytes; reject counts the payload cannot hold.
	if int64(count)*25 > int64(buf.Len()) {
		return nil, fmt.Errorf("reading statements: %w", io.ErrUnexpectedEOF)
	}

	statements := make([]Statement, count)
	for i := range statements {
		var (
			op   uint8
			args [3]int64
		)
		if err := binary.Read(buf, binary.LittleEndian, &op); err != nil {
			return nil, fmt.Errorf("reading statement %d: %w", i, err)
		}
		if !Opcode(op).Valid() {
			return nil, fmt.Errorf("statement %d: %w: %d", i, ErrUnknownOpcode, op)
		}
		if err := binary.Read(buf, binary.LittleEndian, &args); err != nil {
			return nil, fmt.Errorf("reading statement %d: %w", i, err)
		}
		statements[i] = Statement{Op: Opcode(op), A: args[0], B: args[1], C: args[2]}
	}

	return &Program{
		Statements:         statements,
		InstructionPointer: int(ip),
	}, nil
}

// Disassemble converts a Program back to assembly source code. The output
// parses back to the same program.
func Disassemble(p *Program) string {
	var buf bytes.Buffer

	buf.WriteString("; Disassembled from ELFB bytecode\n")
	buf.WriteString(fmt.Sprintf("; %d statements\n\n", len(p.Statements)))

	if p.InstructionPointer != NoInstructionPointer {
		buf.WriteString(fmt.Sprintf("#ip %d\n", p.InstructionPointer))
	}
	for i, s := range p.Statements {
		buf.WriteString(fmt.Sprintf("%-20s ; %04d %s\n", s.String(), i, describe(s, p.InstructionPointer)))
	}

	return buf.String()
}

// describe renders the statement's effect, e.g. "r1 = r2 + 16".
func describe(s Statement, ip int) string {
	reg := func(r int64) string {
		if int(r) == ip {
			return "ip"
		}
		return fmt.Sprintf("r%d", r)
	}

	var expr string
	switch s.Op {
	case OpAddr:
		expr = fmt.Sprintf("%s + %s", reg(s.A), reg(s.B))
	case OpAddi:
		expr = fmt.Sprintf("%s + %d", reg(s.A), s.B)
	case OpMulr:
		expr = fmt.Sprintf("%s * %s", reg(s.A), reg(s.B))
	case OpMuli:
		expr = fmt.Sprintf("%s * %d", reg(s.A), s.B)
	case OpBanr:
		expr = fmt.Sprintf("%s & %s", reg(s.A), reg(s.B))
	case OpBani:
		expr = fmt.Sprintf("%s & %d", reg(s.A), s.B)
	case OpBorr:
		expr = fmt.Sprintf("%s | %s", reg(s.A), reg(s.B))
	case OpBori:
		expr = fmt.Sprintf("%s | %d", reg(s.A), s.B)
	case OpSetr:
		expr = reg(s.A)
	case OpSeti:
		expr = fmt.Sprintf("%d", s.A)
	case OpGtir:
		expr = fmt.Sprintf("%d > %s", s.A, reg(s.B))
	case OpGtri:
		expr = fmt.Sprintf("%s > %d", reg(s.A), s.B)
	case OpGtrr:
		expr = fmt.Sprintf("%s > %s", reg(s.A), reg(s.B))
	case OpEqir:
		expr = fmt.Sprintf("%d == %s", s.A, reg(s.B))
	case OpEqri:
		expr = fmt.Sprintf("%s == %d", reg(s.A), s.B)
	case OpEqrr:
		expr = fmt.Sprintf("%s == %s", reg(s.A), reg(s.B))
	default:
		return "?"
	}
	return fmt.Sprintf("%s = %s", reg(s.C), expr)
}
