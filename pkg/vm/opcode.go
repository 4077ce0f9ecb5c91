package vm

// Opcode represents one of the sixteen device instructions.
type Opcode uint8

const (
	// ===== Arithmetic =====
	OpAddr Opcode = iota // R[c] = R[a] + R[b]
	OpAddi               // R[c] = R[a] + b
	OpMulr               // R[c] = R[a] * R[b]
	OpMuli               // R[c] = R[a] * b

	// ===== Bitwise =====
	OpBanr // R[c] = R[a] & R[b]
	OpBani // R[c] = R[a] & b
	OpBorr // R[c] = R[a] | R[b]
	OpBori // R[c] = R[a] | b

	// ===== Assignment =====
	OpSetr // R[c] = R[a]
	OpSeti // R[c] = a

	// ===== Comparison =====
	OpGtir // R[c] = a > R[b]
	OpGtri // R[c] = R[a] > b
	OpGtrr // R[c] = R[a] > R[b]
	OpEqir // R[c] = a == R[b]
	OpEqri // R[c] = R[a] == b
	OpEqrr // R[c] = R[a] == R[b]

	NumOpcodes = int(OpEqrr) + 1
)

// Family groups opcodes by the kind of operation they perform.
type Family uint8

const (
	FamilyArithmetic Family = iota
	FamilyBitwise
	FamilyAssignment
	FamilyComparison
)

// String returns the string representation of a family.
func (f Family) String() string {
	switch f {
	case FamilyArithmetic:
		return "arithmetic"
	case FamilyBitwise:
		return "bitwise"
	case FamilyAssignment:
		return "assignment"
	case FamilyComparison:
		return "comparison"
	default:
		return "unknown"
	}
}

var opcodeNames = [NumOpcodes]string{
	"addr", "addi", "mulr", "muli",
	"banr", "bani", "borr", "bori",
	"setr", "seti",
	"gtir", "gtri", "gtrr", "eqir", "eqri", "eqrr",
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, NumOpcodes)
	for i, name := range opcodeNames {
		m[name] = Opcode(i)
	}
	return m
}()

// Opcodes returns every opcode in canonical order.
func Opcodes() []Opcode {
	ops := make([]Opcode, NumOpcodes)
	for i := range ops {
		ops[i] = Opcode(i)
	}
	return ops
}

// Valid reports whether o is one of the sixteen known opcodes.
func (o Opcode) Valid() bool {
	return int(o) < NumOpcodes
}

// String returns the mnemonic of an opcode.
func (o Opcode) String() string {
	if !o.Valid() {
		return "UNKNOWN"
	}
	return opcodeNames[o]
}

// Family returns the family the opcode belongs to.
func (o Opcode) Family() Family {
	switch {
	case o <= OpMuli:
		return FamilyArithmetic
	case o <= OpBori:
		return FamilyBitwise
	case o <= OpSeti:
		return FamilyAssignment
	default:
		return FamilyComparison
	}
}

// OpcodeFromString converts a mnemonic to an opcode.
func OpcodeFromString(s string) (Opcode, bool) {
	op, ok := opcodeByName[s]
	return op, ok
}

// Operands reports whether A and B are register indices (true) or
// immediates (false). Setr and seti ignore B.
func (o Opcode) Operands() (aReg, bReg bool) {
	switch o {
	case OpAddr, OpMulr, OpBanr, OpBorr, OpGtrr, OpEqrr:
		return true, true
	case OpAddi, OpMuli, OpBani, OpBori, OpGtri, OpEqri, OpSetr:
		return true, false
	case OpGtir, OpEqir:
		return false, true
	default:
		return false, false
	}
}

// Apply executes the opcode against rf. Only R[c] is written. Register
// operands outside the file yield ErrInvalidRegister and leave rf untouched.
// Arithmetic wraps on int64 overflow.
func (o Opcode) Apply(rf RegisterFile, a, b, c int64) error {
	if !rf.valid(c) {
		return ErrInvalidRegister
	}

	reg := func(r int64) (int64, bool) {
		if !rf.valid(r) {
			return 0, false
		}
		return rf[r], true
	}

	var (
		x, y   int64
		okA    = true
		okB    = true
		result int64
	)

	switch o {
	case OpAddr, OpMulr, OpBanr, OpBorr, OpGtrr, OpEqrr:
		x, okA = reg(a)
		y, okB = reg(b)
	case OpAddi, OpMuli, OpBani, OpBori, OpGtri, OpEqri:
		x, okA = reg(a)
		y = b
	case OpGtir, OpEqir:
		x = a
		y, okB = reg(b)
	case OpSetr:
		x, okA = reg(a)
	case OpSeti:
		x = a
	default:
		return ErrUnknownOpcode
	}
	if !okA || !okB {
		return ErrInvalidRegister
	}

	switch o {
	case OpAddr, OpAddi:
		result = x + y
	case OpMulr, OpMuli:
		result = x * y
	case OpBanr, OpBani:
		result = x & y
	case OpBorr, OpBori:
		result = x | y
	case OpSetr, OpSeti:
		result = x
	case OpGtir, OpGtri, OpGtrr:
		result = boolToInt(x > y)
	case OpEqir, OpEqri, OpEqrr:
		result = boolToInt(x == y)
	}

	rf[c] = result
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
