package vm

const (
	CalibrationRegs = 4 // register count used by calibration samples
	DeviceRegs      = 6 // register count used by full device programs
)

// RegisterFile holds the machine's integer registers.
type RegisterFile []int64

// NewRegisterFile creates a new register file of n registers, all zeroed.
func NewRegisterFile(n int) RegisterFile {
	return make(RegisterFile, n)
}

// Reset clears all registers.
func (rf RegisterFile) Reset() {
	for i := range rf {
		rf[i] = 0
	}
}

// Load overwrites the leading registers with values.
func (rf RegisterFile) Load(values []int64) error {
	if len(values) > len(rf) {
		return ErrInvalidRegister
	}
	copy(rf, values)
	return nil
}

// Snapshot returns a copy of the register file.
func (rf RegisterFile) Snapshot() []int64 {
	out := make([]int64, len(rf))
	copy(out, rf)
	return out
}

// Equal reports whether the register file holds exactly the given values.
func (rf RegisterFile) Equal(values []int64) bool {
	if len(rf) != len(values) {
		return false
	}
	for i, v := range values {
		if rf[i] != v {
			return false
		}
	}
	return true
}

func (rf RegisterFile) valid(r int64) bool {
	return r >= 0 && r < int64(len(rf))
}
