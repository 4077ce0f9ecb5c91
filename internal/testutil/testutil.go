// Package testutil provides testing utilities for elfcode tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// TempFile creates a temporary file with the given content and extension.
// The file is automatically cleaned up when the test finishes.
func TempFile(t *testing.T, content, ext string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test"+ext)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// DeviceProgram returns a short program with the instruction pointer bound
// to r0. Run on six registers it halts with [7 5 6 0 0 9] after 5 steps.
func DeviceProgram() string {
	return `#ip 0
seti 5 0 1
seti 6 0 2
addi 0 1 0
addr 1 2 3
setr 1 0 0
seti 8 0 4
seti 9 0 5
`
}

// CountdownProgram returns a loop that counts r1 down from the initial r0
// and exits when it reaches zero. For r0 >= 1 it executes 4*r0+1
// statements.
func CountdownProgram() string {
	return `#ip 3
setr 0 0 1     ; r1 = r0
addi 1 -1 1    ; r1--
gtri 1 0 2     ; r2 = r1 > 0
addr 2 3 3     ; skip the exit when r2
seti 99 0 3    ; exit
seti 0 0 3     ; loop to 1
`
}

// SamplesText returns three sample blocks that resolve to
// 0 -> muli, 1 -> mulr, 2 -> seti.
func SamplesText() string {
	return `Before: [3, 0, 0, 0]
0 0 7 1
After:  [3, 21, 0, 0]

Before: [0, 0, 3, 4]
1 2 3 0
After:  [12, 0, 3, 4]

Before: [3, 2, 1, 1]
2 2 1 2
After:  [3, 2, 2, 1]

Before: [0, 0, 0, 0]
2 5 9 3
After:  [0, 0, 0, 5]
`
}

// RawProgramText returns a numeric program for the SamplesText mapping.
// It ends with registers [3 4 12 24].
func RawProgramText() string {
	return `2 3 0 0
2 4 0 1
1 0 1 2
0 2 2 3
`
}

// CalibrationInput returns SamplesText followed by RawProgramText.
func CalibrationInput() string {
	return SamplesText() + "\n\n\n" + RawProgramText()
}

// SamplesCSV returns SamplesText as a table.
func SamplesCSV() string {
	return `before_0,before_1,before_2,before_3,opcode,a,b,c,after_0,after_1,after_2,after_3
3,0,0,0,0,0,7,1,3,21,0,0
0,0,3,4,1,2,3,0,12,0,3,4
3,2,1,1,2,2,1,2,3,2,2,1
0,0,0,0,2,5,9,3,0,0,0,5`
}

// SamplesJSON returns SamplesText as a JSON array of rows.
func SamplesJSON() string {
	return `[
{"before_0":3,"before_1":0,"before_2":0,"before_3":0,"opcode":0,"a":0,"b":7,"c":1,"after_0":3,"after_1":21,"after_2":0,"after_3":0},
{"before_0":0,"before_1":0,"before_2":3,"before_3":4,"opcode":1,"a":2,"b":3,"c":0,"after_0":12,"after_1":0,"after_2":3,"after_3":4},
{"before_0":3,"before_1":2,"before_2":1,"before_3":1,"opcode":2,"a":2,"b":1,"c":2,"after_0":3,"after_1":2,"after_2":2,"after_3":1},
{"before_0":0,"before_1":0,"before_2":0,"before_3":0,"opcode":2,"a":5,"b":9,"c":3,"after_0":0,"after_1":0,"after_2":0,"after_3":5}
]`
}

// MakeSampleFrame creates the SamplesText table as a dataframe.
func MakeSampleFrame() *dataframe.DataFrame {
	return dataframe.NewDataFrame(
		dataframe.NewSeriesInt64("before_0", nil, 3, 0, 3, 0),
		dataframe.NewSeriesInt64("before_1", nil, 0, 0, 2, 0),
		dataframe.NewSeriesInt64("before_2", nil, 0, 3, 1, 0),
		dataframe.NewSeriesInt64("before_3", nil, 0, 4, 1, 0),
		dataframe.NewSeriesInt64("opcode", nil, 0, 1, 2, 2),
		dataframe.NewSeriesInt64("a", nil, 0, 2, 2, 5),
		dataframe.NewSeriesInt64("b", nil, 7, 3, 1, 9),
		dataframe.NewSeriesInt64("c", nil, 1, 0, 2, 3),
		dataframe.NewSeriesInt64("after_0", nil, 3, 12, 3, 0),
		dataframe.NewSeriesInt64("after_1", nil, 21, 0, 2, 0),
		dataframe.NewSeriesInt64("after_2", nil, 0, 3, 2, 0),
		dataframe.NewSeriesInt64("after_3", nil, 0, 4, 1, 5),
	)
}

// AssertRegisters checks two register files are equal.
func AssertRegisters(t *testing.T, expected, actual []int64) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("expected %v, got %v", expected, actual)
		return
	}
	for i := range expected {
		if expected[i] != actual[i] {
			t.Errorf("expected %v, got %v", expected, actual)
			return
		}
	}
}
