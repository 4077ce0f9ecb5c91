// Package loader reads samples and programs from files.
//
// Samples may be stored as text blocks (.txt) or as tables (.csv, .json,
// .parquet) with the columns
//
//	before_0 .. before_N, opcode, a, b, c, after_0 .. after_N
//
// Programs may be stored as text (.txt, .elf) or ELFB bytecode (.elfb).
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	log "github.com/sirupsen/logrus"

	"github.com/akhildatla/elfcode/pkg/compiler"
	"github.com/akhildatla/elfcode/pkg/vm"
)

// Sample table errors
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrInvalidValue      = errors.New("invalid sample value")
)

// LoadSamples reads samples from path, choosing the format by extension.
func LoadSamples(path string) ([]vm.Sample, error) {
	ext := strings.ToLower(filepath.Ext(path))
	log.Debugf("loading samples from %s", path)

	var (
		df  *dataframe.DataFrame
		err error
	)
	switch ext {
	case ".txt", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return compiler.ParseSamples(string(data))
	case ".csv":
		df, err = LoadCSV(path)
	case ".json":
		df, err = LoadJSON(path)
	case ".parquet":
		df, err = LoadParquet(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	samples, err := FrameToSamples(df)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// FrameToSamples converts a sample table into samples.
func FrameToSamples(df *dataframe.DataFrame) ([]vm.Sample, error) {
	cols, err := checkSchema(df)
	if err != nil {
		return nil, err
	}
	before, after, inst := cols.before, cols.after, cols.inst

	rows := before[0].NRows()
	samples := make([]vm.Sample, rows)
	for row := 0; row < rows; row++ {
		s := vm.Sample{
			Before: make([]int64, len(before)),
			After:  make([]int64, len(after)),
		}
		for i, col := range before {
			v, err := int64Value(col, row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
			s.Before[i] = v
		}
		for i, col := range after {
			v, err := int64Value(col, row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
			s.After[i] = v
		}
		for i, col := range inst {
			v, err := int64Value(col, row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
			s.Instruction[i] = v
		}
		samples[row] = s
	}

	log.Debugf("loaded %d samples with %d registers", len(samples), len(before))
	return samples, nil
}

func registerColumns(df *dataframe.DataFrame, prefix string) []dataframe.Series {
	var cols []dataframe.Series
	for i := 0; ; i++ {
		s, ok := column(df, fmt.Sprintf("%s_%d", prefix, i))
		if !ok {
			return cols
		}
		cols = append(cols, s)
	}
}

// column retrieves a Series from a DataFrame by name.
func column(df *dataframe.DataFrame, name string) (dataframe.Series, bool) {
	if df == nil {
		return nil, false
	}
	idx, err := df.NameToColumn(name)
	if err != nil {
		return nil, false
	}
	return df.Series[idx], true
}

// int64Value extracts a whole number from a Series at index i.
func int64Value(s dataframe.Series, i int) (int64, error) {
	if i < 0 || i >= s.NRows() {
		return 0, fmt.Errorf("%w: %s has no row %d", ErrInvalidValue, s.Name(), i)
	}
	v := s.Value(i)
	switch val := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: %s is empty", ErrInvalidValue, s.Name())
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("%w: %s = %v", ErrInvalidValue, s.Name(), val)
		}
		return int64(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s = %v", ErrInvalidValue, s.Name(), val)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s = %q", ErrInvalidValue, s.Name(), val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidValue, s.Name(), v)
	}
}
