package loader

import (
	"context"
	"errors"
	"fmt"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"

	"github.com/akhildatla/elfcode/pkg/vm"
)

// Sample table errors
var (
	ErrEmptyTable    = errors.New("empty sample table")
	ErrMissingColumn = errors.New("missing sample column")
)

// sampleColumns are the columns of a sample table, in sample order.
type sampleColumns struct {
	before []dataframe.Series
	inst   [4]dataframe.Series
	after  []dataframe.Series
}

// checkSchema locates the sample columns of df. The register count is the
// number of consecutive before_i columns and must equal the after_i count.
func checkSchema(df *dataframe.DataFrame) (*sampleColumns, error) {
	if df == nil || len(df.Series) == 0 || df.NRows() == 0 {
		return nil, ErrEmptyTable
	}

	cols := &sampleColumns{
		before: registerColumns(df, "before"),
		after:  registerColumns(df, "after"),
	}
	if len(cols.before) == 0 {
		return nil, fmt.Errorf("%w: before_0", ErrMissingColumn)
	}
	if len(cols.after) != len(cols.before) {
		return nil, fmt.Errorf("%w: %d before columns, %d after columns",
			vm.ErrMalformedSample, len(cols.before), len(cols.after))
	}
	for i, name := range []string{"opcode", "a", "b", "c"} {
		s, ok := column(df, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cols.inst[i] = s
	}
	return cols, nil
}

// LoadCSV reads a sample table from a CSV file whose header row names the
// columns. Whole-number columns come back as int64.
func LoadCSV(path string) (*dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	df, err := imports.LoadFromCSV(context.Background(), file, imports.CSVLoadOptions{
		InferDataTypes: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: reading CSV: %w", path, err)
	}
	if _, err := checkSchema(df); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return df, nil
}
