package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// LoadJSON reads a sample table stored as an array of row objects keyed by
// column name, one object per sample.
func LoadJSON(path string) (*dataframe.DataFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyTable)
	}

	df, err := imports.LoadFromJSON(context.Background(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: reading JSON: %w", path, err)
	}
	if _, err := checkSchema(df); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return df, nil
}
