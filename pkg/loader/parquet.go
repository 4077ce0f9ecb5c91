package loader

import (
	"context"
	"fmt"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/xitongsys/parquet-go-source/local"
)

// LoadParquet reads a sample table from a Parquet file with one int64
// column per sample field.
func LoadParquet(path string) (*dataframe.DataFrame, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	df, err := imports.LoadFromParquet(context.Background(), fr)
	if err != nil {
		return nil, fmt.Errorf("%s: reading Parquet: %w", path, err)
	}
	if _, err := checkSchema(df); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return df, nil
}
