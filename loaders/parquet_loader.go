// Copyright 2025 The DBQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package loaders

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/DataBridgeTech/dqcheck"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/reader"
)

const parquetReadParallelism = 4

// LoadParquetFile reads every leaf column of a flat parquet file. Optional values that are
// absent become nulls. Repeated (list) columns are rejected.
func LoadParquetFile(ctx context.Context, path string, name string) (*dqcheck.Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", dqcheck.ErrDatasetNotFound, name)
		}
		return nil, err
	}

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file %s: %w", name, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, parquetReadParallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet footer of %s: %w", name, err)
	}
	defer pr.ReadStop()

	numRows := pr.GetNumRows()
	columns := make([]*dqcheck.Column, 0, len(pr.SchemaHandler.ValueColumns))
	for _, inPath := range pr.SchemaHandler.ValueColumns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		exPath := pr.SchemaHandler.InPathToExPath[inPath]
		values, _, _, err := pr.ReadColumnByPath(exPath, numRows)
		if err != nil {
			return nil, fmt.Errorf("failed to read column %s of %s: %w", exPath, name, err)
		}
		if int64(len(values)) != numRows {
			return nil, fmt.Errorf("%w: %s: column %s is repeated or nested", dqcheck.ErrUnsupportedFormat, name, exPath)
		}

		col, err := dqcheck.NewColumn(parquetColumnName(exPath), values)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		columns = append(columns, col)
	}

	ds, err := dqcheck.NewDataset(columns...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ds.Named(name), nil
}

// parquetColumnName drops the root element from a schema path.
func parquetColumnName(exPath string) string {
	parts := strings.Split(exPath, common.PAR_GO_PATH_DELIMITER)
	return parts[len(parts)-1]
}
