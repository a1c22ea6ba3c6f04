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
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/DataBridgeTech/dqcheck"
)

const (
	FormatCSV     = ".csv"
	FormatParquet = ".parquet"
)

// FileLoader loads local .csv and .parquet files. The dataset is named after the path.
type FileLoader struct {
	logger *slog.Logger
}

var _ dqcheck.DatasetLoader = (*FileLoader)(nil)

func NewFileLoader(logger *slog.Logger) *FileLoader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &FileLoader{logger: logger}
}

func (l *FileLoader) Load(ctx context.Context, path string) (*dqcheck.Dataset, error) {
	startTime := time.Now()

	var (
		ds  *dqcheck.Dataset
		err error
	)
	switch format := FormatOf(path); format {
	case FormatCSV:
		ds, err = LoadCSVFile(ctx, path)
	case FormatParquet:
		ds, err = LoadParquetFile(ctx, path, path)
	default:
		return nil, fmt.Errorf("%w: %q (expected .csv or .parquet)", dqcheck.ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	l.logger.Debug("dataset loaded",
		"dataset", path,
		"rows", ds.NumRows(),
		"columns", ds.NumColumns(),
		"duration_ms", time.Since(startTime).Milliseconds())

	return ds, nil
}

// FormatOf returns the lower-cased extension of a path or object key.
func FormatOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
