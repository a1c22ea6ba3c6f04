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

// Package loaders reads datasets from files, object storage and databases into memory.
package loaders

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/DataBridgeTech/dqcheck"
)

const utf8BOM = "\ufeff"

// LoadCSVFile reads a CSV file with a header row. See DecodeCSV.
func LoadCSVFile(ctx context.Context, path string) (*dqcheck.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", dqcheck.ErrDatasetNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return DecodeCSV(file, path)
}

// DecodeCSV reads a header row followed by records. Empty cells are nulls. Each column gets the
// narrowest type all its non-empty cells parse as: int64, float64, bool (true/false) or string.
func DecodeCSV(r io.Reader, name string) (*dqcheck.Dataset, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: no header row", name)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	cells := make([][]string, len(header))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for i, cell := range record {
			cells[i] = append(cells[i], cell)
		}
	}

	columns := make([]*dqcheck.Column, len(header))
	for i, colName := range header {
		col, err := dqcheck.NewColumn(colName, inferValues(cells[i]))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		columns[i] = col
	}

	ds, err := dqcheck.NewDataset(columns...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ds.Named(name), nil
}

func inferValues(cells []string) []any {
	values := make([]any, len(cells))

	if parsed, ok := parseAll(cells, func(s string) (any, bool) {
		v, err := strconv.ParseInt(s, 10, 64)
		return v, err == nil
	}); ok {
		return parsed
	}

	if parsed, ok := parseAll(cells, func(s string) (any, bool) {
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}); ok {
		return parsed
	}

	if parsed, ok := parseAll(cells, parseBool); ok {
		return parsed
	}

	for i, cell := range cells {
		if cell != "" {
			values[i] = cell
		}
	}
	return values
}

// parseAll applies parse to every non-empty cell and fails on the first cell it rejects.
func parseAll(cells []string, parse func(string) (any, bool)) ([]any, bool) {
	values := make([]any, len(cells))
	for i, cell := range cells {
		if cell == "" {
			continue
		}
		v, ok := parse(cell)
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func parseBool(s string) (any, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}
