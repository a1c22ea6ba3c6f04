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
	"reflect"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/DataBridgeTech/dqcheck"
)

// ClickhouseLoader reads whole tables over the native protocol.
type ClickhouseLoader struct {
	cnn    driver.Conn
	logger *slog.Logger
}

var _ dqcheck.DatasetLoader = (*ClickhouseLoader)(nil)

func NewClickhouseLoader(cnn driver.Conn, logger *slog.Logger) *ClickhouseLoader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ClickhouseLoader{
		cnn:    cnn,
		logger: logger,
	}
}

func (l *ClickhouseLoader) Load(ctx context.Context, table string) (*dqcheck.Dataset, error) {
	quoted, err := QuoteTableName(dqcheck.DataSourceTypeClickhouse, table)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	query := fmt.Sprintf("select * from %s", quoted)
	l.logger.Debug("loading table", "dialect", string(dqcheck.DataSourceTypeClickhouse), "query", query)

	rows, err := l.cnn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columnTypes := rows.ColumnTypes()
	names := rows.Columns()
	values := make([][]any, len(columnTypes))
	for rows.Next() {
		ptrs := make([]any, len(columnTypes))
		for i, ct := range columnTypes {
			ptrs[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, ptr := range ptrs {
			values[i] = append(values[i], clickhouseValue(reflect.ValueOf(ptr).Elem().Interface()))
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	columns := make([]*dqcheck.Column, len(names))
	for i, name := range names {
		col, err := dqcheck.NewColumn(name, values[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", table, err)
		}
		columns[i] = col
	}
	ds, err := dqcheck.NewDataset(columns...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", table, err)
	}

	l.logger.Debug("table loaded",
		"dataset", table,
		"rows", ds.NumRows(),
		"duration_ms", time.Since(startTime).Milliseconds())

	return ds.Named(table), nil
}

// clickhouseValue keeps values the dataset understands and falls back to the textual form of
// types such as Decimal, UUID or IP addresses.
func clickhouseValue(v any) any {
	if _, _, err := dqcheck.NormalizeValue(v); err == nil {
		return v
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
