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
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/DataBridgeTech/dqcheck"
)

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][\w$]*(\.[A-Za-z_][\w$]*)?$`)

// QuoteTableName validates a [schema.]table name and quotes each part for the dialect.
func QuoteTableName(dialect dqcheck.DataSourceType, table string) (string, error) {
	table = strings.TrimSpace(table)
	if !tableNameRegex.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}

	quote := `"`
	if dialect == dqcheck.DataSourceTypeMysql || dialect == dqcheck.DataSourceTypeClickhouse {
		quote = "`"
	}

	parts := strings.Split(table, ".")
	for i, part := range parts {
		parts[i] = quote + part + quote
	}
	return strings.Join(parts, "."), nil
}

// SQLLoader reads whole tables from PostgreSQL or MySQL.
type SQLLoader struct {
	db      *sql.DB
	dialect dqcheck.DataSourceType
	logger  *slog.Logger
}

var _ dqcheck.DatasetLoader = (*SQLLoader)(nil)

func NewSQLLoader(db *sql.DB, dialect dqcheck.DataSourceType, logger *slog.Logger) *SQLLoader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &SQLLoader{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

// Load reads every row of table. The dataset is named after the table.
func (l *SQLLoader) Load(ctx context.Context, table string) (*dqcheck.Dataset, error) {
	quoted, err := QuoteTableName(l.dialect, table)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	query := fmt.Sprintf("SELECT * FROM %s", quoted)
	l.logger.Debug("loading table", "dialect", string(l.dialect), "query", query)

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	values := make([][]any, len(columnTypes))
	for rows.Next() {
		row := make([]any, len(columnTypes))
		ptrs := make([]any, len(columnTypes))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range row {
			values[i] = append(values[i], convertSQLValue(v, columnTypes[i].DatabaseTypeName()))
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	ds, err := buildDataset(table, columnTypes, values)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("table loaded",
		"dataset", table,
		"rows", ds.NumRows(),
		"duration_ms", time.Since(startTime).Milliseconds())

	return ds, nil
}

func buildDataset(name string, columnTypes []*sql.ColumnType, values [][]any) (*dqcheck.Dataset, error) {
	columns := make([]*dqcheck.Column, len(columnTypes))
	for i, ct := range columnTypes {
		col, err := dqcheck.NewColumn(ct.Name(), values[i])
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

// convertSQLValue turns the textual []byte values drivers return for numeric and boolean
// columns into typed values. Anything else is kept, []byte ends up as a string.
func convertSQLValue(v any, databaseType string) any {
	raw, ok := v.([]byte)
	if !ok {
		return v
	}
	text := string(raw)

	switch strings.ToUpper(databaseType) {
	case "INT", "INT2", "INT4", "INT8", "INTEGER", "SMALLINT", "TINYINT", "MEDIUMINT", "BIGINT", "YEAR",
		"UNSIGNED INT", "UNSIGNED SMALLINT", "UNSIGNED TINYINT", "UNSIGNED MEDIUMINT", "UNSIGNED BIGINT":
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
	case "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "REAL", "NUMERIC", "DECIMAL":
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case "BOOL", "BOOLEAN":
		if b, err := strconv.ParseBool(text); err == nil {
			return b
		}
	}

	return text
}
