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

// Package store keeps the validation log: an append-only SQLite table holding one record per
// evaluated check.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/DataBridgeTech/dqcheck"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	// busy_timeout lets a writer wait for a lock held by another process instead of failing at once.
	dsnPragmas = "_pragma=busy_timeout(5000)"

	insertRecordQuery = `
		INSERT INTO validation_log (timestamp, check_type, result, additional_params)
		VALUES (?, ?, ?, ?)`

	selectRecordsQuery = `
		SELECT id, timestamp, check_type, result, additional_params
		FROM validation_log
		ORDER BY id`

	// naive isoformat() timestamps written by older versions of the tool
	legacyTimestampLayout = "2006-01-02T15:04:05.999999"
)

// Store is the SQLite backed validation log.
type Store struct {
	db       *sql.DB
	location string
	logger   *slog.Logger
	now      func() time.Time
}

var (
	_ dqcheck.ResultLogger = (*Store)(nil)
	_ dqcheck.ResultReader = (*Store)(nil)
)

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the clock used to timestamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects to the SQLite file at location, creating it when absent, and brings the
// validation_log schema up to date. Every failure is returned as *dqcheck.StorageInitError.
func Open(ctx context.Context, location string, opts ...Option) (*Store, error) {
	s := &Store{
		location: location,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if strings.TrimSpace(location) == "" {
		return nil, s.initError(errors.New("location is empty"))
	}

	db, err := sql.Open(driverName, dsn(location))
	if err != nil {
		return nil, s.initError(err)
	}
	// single writer; callers sharing a Store are serialized here
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, s.initError(err)
	}
	s.db = db

	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, s.initError(err)
	}

	s.logger.Debug("result store opened", "location", location)
	return s, nil
}

func dsn(location string) string {
	if strings.Contains(location, "?") {
		return location + "&" + dsnPragmas
	}
	return location + "?" + dsnPragmas
}

func (s *Store) initError(err error) error {
	return &dqcheck.StorageInitError{Location: s.location, Err: err}
}

// Location returns the path the store was opened with.
func (s *Store) Location() string {
	return s.location
}

// Close releases the underlying connection. Logging after Close fails with StorageWriteError.
func (s *Store) Close() error {
	return s.db.Close()
}

// Log appends one record. The id and timestamp are assigned here; empty params are stored as NULL.
func (s *Store) Log(ctx context.Context, checkType string, result bool, params dqcheck.Params) error {
	var paramsJSON sql.NullString
	if len(params) > 0 {
		encoded, err := json.Marshal(params)
		if err != nil {
			return &dqcheck.StorageWriteError{CheckType: checkType, Err: fmt.Errorf("failed to encode params: %w", err)}
		}
		paramsJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	timestamp := s.now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, insertRecordQuery, timestamp, checkType, boolToInt(result), paramsJSON)
	if err != nil {
		return &dqcheck.StorageWriteError{CheckType: checkType, Err: err}
	}

	if s.logger.Enabled(ctx, slog.LevelDebug) {
		id, _ := res.LastInsertId()
		s.logger.Debug("validation record logged",
			"id", id,
			"check_type", checkType,
			"result", result)
	}

	return nil
}

// ReadAll returns a snapshot of every record in insertion order.
func (s *Store) ReadAll(ctx context.Context) ([]dqcheck.ValidationRecord, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}

	var records []dqcheck.ValidationRecord
	for _, row := range rows {
		record := row.record
		if row.params.Valid && row.params.String != "" {
			record.AdditionalParams, err = decodeParams(row.params.String)
			if err != nil {
				return nil, fmt.Errorf("record %d: failed to decode additional_params: %w", record.ID, err)
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// PrintAll writes every record as "[id] timestamp | check_type | PASS|FAIL | params", with params
// printed as stored.
func (s *Store) PrintAll(ctx context.Context, w io.Writer) error {
	rows, err := s.readRows(ctx)
	if err != nil {
		return err
	}

	for _, row := range rows {
		status := "FAIL"
		if row.record.Result {
			status = "PASS"
		}

		if _, err := fmt.Fprintf(w, "[%d] %s | %s | %s | %s\n",
			row.record.ID, row.record.Timestamp.Format(time.RFC3339Nano), row.record.CheckType, status, row.params.String); err != nil {
			return err
		}
	}

	return nil
}

type logRow struct {
	record dqcheck.ValidationRecord
	params sql.NullString
}

func (s *Store) readRows(ctx context.Context) ([]logRow, error) {
	rows, err := s.db.QueryContext(ctx, selectRecordsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation_log: %w", err)
	}
	defer rows.Close()

	var result []logRow
	for rows.Next() {
		var (
			row       logRow
			timestamp string
			passed    int64
		)
		if err := rows.Scan(&row.record.ID, &timestamp, &row.record.CheckType, &passed, &row.params); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row.record.Timestamp, err = parseTimestamp(timestamp)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", row.record.ID, err)
		}
		row.record.Result = passed != 0

		result = append(result, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	return result, nil
}

// decodeParams keeps JSON integers as int64; other numbers become float64.
func decodeParams(raw string) (dqcheck.Params, error) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()

	var params dqcheck.Params
	if err := decoder.Decode(&params); err != nil {
		return nil, err
	}
	for key, value := range params {
		params[key] = fromJSONNumbers(value)
	}
	return params, nil
}

func fromJSONNumbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		for i := range v {
			v[i] = fromJSONNumbers(v[i])
		}
		return v
	case map[string]any:
		for key := range v {
			v[key] = fromJSONNumbers(v[key])
		}
		return v
	default:
		return value
	}
}

func parseTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(legacyTimestampLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return ts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
