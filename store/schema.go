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

package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/DataBridgeTech/dqcheck"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// expected declared types of validation_log; extra columns are tolerated
var requiredColumns = map[string]string{
	"id":                "INTEGER",
	"timestamp":         "TEXT",
	"check_type":        "TEXT",
	"result":            "INTEGER",
	"additional_params": "TEXT",
}

// initSchema checks a pre-existing validation_log (for example one written by an older tool),
// applies pending migrations and checks the result again.
func (s *Store) initSchema(ctx context.Context) error {
	if err := s.verifySchema(ctx); err != nil {
		return err
	}

	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, res := range results {
		s.logger.Debug("applied migration",
			"version", res.Source.Version,
			"path", res.Source.Path,
			"duration_ms", res.Duration.Milliseconds())
	}

	return s.verifySchema(ctx)
}

// verifySchema returns ErrIncompatibleSchema when validation_log exists without the expected
// columns. A missing table is not an error.
func (s *Store) verifySchema(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(validation_log)")
	if err != nil {
		return fmt.Errorf("failed to inspect validation_log: %w", err)
	}
	defer rows.Close()

	found := make(map[string]string)
	for rows.Next() {
		var (
			cid          int
			name         string
			declaredType string
			notNull      int
			defaultValue sql.NullString
			primaryKey   int
		)
		if err := rows.Scan(&cid, &name, &declaredType, &notNull, &defaultValue, &primaryKey); err != nil {
			return fmt.Errorf("failed to scan table info: %w", err)
		}
		found[strings.ToLower(name)] = strings.ToUpper(declaredType)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error occurred during table info iteration: %w", err)
	}

	if len(found) == 0 {
		return nil
	}

	for column, wantType := range requiredColumns {
		gotType, ok := found[column]
		if !ok {
			return fmt.Errorf("%w: column %s is missing", dqcheck.ErrIncompatibleSchema, column)
		}
		if gotType != wantType {
			return fmt.Errorf("%w: column %s has type %s, expected %s", dqcheck.ErrIncompatibleSchema, column, gotType, wantType)
		}
	}

	return nil
}
