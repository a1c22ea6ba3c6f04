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

package cnn

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/DataBridgeTech/dqcheck"
	_ "github.com/lib/pq"
)

const defaultPostgresqlPort = 5432

// PostgresqlDSN builds a lib/pq keyword/value connection string.
func PostgresqlDSN(connectionCfg dqcheck.ConnectionConfig) string {
	port := connectionCfg.Port
	if port == 0 {
		port = defaultPostgresqlPort
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		quoteDSNValue(connectionCfg.Host), port, quoteDSNValue(connectionCfg.Username),
		quoteDSNValue(connectionCfg.Password), quoteDSNValue(connectionCfg.Database))
}

func NewPostgresqlConnection(connectionCfg dqcheck.ConnectionConfig, poolSize int) (*sql.DB, error) {
	db, err := sql.Open("postgres", PostgresqlDSN(connectionCfg))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	return db, nil
}

// quoteDSNValue single-quotes values that are empty or contain spaces or quotes.
func quoteDSNValue(value string) string {
	if value != "" && !strings.ContainsAny(value, " '\\") {
		return value
	}
	escaped := strings.NewReplacer("\\", "\\\\", "'", "\\'").Replace(value)
	return "'" + escaped + "'"
}
